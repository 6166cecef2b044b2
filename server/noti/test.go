package noti

type TestNotifier struct {
	Events chan *Event
}

func NewTestNotifier() *TestNotifier {
	return &TestNotifier{Events: make(chan *Event, 100)}
}

//NewNotification hands out a fresh channel per subscription; the shared Events
//buffer survives channel closes, so one notifier can serve many centers.
func (tn *TestNotifier) NewNotification() chan *Event {
	in := make(chan *Event, 100)
	go func() {
		for event := range in {
			tn.Events <- event
		}
	}()
	return in
}
