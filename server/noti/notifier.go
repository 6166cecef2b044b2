package noti

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/structs"
)

type NotiError struct {
	code string
	msg  string
}

func (e *NotiError) Error() string {
	return fmt.Sprintf("Notification error: code='%s' msg='%s'", e.code, e.msg)
}

func (e *NotiError) Json() []byte {
	j, _ := json.Marshal(map[string]string{
		"code": "noti:" + e.code,
		"msg":  e.msg,
	})
	return j
}

func NewNotiError(code string, msg string, a ...interface{}) *NotiError {
	return &NotiError{code: code, msg: fmt.Sprintf(msg, a...)}
}

//Event describes one record-level change pushed through the notification
//center.
type Event struct {
	Resource string
	Action   string
	Data     map[string]interface{}
}

//Obj returns the wire payload of the event.
func (e *Event) Obj() map[string]interface{} {
	return structs.Map(e)
}

func NewEvent(resource string, action string, data map[string]interface{}) *Event {
	return &Event{Resource: resource, Action: action, Data: data}
}

type Notifier interface {
	NewNotification() chan *Event
}

func fanOut(in chan *Event, out chan *Event) {
	defer func() {
		close(out)
	}()
	for event := range in {
		out <- event
	}
}

func Broadcast(notifier Notifier) chan *Event {
	in := make(chan *Event, 100)
	out := notifier.NewNotification()
	go fanOut(in, out)
	return in
}

//NotificationCenter collects the events raised while serving one request and
//forwards them to the attached notifiers. Delivery is fire-and-forget.
type NotificationCenter struct {
	notifiers []Notifier
	channels  []chan *Event
	pending   []*Event
}

func NewNotificationCenter(notifiers ...Notifier) *NotificationCenter {
	center := &NotificationCenter{notifiers: notifiers}
	for _, notifier := range notifiers {
		center.channels = append(center.channels, Broadcast(notifier))
	}
	return center
}

func (center *NotificationCenter) Push(event *Event) {
	center.pending = append(center.pending, event)
	for _, channel := range center.channels {
		select {
		case channel <- event:
		default:
			//a saturated notifier never blocks the request
		}
	}
}

//Pending returns the events raised so far, for inclusion in rendered output.
func (center *NotificationCenter) Pending() []*Event {
	return center.pending
}

//Complete ends the center's lifecycle: every broadcast channel is closed so
//the fan-out goroutines terminate. Pushes after completion are dropped.
func (center *NotificationCenter) Complete() {
	for _, channel := range center.channels {
		close(channel)
	}
	center.channels = nil
}
