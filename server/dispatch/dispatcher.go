package dispatch

import (
	"fmt"
	"net/http"

	"rincewind/logger"
	"rincewind/server/errors"
	"rincewind/server/noti"
	"rincewind/server/render"
)

const (
	ErrControllerNotFound = "controller_not_found"
	ErrActionNotFound     = "action_not_found"
	ErrWrongParamCount    = "wrong_parameter_count"
	ErrBadParameter       = "bad_parameter"
)

//Context carries the per-request collaborators into an action.
type Context struct {
	Request       *http.Request
	Notifications *noti.NotificationCenter
}

//HandlerFunc is one controller action: it receives the constructed parameter
//value objects and produces a view name plus a model for rendering.
type HandlerFunc func(ctx *Context, params []interface{}) (string, render.Model, error)

//Action pairs the ordered parameter value-type list with the handler. The
//table is declared statically per controller; the Dispatcher validates
//against it instead of runtime introspection.
type Action struct {
	Params []ParamFactory
	Handle HandlerFunc
}

type Controller struct {
	Name    string
	Actions map[string]Action
}

//Dispatcher consumes sanitized controller/action identifiers and positional
//string parameters, invokes exactly one action on exactly one controller and
//hands the result to the render pipeline.
type Dispatcher struct {
	controllers map[string]*Controller
	renderer    *render.Renderer
	notifiers   []noti.Notifier
}

func NewDispatcher(renderer *render.Renderer, notifiers ...noti.Notifier) *Dispatcher {
	return &Dispatcher{
		controllers: make(map[string]*Controller),
		renderer:    renderer,
		notifiers:   notifiers,
	}
}

func (dispatcher *Dispatcher) Register(controller *Controller) {
	dispatcher.controllers[controller.Name] = controller
}

//Resolve validates the controller/action pair against the declared tables
//and constructs the parameter value objects. Unknown controller, unknown
//action and wrong parameter count classify as not found; a parameter whose
//construction fails classifies as bad request.
func (dispatcher *Dispatcher) Resolve(controllerName string, actionName string, rawParams []string) (Action, []interface{}, error) {
	controller, ok := dispatcher.controllers[controllerName]
	if !ok {
		return Action{}, nil, errors.NewNotFoundError(
			ErrControllerNotFound, fmt.Sprintf("Controller '%s' not found", controllerName), nil,
		)
	}
	action, ok := controller.Actions[actionName]
	if !ok {
		return Action{}, nil, errors.NewNotFoundError(
			ErrActionNotFound, fmt.Sprintf("Controller '%s' has no action '%s'", controllerName, actionName), nil,
		)
	}
	if len(rawParams) != len(action.Params) {
		return Action{}, nil, errors.NewNotFoundError(
			ErrWrongParamCount,
			fmt.Sprintf("Action '%s.%s' expects %d parameters, got %d", controllerName, actionName, len(action.Params), len(rawParams)), nil,
		)
	}
	params := make([]interface{}, len(rawParams))
	for i, factory := range action.Params {
		value, err := factory(rawParams[i])
		if err != nil {
			return Action{}, nil, errors.NewValidationError(
				ErrBadParameter, fmt.Sprintf("Parameter %d of '%s.%s' is malformed: %s", i+1, controllerName, actionName, err.Error()), rawParams[i],
			)
		}
		params[i] = value
	}
	return action, params, nil
}

//Dispatch runs the full cycle for one request: resolve, invoke, render, with
//an error-code-driven error render on any failure.
func (dispatcher *Dispatcher) Dispatch(w http.ResponseWriter, req *http.Request, controllerName string, actionName string, rawParams []string) {
	action, params, err := dispatcher.Resolve(controllerName, actionName, rawParams)
	if err != nil {
		dispatcher.returnError(w, err)
		return
	}

	ctx := &Context{Request: req, Notifications: noti.NewNotificationCenter(dispatcher.notifiers...)}
	defer ctx.Notifications.Complete()

	viewName, model, err := action.Handle(ctx, params)
	if err != nil {
		if _, ok := err.(*errors.ServerError); !ok {
			err = errors.NewFatalError(errors.ErrInternal, err.Error(), nil)
		}
		dispatcher.returnError(w, err)
		return
	}

	acceptedTypes := render.ParseAcceptHeader(req.Header.Get("Accept"))
	if err := dispatcher.renderer.Render(w, viewName, model, ctx.Notifications, acceptedTypes); err != nil {
		logger.Error("Rendering view '%s' failed: %s", viewName, err.Error())
	}
}

func (dispatcher *Dispatcher) returnError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if serverError, ok := err.(*errors.ServerError); ok {
		w.WriteHeader(serverError.Status)
		w.Write(serverError.Json())
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(errors.NewFatalError(errors.ErrInternal, err.Error(), nil).Json())
}
