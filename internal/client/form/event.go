package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atinyakov/formrelay/internal/models"
)

// ErrNoHandler is returned by Dispatch for an action nobody registered.
var ErrNoHandler = errors.New("no handler registered")

// Event is raised when a form is submitted.
type Event struct {
	Action models.Action
	Fields map[string]string
}

// Request returns the submission the event asks for.
func (e Event) Request() models.SubmissionRequest {
	return models.SubmissionRequest{Action: e.Action, Fields: e.Fields}
}

// Treatment selects how the status message is styled.
type Treatment int

const (
	// TreatmentError styles a failure.
	TreatmentError Treatment = iota
	// TreatmentSuccess styles an accepted submission.
	TreatmentSuccess
)

func (t Treatment) String() string {
	if t == TreatmentSuccess {
		return "success"
	}
	return "error"
}

// Outcome lists what the renderer should do after a submission.
type Outcome struct {
	// Message replaces the status message.
	Message string
	// Treatment styles Message.
	Treatment Treatment
	// ResetForm clears the originating form.
	ResetForm bool
	// Acknowledge, when non-empty, must be shown in a blocking acknowledgment.
	Acknowledge string
}

// Handler reacts to a submitted form.
type Handler func(ctx context.Context, ev Event) Outcome

// Dispatcher routes submitted-form events to the handler registered for their action.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[models.Action]Handler
}

// NewDispatcher returns a Dispatcher with no handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[models.Action]Handler)}
}

// Register attaches h to action, replacing any previous handler.
func (d *Dispatcher) Register(action models.Action, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = h
}

// Dispatch runs the handler registered for ev.Action.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	d.mu.RLock()
	h, ok := d.handlers[ev.Action]
	d.mu.RUnlock()
	if !ok {
		return Outcome{}, fmt.Errorf("%w for %q", ErrNoHandler, ev.Action)
	}
	return h(ctx, ev), nil
}
