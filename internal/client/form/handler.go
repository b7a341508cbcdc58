package form

import (
	"context"

	"go.uber.org/zap"

	"github.com/atinyakov/formrelay/internal/models"
)

// GenericErrorMessage is shown for every failure to get a reply from the endpoint.
const GenericErrorMessage = "Error connecting to the server. Please try again later."

// Submitter delivers one submission and returns the endpoint's reply.
type Submitter interface {
	Submit(ctx context.Context, action models.Action, fields map[string]string) (*models.SubmissionResult, error)
}

// NewSubmitHandler returns a Handler that submits the event's fields through s.
// Failures are logged with their cause and surface only as GenericErrorMessage.
func NewSubmitHandler(s Submitter, log *zap.Logger) Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, ev Event) Outcome {
		req := ev.Request()
		res, err := s.Submit(ctx, req.Action, req.Fields)
		if err != nil {
			log.Error("submission failed", zap.String("action", string(req.Action)), zap.Error(err))
			return Outcome{Message: GenericErrorMessage, Treatment: TreatmentError}
		}
		return OutcomeFor(ev.Action, res)
	}
}

// OutcomeFor maps an endpoint reply to renderer commands.
func OutcomeFor(action models.Action, res *models.SubmissionResult) Outcome {
	if !res.OK() {
		return Outcome{Message: res.Message, Treatment: TreatmentError}
	}
	out := Outcome{Message: res.Message, Treatment: TreatmentSuccess, ResetForm: true}
	if action == models.ActionSignin {
		out.Acknowledge = welcome(res.Name)
	}
	return out
}

func welcome(name string) string {
	if name == "" {
		return "Welcome!"
	}
	return "Welcome, " + name + "!"
}
