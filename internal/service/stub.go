// Package service provides the scripted behavior of the stub form endpoint,
// delegating the delivery log to a repository.
package service

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/formrelay/internal/models"
)

// redacted replaces secret values before a delivery is stored.
const redacted = "[redacted]"

// secretFields are never written to the delivery log.
var secretFields = map[string]bool{"password": true, "confirm": true}

// DeliveryRepository defines the persistence operations
// required by the stub service.
type DeliveryRepository interface {
	// Record stores one delivery.
	Record(ctx context.Context, d models.Delivery) error
	// List returns the deliveries of a submission, or the most recent ones for "".
	List(ctx context.Context, submissionID string) ([]models.Delivery, error)
	// Forget removes every delivery of the given submissions.
	Forget(ctx context.Context, submissionIDs []string) (int64, error)
}

// StubService records deliveries and answers them with canned replies.
type StubService struct {
	repo DeliveryRepository
	now  func() time.Time
}

// NewStubService constructs a StubService using the provided repository.
func NewStubService(repo DeliveryRepository) *StubService {
	return &StubService{repo: repo, now: time.Now}
}

// Deliver records one delivery of values received with method and
// returns the reply the endpoint sends back.
func (s *StubService) Deliver(ctx context.Context, method, submissionID string, values url.Values) (models.SubmissionResult, error) {
	action := values.Get("action")
	fields := make(map[string]string, len(values))
	for k := range values {
		if k == "action" {
			continue
		}
		fields[k] = values.Get(k)
	}

	logged := make(map[string]string, len(fields))
	for k, v := range fields {
		if secretFields[k] {
			v = redacted
		}
		logged[k] = v
	}

	err := s.repo.Record(ctx, models.Delivery{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Method:       method,
		Action:       action,
		Fields:       logged,
		ReceivedAt:   s.now().UTC(),
	})
	if err != nil {
		return models.SubmissionResult{}, err
	}

	return Reply(action, fields), nil
}

// Reply is the canned answer for a submission.
func Reply(action string, fields map[string]string) models.SubmissionResult {
	switch models.Action(action) {
	case models.ActionSignup:
		return models.SubmissionResult{Status: models.StatusSuccess, Message: "Signup successful!"}
	case models.ActionSignin:
		name := fields["name"]
		if name == "" {
			name = fields["email"]
		}
		return models.SubmissionResult{Status: models.StatusSuccess, Message: "Signin successful!", Name: name}
	default:
		return models.SubmissionResult{Status: models.StatusError, Message: "Unknown action"}
	}
}

// Deliveries lists recorded deliveries.
func (s *StubService) Deliveries(ctx context.Context, submissionID string) ([]models.Delivery, error) {
	return s.repo.List(ctx, submissionID)
}

// Forget drops the deliveries of the given submissions.
func (s *StubService) Forget(ctx context.Context, submissionIDs []string) (int64, error) {
	return s.repo.Forget(ctx, submissionIDs)
}
