// Package models defines the core data structures exchanged with the
// form-processing endpoint.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownAction is returned when an action tag is not one of the supported actions.
var ErrUnknownAction = errors.New("unknown action")

// Action identifies which form was submitted.
type Action string

const (
	// ActionSignup is submitted by the registration form.
	ActionSignup Action = "signup"
	// ActionSignin is submitted by the login form.
	ActionSignin Action = "signin"
)

// ParseAction converts a raw action tag into an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionSignup, ActionSignin:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	_, err := ParseAction(string(a))
	return err == nil
}

// Status is the outcome reported by the endpoint.
type Status string

const (
	// StatusSuccess marks an accepted submission.
	StatusSuccess Status = "success"
	// StatusError marks a submission the endpoint rejected.
	StatusError Status = "error"
)

// SubmissionRequest is a single form submission.
type SubmissionRequest struct {
	// Action is the tag sent as the "action" field.
	Action Action
	// Fields maps form field names to their values.
	Fields map[string]string
}

// Validate reports ErrUnknownAction when the request carries an unsupported action.
func (r SubmissionRequest) Validate() error {
	if !r.Action.Valid() {
		return fmt.Errorf("submit %q: %w", r.Action, ErrUnknownAction)
	}
	return nil
}

// SubmissionResult is the JSON object returned by the endpoint.
type SubmissionResult struct {
	// Status is "success" or "error".
	Status Status `json:"status"`
	// Message is the human-readable text to show the user.
	Message string `json:"message"`
	// Name is the display name, present on a successful signin.
	Name string `json:"name,omitempty"`
}

// OK reports whether the endpoint accepted the submission.
func (r SubmissionResult) OK() bool {
	return r.Status == StatusSuccess
}

// Delivery is one request as received by the stub endpoint.
type Delivery struct {
	// ID is the unique identifier of the delivery record.
	ID string `json:"id"`
	// SubmissionID correlates all deliveries of one submission.
	SubmissionID string `json:"submission_id"`
	// Method is the HTTP method the payload arrived with.
	Method string `json:"method"`
	// Action is the raw action field, possibly empty or invalid.
	Action string `json:"action"`
	// Fields holds every other form value.
	Fields map[string]string `json:"fields"`
	// ReceivedAt is when the stub accepted the request.
	ReceivedAt time.Time `json:"received_at"`
}
