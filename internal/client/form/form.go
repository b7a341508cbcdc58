// Package form models the signup and signin forms, the "form submitted"
// event they raise and the outcome a submission hands to the renderer.
package form

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/atinyakov/formrelay/internal/models"
)

// ErrUnknownField is returned when a value is set for a field the form does not declare.
var ErrUnknownField = errors.New("unknown field")

// Form is a named set of input fields and their current values.
type Form struct {
	// Action is the tag submitted with the form's values.
	Action models.Action
	// Fields lists the field names in display order.
	Fields []string

	mu     sync.Mutex
	values map[string]string
}

// New returns an empty form for action with the given fields.
func New(action models.Action, fields ...string) *Form {
	return &Form{Action: action, Fields: fields, values: make(map[string]string, len(fields))}
}

// DefaultForms returns the signup and signin forms keyed by action.
func DefaultForms() map[models.Action]*Form {
	return map[models.Action]*Form{
		models.ActionSignup: New(models.ActionSignup, "name", "email", "password"),
		models.ActionSignin: New(models.ActionSignin, "email", "password"),
	}
}

// Set assigns value to a declared field.
func (f *Form) Set(name, value string) error {
	if !f.declares(name) {
		return fmt.Errorf("%w %q for %s form", ErrUnknownField, name, f.Action)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
	return nil
}

// SetAll assigns every value in values, or none of them if any name is not
// a declared field.
func (f *Form) SetAll(values map[string]string) error {
	var unknown []string
	for name := range values {
		if !f.declares(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("%w %s for %s form", ErrUnknownField, strings.Join(quoteAll(unknown), ", "), f.Action)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for name, value := range values {
		f.values[name] = value
	}
	return nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strconv.Quote(n)
	}
	return out
}

// IsSet reports whether name has been given a value since the last reset.
func (f *Form) IsSet(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[name]
	return ok
}

// Values snapshots every declared field; unset fields are empty strings.
func (f *Form) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.Fields))
	for _, name := range f.Fields {
		out[name] = f.values[name]
	}
	return out
}

// Reset clears every field.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = make(map[string]string, len(f.Fields))
}

// Event captures the form as submitted right now.
func (f *Form) Event() Event {
	return Event{Action: f.Action, Fields: f.Values()}
}

func (f *Form) declares(name string) bool {
	for _, n := range f.Fields {
		if n == name {
			return true
		}
	}
	return false
}
