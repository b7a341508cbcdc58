package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/formrelay/internal/client/form"
	"github.com/atinyakov/formrelay/internal/client/render"
	"github.com/atinyakov/formrelay/internal/models"
)

// newTestShell feeds input to a shell whose forms are handled by h.
func newTestShell(input string, h form.Handler) (*shell, *bytes.Buffer) {
	in := bufio.NewScanner(strings.NewReader(input))
	var out bytes.Buffer
	d := form.NewDispatcher()
	d.Register(models.ActionSignup, h)
	d.Register(models.ActionSignin, h)
	return &shell{
		in:         in,
		out:        &out,
		forms:      form.DefaultForms(),
		dispatcher: d,
		term:       render.NewTerminal(in, &out, false),
	}, &out
}

func TestShell_SigninPromptsAndAcknowledges(t *testing.T) {
	var got []form.Event
	h := func(ctx context.Context, ev form.Event) form.Outcome {
		got = append(got, ev)
		return form.Outcome{Message: "Signin successful!", Treatment: form.TreatmentSuccess, ResetForm: true, Acknowledge: "Welcome, Ada!"}
	}
	sh, out := newTestShell("signin email=ada@example.com\nhunter2\n\nexit\n", h)

	sh.repl(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, models.ActionSignin, got[0].Action)
	assert.Equal(t, map[string]string{"email": "ada@example.com", "password": "hunter2"}, got[0].Fields)
	assert.Contains(t, out.String(), "Enter password: ")
	assert.NotContains(t, out.String(), "Enter email: ")
	assert.Contains(t, out.String(), "[success] Signin successful!")
	assert.Contains(t, out.String(), "Welcome, Ada! [press Enter]")
	assert.Contains(t, out.String(), "Bye")
	assert.False(t, sh.forms[models.ActionSignin].IsSet("email"))
}

func TestShell_ErrorKeepsFormForRetry(t *testing.T) {
	calls := 0
	h := func(ctx context.Context, ev form.Event) form.Outcome {
		calls++
		assert.Equal(t, "Ada", ev.Fields["name"])
		return form.Outcome{Message: form.GenericErrorMessage, Treatment: form.TreatmentError}
	}
	sh, out := newTestShell("signup name=Ada email=ada@example.com password=x\nsignup\nstatus\nexit\n", h)

	sh.repl(context.Background())

	assert.Equal(t, 2, calls)
	// two submissions plus the status command
	assert.Equal(t, 3, strings.Count(out.String(), "[error] "+form.GenericErrorMessage))
	assert.True(t, sh.forms[models.ActionSignup].IsSet("email"))
}

func TestShell_Commands(t *testing.T) {
	h := func(ctx context.Context, ev form.Event) form.Outcome {
		t.Fatal("no submission expected")
		return form.Outcome{}
	}
	sh, out := newTestShell("help\nstatus\nfrobnicate\nsignup bogus\nsignup color=red\nclear\nclear login\n", h)

	sh.repl(context.Background())

	text := out.String()
	assert.Contains(t, text, "Available commands")
	assert.Contains(t, text, "No submissions yet")
	assert.Contains(t, text, "Unknown command")
	assert.Contains(t, text, `expected key=value, got "bogus"`)
	assert.Contains(t, text, "Usage: clear")
	assert.Contains(t, text, "Unknown form")
}

func TestShell_UnknownFieldLeavesFormUntouched(t *testing.T) {
	h := func(ctx context.Context, ev form.Event) form.Outcome {
		t.Fatal("no submission expected")
		return form.Outcome{}
	}
	sh, out := newTestShell("signin email=ada@example.com role=admin\nexit\n", h)

	sh.repl(context.Background())

	assert.Contains(t, out.String(), `unknown field "role" for signin form`)
	assert.NotContains(t, out.String(), "Enter ")
	assert.False(t, sh.forms[models.ActionSignin].IsSet("email"))
}

func TestShell_ClearResetsForm(t *testing.T) {
	h := func(ctx context.Context, ev form.Event) form.Outcome {
		return form.Outcome{Message: "nope", Treatment: form.TreatmentError}
	}
	sh, _ := newTestShell("signin email=a@example.com password=p\nclear signin\nexit\n", h)

	sh.repl(context.Background())

	assert.False(t, sh.forms[models.ActionSignin].IsSet("email"))
}

func TestShell_InputClosedDuringPrompt(t *testing.T) {
	h := func(ctx context.Context, ev form.Event) form.Outcome {
		t.Fatal("no submission expected")
		return form.Outcome{}
	}
	sh, out := newTestShell("signup name=Ada", h)

	sh.repl(context.Background())

	assert.Contains(t, out.String(), "input closed")
}
