// Package render applies submission outcomes to the terminal: the shared
// status line, form resets and the blocking welcome acknowledgment.
package render

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/atinyakov/formrelay/internal/client/form"
)

const (
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// Display is the single status-message region. Whichever outcome is
// shown last wins.
type Display struct {
	mu        sync.Mutex
	text      string
	treatment form.Treatment
}

// Show replaces the current message.
func (d *Display) Show(text string, t form.Treatment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.treatment = t
}

// Last returns the message currently shown.
func (d *Display) Last() (string, form.Treatment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text, d.treatment
}

// Terminal renders outcomes as colored lines and reads acknowledgments from input.
type Terminal struct {
	Display *Display

	in    *bufio.Scanner
	out   io.Writer
	color bool
	mu    sync.Mutex
}

// NewTerminal returns a renderer writing to out and reading acknowledgments from in.
func NewTerminal(in *bufio.Scanner, out io.Writer, color bool) *Terminal {
	return &Terminal{Display: &Display{}, in: in, out: out, color: color}
}

// Apply carries out o for the form f that was submitted.
func (t *Terminal) Apply(f *form.Form, o form.Outcome) {
	t.Display.Show(o.Message, o.Treatment)

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, t.paint(o.Message, o.Treatment))
	if o.ResetForm && f != nil {
		f.Reset()
	}
	if o.Acknowledge != "" {
		fmt.Fprintf(t.out, "%s [press Enter] ", o.Acknowledge)
		t.in.Scan()
		fmt.Fprintln(t.out)
	}
}

func (t *Terminal) paint(text string, tr form.Treatment) string {
	if !t.color {
		return fmt.Sprintf("[%s] %s", tr, text)
	}
	if tr == form.TreatmentSuccess {
		return ansiGreen + text + ansiReset
	}
	return ansiRed + text + ansiReset
}
