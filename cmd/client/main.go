package main

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/formrelay/internal/client/form"
	"github.com/atinyakov/formrelay/internal/client/render"
	"github.com/atinyakov/formrelay/internal/client/submit"
	"github.com/atinyakov/formrelay/internal/config"
	"github.com/atinyakov/formrelay/internal/logger"
	"github.com/atinyakov/formrelay/internal/models"
)

var (
	version   string
	buildDate string
)

// shell holds everything the interactive loop needs.
type shell struct {
	in         *bufio.Scanner
	out        io.Writer
	forms      map[models.Action]*form.Form
	dispatcher *form.Dispatcher
	term       *render.Terminal
}

// repl runs the interactive shell loop, accepting commands to fill and submit forms.
func (s *shell) repl(ctx context.Context) {
	for {
		fmt.Fprint(s.out, "formrelay> ")
		if !s.in.Scan() {
			break
		}
		args := strings.Fields(strings.TrimSpace(s.in.Text()))
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(s.out, "Available commands: help, signup [field=value ...], signin [field=value ...], clear <form>, status, exit")
		case "signup", "signin":
			s.submit(ctx, models.Action(args[0]), args[1:])
		case "clear":
			if len(args) < 2 {
				fmt.Fprintln(s.out, "Usage: clear <signup|signin>")
				continue
			}
			if f, ok := s.forms[models.Action(args[1])]; ok {
				f.Reset()
			} else {
				fmt.Fprintln(s.out, "Unknown form")
			}
		case "status":
			text, tr := s.term.Display.Last()
			if text == "" {
				fmt.Fprintln(s.out, "No submissions yet")
				continue
			}
			fmt.Fprintf(s.out, "[%s] %s\n", tr, text)
		case "exit":
			fmt.Fprintln(s.out, "Bye")
			return
		default:
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// submit fills the form for action from args and the prompt, then submits it.
func (s *shell) submit(ctx context.Context, action models.Action, args []string) {
	f := s.forms[action]

	assignments, err := form.ParseAssignments(args)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	if err := f.SetAll(assignments); err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	if err := form.Prompt(s.in, s.out, f); err != nil {
		fmt.Fprintln(s.out, "input closed:", err)
		return
	}

	outcome, err := s.dispatcher.Dispatch(ctx, f.Event())
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	s.term.Apply(f, outcome)
}

// main parses configuration, wires the submitter to both forms and starts the shell.
func main() {
	opts, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.ShowVersion {
		fmt.Printf("FormRelay Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(opts.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	client, err := submit.NewHTTPClient(submit.TransportOptions{
		Timeout:  time.Duration(opts.Timeout),
		CAFile:   opts.CAFile,
		CertFile: opts.CertFile,
		KeyFile:  opts.KeyFile,
	})
	if err != nil {
		zapLogger.Fatal("failed to build HTTP client", zap.Error(err))
	}

	submitter, err := submit.New(submit.Config{
		Endpoint: opts.Endpoint,
		Origin:   opts.Origin,
		Fallback: opts.Fallback,
	}, client, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid endpoint configuration", zap.Error(err))
	}

	handler := form.NewSubmitHandler(submitter, zapLogger)
	dispatcher := form.NewDispatcher()
	dispatcher.Register(models.ActionSignup, handler)
	dispatcher.Register(models.ActionSignin, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := bufio.NewScanner(os.Stdin)
	sh := &shell{
		in:         in,
		out:        os.Stdout,
		forms:      form.DefaultForms(),
		dispatcher: dispatcher,
		term:       render.NewTerminal(in, os.Stdout, opts.Color),
	}
	sh.repl(ctx)
}
