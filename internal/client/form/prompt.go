package form

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompt asks for every field of f that is not set yet, one line per field.
func Prompt(in *bufio.Scanner, out io.Writer, f *Form) error {
	for _, name := range f.Fields {
		if f.IsSet(name) {
			continue
		}
		fmt.Fprintf(out, "Enter %s: ", name)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return err
			}
			return io.ErrUnexpectedEOF
		}
		if err := f.Set(name, strings.TrimSpace(in.Text())); err != nil {
			return err
		}
	}
	return nil
}

// ParseAssignments reads shell arguments of the form key=value.
func ParseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out[key] = value
	}
	return out, nil
}
