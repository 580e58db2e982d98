package envfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoEditor is returned when neither $EDITOR nor any candidate is found.
var ErrNoEditor = errors.New("no editor found")

// DefaultCandidates is the editor search list used when $EDITOR is unset.
var DefaultCandidates = []string{"nano", "vim", "vi", "gedit", "code", "emacs", "sublime", "pico"}

// Editor opens a file for the user and returns when they are done.
type Editor interface {
	Edit(ctx context.Context, path string) error
}

// SystemEditor runs an external editor attached to the terminal.
type SystemEditor struct {
	Candidates []string // nil uses DefaultCandidates
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer

	getenv   func(string) string
	lookPath func(string) (string, error)
}

// NewSystemEditor returns an editor wired to the process's standard streams.
func NewSystemEditor(candidates []string) *SystemEditor {
	return &SystemEditor{
		Candidates: candidates,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// Command returns the editor command line: $EDITOR split on spaces, or the
// first candidate on PATH. On Windows the fallback is notepad.
func (e *SystemEditor) Command() ([]string, error) {
	getenv, lookPath := e.getenv, e.lookPath
	if getenv == nil {
		getenv = os.Getenv
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if fields := strings.Fields(getenv("EDITOR")); len(fields) > 0 {
		return fields, nil
	}
	if runtime.GOOS == "windows" {
		return []string{"notepad"}, nil
	}
	candidates := e.Candidates
	if candidates == nil {
		candidates = DefaultCandidates
	}
	for _, c := range candidates {
		if _, err := lookPath(c); err == nil {
			return []string{c}, nil
		}
	}
	return nil, fmt.Errorf("%w: set $EDITOR or install one of %s", ErrNoEditor, strings.Join(candidates, ", "))
}

// Edit opens path in the editor and waits for it to exit.
func (e *SystemEditor) Edit(ctx context.Context, path string) error {
	argv, err := e.Command()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running editor %s: %w", argv[0], err)
	}
	return nil
}
