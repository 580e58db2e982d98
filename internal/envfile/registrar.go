package envfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/Arete-Innovations/blast-sub000/internal/manifest"
)

// Registrar registers spark environment variables in a .env file.
type Registrar struct {
	Path        string
	Placeholder string       // defaults to DefaultPlaceholder
	Editor      Editor       // nil skips the editor
	Logger      *slog.Logger // nil discards
}

// Result describes one registration.
type Result struct {
	Written    bool     // the file was rewritten
	Added      []string // keys written with the placeholder value
	Unresolved []string // keys still holding the placeholder afterwards
	EditorErr  error    // the editor could not be run; registration still succeeded
}

// BlockComment is the comment line that opens a spark's block.
func BlockComment(plugin string) string {
	return "# Environment variables for " + plugin + " spark"
}

// Register makes sure every required variable of plugin exists in the file.
// Keys with a real value are left alone. Keys that are missing or still hold
// the placeholder are collected into a single block at the end of the file,
// replacing any earlier block for the same spark. When anything had to be
// added and an editor is set, the file is opened for the user to fill in.
func (r *Registrar) Register(ctx context.Context, plugin string, required []manifest.EnvVar) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	placeholder := r.placeholder()

	data, err := os.ReadFile(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrEnvMissing, r.Path)
		}
		return Result{}, fmt.Errorf("reading env file %s: %w", r.Path, err)
	}
	content := string(data)
	lines := splitLines(content)
	state := keyStates(lines, placeholder)

	var res Result
	var toAdd []manifest.EnvVar
	stale := map[string]bool{}
	for _, v := range required {
		key := Key(plugin, v.Name)
		if stale[key] {
			continue
		}
		switch state[key] {
		case keyResolved:
			continue
		case keyPlaceholder:
			logger.Debug("refreshing placeholder", "key", key)
		}
		stale[key] = true
		toAdd = append(toAdd, manifest.EnvVar{Name: key, Comment: v.Comment})
		res.Added = append(res.Added, key)
	}

	if len(toAdd) > 0 {
		next := rebuild(lines, plugin, stale, toAdd, placeholder)
		if next != content {
			if err := writeFile(r.Path, []byte(next)); err != nil {
				return res, err
			}
			res.Written = true
			logger.Info("registered environment variables", "spark", plugin, "keys", res.Added, "file", r.Path)
		}

		if r.Editor != nil {
			if err := r.Editor.Edit(ctx, r.Path); err != nil {
				logger.Warn("editor failed", "error", err)
				res.EditorErr = err
			}
		}
	}

	res.Unresolved, err = Unresolved(r.Path, plugin, placeholder)
	if err != nil {
		return res, err
	}
	return res, nil
}

func (r *Registrar) placeholder() string {
	if r.Placeholder == "" {
		return DefaultPlaceholder
	}
	return r.Placeholder
}

type keyState int

const (
	keyAbsent keyState = iota
	keyPlaceholder
	keyResolved
)

// keyStates classifies every key in lines. A key with at least one real
// value is resolved.
func keyStates(lines []string, placeholder string) map[string]keyState {
	states := map[string]keyState{}
	for _, line := range lines {
		e, ok := parseLine(line)
		if !ok {
			continue
		}
		if e.Value != placeholder {
			states[e.Key] = keyResolved
		} else if states[e.Key] == keyAbsent {
			states[e.Key] = keyPlaceholder
		}
	}
	return states
}

// rebuild drops the spark's old block comment (with one blank line after it)
// and the stale placeholder lines, then appends a fresh block.
func rebuild(lines []string, plugin string, stale map[string]bool, toAdd []manifest.EnvVar, placeholder string) string {
	header := BlockComment(plugin)

	out := make([]string, 0, len(lines))
	dropBlank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == header {
			dropBlank = true
			continue
		}
		if dropBlank {
			dropBlank = false
			if trimmed == "" {
				continue
			}
		}
		if e, ok := parseLine(line); ok && stale[e.Key] && e.Value == placeholder {
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}

	var b strings.Builder
	for _, line := range out {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\n" + header + "\n")
	for _, v := range toAdd {
		b.WriteString(fmt.Sprintf("%s=%q", v.Name, placeholder))
		if v.Comment != "" {
			b.WriteString(" # " + v.Comment)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// splitLines splits content into lines without their terminators. A final
// newline does not produce an empty last line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
