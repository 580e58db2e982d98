package migration

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Arete-Innovations/blast-sub000/internal/envfile"
	"github.com/Arete-Innovations/blast-sub000/internal/manifest"
)

// DefaultCommand is the migration tool used when none is configured.
const DefaultCommand = "diesel"

// appliedMarker precedes the name of each migration the tool applies.
const appliedMarker = "Running migration"

// Outcome classifies one migration entry.
type Outcome int

const (
	Applied Outcome = iota
	NoopOk
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case NoopOk:
		return "noop"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText renders the outcome by name in JSON and YAML reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the outcome of one migration entry.
type Result struct {
	Name    string   `json:"name" yaml:"name"`
	Path    string   `json:"path" yaml:"path"`
	Outcome Outcome  `json:"outcome" yaml:"outcome"`
	Applied []string `json:"applied,omitempty" yaml:"applied,omitempty"`
	Reason  string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Report collects the results of one run.
type Report struct {
	Results []Result `json:"results" yaml:"results"`
	// Unresolved lists the spark's .env keys that still held the placeholder
	// when the run started.
	Unresolved []string `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// Failed reports whether any migration failed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Outcome == Failed {
			return true
		}
	}
	return false
}

// Runner runs the migrations of one installed spark.
type Runner struct {
	Spark       string // spark name; selects <SPARK>_DATABASE_URL
	SparkDir    string // installed spark directory; migration paths are relative to it
	ProjectDir  string // working directory of the tool
	EnvFile     string // host .env overlaid on the process environment; may be empty
	Placeholder string // defaults to envfile.DefaultPlaceholder
	Command     string // defaults to DefaultCommand

	Stdout io.Writer // tool output is streamed here as well; nil discards
	Stderr io.Writer
	Logger *slog.Logger

	environ func() []string
}

// Run runs each migration entry in order. A failing entry does not stop the
// remaining ones.
func (r *Runner) Run(ctx context.Context, migrations []manifest.Migration) Report {
	logger := r.logger()
	var report Report

	report.Unresolved = r.unresolved()
	if len(report.Unresolved) > 0 {
		logger.Warn("placeholder values still present; migrations may fail",
			"spark", r.Spark, "keys", report.Unresolved)
	}
	if len(migrations) == 0 {
		return report
	}

	env := r.buildEnv()
	dbURL := lookupEnv(env, envfile.Key(r.Spark, "DATABASE_URL"))
	if dbURL != "" {
		env = setEnv(env, "DATABASE_URL", dbURL)
		logger.Info("using spark database URL", "spark", r.Spark, "url", MaskURL(dbURL))
	} else if u := lookupEnv(env, "DATABASE_URL"); u != "" {
		logger.Info("using DATABASE_URL", "url", MaskURL(u))
	} else {
		logger.Warn("DATABASE_URL is not set")
	}

	bin, lookErr := exec.LookPath(r.command())

	for _, m := range migrations {
		res := Result{Name: m.Name, Path: m.Path}
		dir := filepath.Join(r.SparkDir, filepath.FromSlash(m.Path))

		info, err := os.Stat(dir)
		switch {
		case err != nil:
			res.Outcome, res.Reason = Skipped, "not found"
		case !info.IsDir():
			res.Outcome, res.Reason = Skipped, "not a directory"
		case lookErr != nil:
			res.Outcome, res.Reason = Failed, fmt.Sprintf("migration tool %s not found", r.command())
		default:
			res = r.runOne(ctx, bin, dir, dbURL, env, res)
		}

		logger.Info("migration finished", "spark", r.Spark, "migration", res.Name,
			"outcome", res.Outcome.String(), "reason", res.Reason)
		report.Results = append(report.Results, res)
	}
	return report
}

// Args returns the tool arguments for one migration directory.
func Args(dir, dbURL string) []string {
	args := []string{"migration", "run", "--migration-dir", dir}
	if dbURL != "" {
		args = append(args, "--database-url", dbURL)
	}
	return args
}

func (r *Runner) runOne(ctx context.Context, bin, dir, dbURL string, env []string, res Result) Result {
	cmd := exec.CommandContext(ctx, bin, Args(dir, dbURL)...)
	cmd.Dir = r.ProjectDir
	cmd.Env = env

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(writerOrDiscard(r.Stdout), &stdoutBuf)
	cmd.Stderr = io.MultiWriter(writerOrDiscard(r.Stderr), &stderrBuf)

	err := cmd.Run()
	if err != nil {
		res.Outcome = Failed
		res.Reason = failureReason(err, stderrBuf.String())
		return res
	}

	res.Applied = ParseApplied(stdoutBuf.String())
	if len(res.Applied) == 0 {
		res.Outcome = NoopOk
	} else {
		res.Outcome = Applied
	}
	return res
}

// ParseApplied returns the migration names announced by "Running migration
// <name>" lines.
func ParseApplied(output string) []string {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		_, after, found := strings.Cut(scanner.Text(), appliedMarker)
		if !found {
			continue
		}
		if name := strings.TrimSpace(after); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// MaskURL hides everything after the scheme of a database URL.
func MaskURL(u string) string {
	if scheme, _, found := strings.Cut(u, "://"); found && scheme != "" {
		return scheme + "://<masked>"
	}
	return "<masked>"
}

func failureReason(err error, stderr string) string {
	msg := MaskCredentials(lastLine(stderr))
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg == "" {
			return fmt.Sprintf("exit status %d", exitErr.ExitCode())
		}
		return fmt.Sprintf("exit status %d: %s", exitErr.ExitCode(), msg)
	}
	if msg == "" {
		return err.Error()
	}
	return err.Error() + ": " + msg
}

// MaskCredentials masks any URL with a scheme inside s.
func MaskCredentials(s string) string {
	fields := strings.Fields(s)
	changed := false
	for i, f := range fields {
		if strings.Contains(f, "://") {
			fields[i] = MaskURL(f)
			changed = true
		}
	}
	if !changed {
		return s
	}
	return strings.Join(fields, " ")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func (r *Runner) unresolved() []string {
	if r.EnvFile == "" {
		return nil
	}
	keys, err := envfile.Unresolved(r.EnvFile, r.Spark, r.placeholder())
	if err != nil {
		r.logger().Debug("could not check placeholders", "error", err)
		return nil
	}
	return keys
}

// buildEnv returns the process environment overlaid with the host .env.
func (r *Runner) buildEnv() []string {
	environ := r.environ
	if environ == nil {
		environ = os.Environ
	}
	base := environ()
	if r.EnvFile == "" {
		return base
	}
	env, err := envfile.Environ(r.EnvFile, base)
	if err != nil {
		r.logger().Warn("not loading env file", "file", r.EnvFile, "error", err)
		return base
	}
	return env
}

func (r *Runner) command() string {
	if r.Command == "" {
		return DefaultCommand
	}
	return r.Command
}

func (r *Runner) placeholder() string {
	if r.Placeholder == "" {
		return envfile.DefaultPlaceholder
	}
	return r.Placeholder
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func lookupEnv(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(env[i], prefix); ok {
			return v
		}
	}
	return ""
}
