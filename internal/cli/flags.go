package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Log flag names and values.
const (
	logFormatFlag = "logformat"
	logLevelFlag  = "loglevel"
	logOutputFlag = "logoutput"
)

// enumFlag is a string flag restricted to a fixed set of values. The first
// value is the default.
type enumFlag struct {
	options []string
	value   string
}

func newEnum(options ...string) *enumFlag {
	if len(options) == 0 {
		panic("enum flag needs at least one option")
	}
	return &enumFlag{options: options, value: options[0]}
}

func (e *enumFlag) String() string { return e.value }

func (e *enumFlag) Set(v string) error {
	v = strings.ToLower(v)
	if !slices.Contains(e.options, v) {
		return fmt.Errorf("must be one of %s", strings.Join(e.options, ", "))
	}
	e.value = v
	return nil
}

func (e *enumFlag) Type() string { return "enum" }

var (
	logFormat = newEnum("text", "json")
	logLevel  = newEnum("warn", "debug", "info", "error")
	logOutput = newEnum("stderr", "stdout")
)

func registerLogFlags(fs *pflag.FlagSet) {
	fs.Var(logFormat, logFormatFlag, "log format: text or json")
	fs.Var(logLevel, logLevelFlag, "log level: debug, info, warn or error")
	fs.Var(logOutput, logOutputFlag, "log destination: stderr or stdout")
}

// baseLogger builds the slog logger selected by the log flags.
func baseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel.String())); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	out := cmd.ErrOrStderr()
	if logOutput.String() == "stdout" {
		out = cmd.OutOrStdout()
	}

	opts := &slog.HandlerOptions{Level: level}
	if logFormat.String() == "json" {
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	}
	return slog.New(slog.NewTextHandler(out, opts)), nil
}
