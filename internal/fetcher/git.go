package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Options tune the git clone.
type Options struct {
	Branch         string        // empty clones the remote HEAD
	ConnectTimeout time.Duration // http.connectTimeout
	LowSpeedTime   time.Duration // http.lowSpeedTime
	LowSpeedLimit  int           // http.lowSpeedLimit, bytes per second
}

// DefaultOptions returns the clone settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 30 * time.Second,
		LowSpeedTime:   60 * time.Second,
		LowSpeedLimit:  1000,
	}
}

// timeoutMarkers are fragments of git/curl messages that mean a timeout.
var timeoutMarkers = []string{"timed out", "too slow", "timeout was reached"}

// GitCloner clones with the git CLI.
type GitCloner struct {
	Options Options
	Logger  *slog.Logger
}

// Args returns the git arguments for a shallow, single-branch clone.
func (g *GitCloner) Args(url, dir string) []string {
	args := []string{"clone", "--depth=1", "--single-branch"}
	if g.Options.Branch != "" {
		args = append(args, "--branch", g.Options.Branch)
	}
	args = append(args,
		"--config", "http.connectTimeout="+seconds(g.Options.ConnectTimeout),
		"--config", "http.lowSpeedLimit="+strconv.Itoa(max(g.Options.LowSpeedLimit, 1)),
		"--config", "http.lowSpeedTime="+seconds(g.Options.LowSpeedTime),
		"--quiet",
		url, dir,
	)
	return args
}

// Clone runs git clone. Credential prompts are disabled so an unreachable
// private repository fails instead of waiting for input.
func (g *GitCloner) Clone(ctx context.Context, url, dir string) error {
	if err := ensureGit(); err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	args := g.Args(url, dir)
	if g.Logger != nil {
		g.Logger.Debug("running git", "args", args)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	msg := strings.TrimSpace(string(output))
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(msg) {
		return fmt.Errorf("%w: cloning %s: %s", ErrFetchTimeout, url, msg)
	}
	return fmt.Errorf("%w: cloning %s: %v\n%s", ErrFetchFailed, url, err, msg)
}

func isTimeout(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range timeoutMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func seconds(d time.Duration) string {
	s := int(d / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// ensureGit checks that git is available on PATH.
func ensureGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git is required but not found in PATH")
	}
	return nil
}
