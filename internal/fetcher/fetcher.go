package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Arete-Innovations/blast-sub000/internal/manifest"
)

// WorkDirPrefix names working directories: <root>/_temp_spark_<name>.
const WorkDirPrefix = "_temp_spark_"

var (
	ErrInvalidSource = errors.New("invalid source")
	ErrFetchFailed   = errors.New("fetch failed")
	ErrFetchTimeout  = errors.New("fetch timed out")
)

// Cloner copies a remote repository into dir. dir does not exist on entry.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) error
}

// Fetcher fetches sparks into working directories under Root.
type Fetcher struct {
	Root   string
	Cloner Cloner
	Logger *slog.Logger
}

// New returns a Fetcher that clones with git using opts.
func New(root string, opts Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{
		Root:   root,
		Cloner: &GitCloner{Options: opts, Logger: logger},
		Logger: logger,
	}
}

// Workspace is a fetched spark waiting to be installed.
type Workspace struct {
	Name   string // spark name derived from the source URL
	Dir    string // working directory holding the spark contents
	Source string // URL that was cloned
}

// Remove deletes the working directory.
func (w *Workspace) Remove() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// PluginName derives the spark name from the last path segment of a source
// URL, ignoring trailing slashes and a .git suffix.
func PluginName(source string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(source), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidSource)
	}
	seg := trimmed[strings.LastIndexAny(trimmed, "/:")+1:]
	seg = strings.TrimSuffix(seg, ".git")
	if !manifest.NamePattern.MatchString(seg) {
		return "", fmt.Errorf("%w: %q does not end in a valid spark name (got %q)", ErrInvalidSource, source, seg)
	}
	return seg, nil
}

// WorkDir returns the working directory used for the named spark.
func WorkDir(root, name string) string {
	return filepath.Join(root, WorkDirPrefix+name)
}

// Fetch clones the first source that succeeds into the spark's working
// directory. Later sources are mirrors of the first and are only tried when
// an earlier one fails. The spark name always comes from the first source.
func (f *Fetcher) Fetch(ctx context.Context, sources ...string) (*Workspace, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no source URL", ErrInvalidSource)
	}
	name, err := PluginName(sources[0])
	if err != nil {
		return nil, err
	}
	dir := WorkDir(f.Root, name)

	var errs []error
	for _, src := range sources {
		// A leftover directory from an earlier attempt is discarded.
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("%w: removing stale working directory %s: %v", ErrFetchFailed, dir, err)
		}

		f.Logger.Info("cloning spark", "name", name, "source", src, "dir", dir)
		if err := f.Cloner.Clone(ctx, src, dir); err != nil {
			f.Logger.Warn("clone failed", "source", src, "error", err)
			errs = append(errs, err)
			continue
		}

		if err := os.RemoveAll(filepath.Join(dir, ".git")); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("%w: removing VCS metadata: %v", ErrFetchFailed, err)
		}
		return &Workspace{Name: name, Dir: dir, Source: src}, nil
	}

	_ = os.RemoveAll(dir)
	return nil, classify(errs)
}

// classify makes sure the joined clone errors carry a fetch error kind.
func classify(errs []error) error {
	joined := errors.Join(errs...)
	for _, err := range errs {
		if !errors.Is(err, ErrFetchTimeout) && !errors.Is(err, ErrFetchFailed) {
			return fmt.Errorf("%w: %w", ErrFetchFailed, joined)
		}
	}
	return joined
}
