package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Arete-Innovations/blast-sub000/internal/descriptor"
	"github.com/Arete-Innovations/blast-sub000/internal/envfile"
	"github.com/Arete-Innovations/blast-sub000/internal/fetcher"
	"github.com/Arete-Innovations/blast-sub000/internal/linker"
	"github.com/Arete-Innovations/blast-sub000/internal/manifest"
	"github.com/Arete-Innovations/blast-sub000/internal/merger"
	"github.com/Arete-Innovations/blast-sub000/internal/migration"
	"github.com/Arete-Innovations/blast-sub000/internal/project"
)

// Options configure an Installer.
type Options struct {
	Project *project.Project

	Fetch  fetcher.Options
	Cloner fetcher.Cloner // nil clones with git

	Placeholder      string         // env placeholder; empty uses envfile.DefaultPlaceholder
	Editor           envfile.Editor // nil runs non-interactively
	MigrationCommand string         // empty uses migration.DefaultCommand

	Progress   io.Writer // one line per stage; nil discards
	ToolOutput io.Writer // migration tool output; nil discards
	Logger     *slog.Logger
}

// Installer installs sparks into one project.
type Installer struct {
	opts    Options
	fetcher *fetcher.Fetcher
	logger  *slog.Logger
}

// New returns an Installer for opts.Project.
func New(opts Options) *Installer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Placeholder == "" {
		opts.Placeholder = envfile.DefaultPlaceholder
	}

	f := fetcher.New(opts.Project.Root, opts.Fetch, logger)
	if opts.Cloner != nil {
		f.Cloner = opts.Cloner
	}
	return &Installer{opts: opts, fetcher: f, logger: logger}
}

func (in *Installer) progress(format string, args ...any) {
	fmt.Fprintf(in.opts.Progress, format+"\n", args...)
}

// Add installs the spark at source. The working directory is removed before
// Add returns. The returned report is never nil; a stopped install carries a
// Failure.
func (in *Installer) Add(ctx context.Context, source string) *Report {
	rep := &Report{Source: source, Stage: Fetching}
	p := in.opts.Project

	in.progress("Fetching %s...", source)
	ws, err := in.fetcher.Fetch(ctx, source)
	if err != nil {
		return rep.fail(Fetching, err)
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			in.logger.Warn("could not remove working directory", "dir", ws.Dir, "error", err)
		}
	}()
	rep.Spark = ws.Name

	rep.Stage = Validating
	m, err := manifest.Load(ws.Dir)
	if err != nil {
		return rep.fail(Validating, err)
	}
	rep.Manifest = summarize(m)
	rep.Warnings = append(rep.Warnings, m.Warnings...)
	if m.Name != ws.Name {
		rep.warn("manifest name %q differs from repository name; installing as %q", m.Name, ws.Name)
	}
	in.progress("  ✓ manifest: %s", m.Summary())

	rep.Stage = Recording
	rep.Recorded, err = descriptor.Record(p.DescriptorPath(), ws.Name, source)
	if err != nil {
		return rep.fail(Recording, err)
	}
	if rep.Recorded {
		in.progress("  ✓ recorded in %s", project.DescriptorFile)
	}

	rep.Stage = Merging
	if len(m.Dependencies) > 0 {
		mr, err := merger.MergeFile(p.BuildManifestPath(), m.Dependencies)
		rep.setDependencies(mr.Changes)
		if err != nil {
			return rep.fail(Merging, err)
		}
		for _, c := range mr.Skipped() {
			rep.warn("dependency %s not merged: %s", c.Name, c.Reason())
		}
		in.progress("  ✓ dependencies: %s", countDecisions(mr))
	}

	rep.Stage = EnvRegistering
	var envUnresolved []string
	if len(m.RequiredEnv) > 0 {
		reg := &envfile.Registrar{
			Path:        p.EnvPath(),
			Placeholder: in.opts.Placeholder,
			Editor:      in.opts.Editor,
			Logger:      in.logger,
		}
		res, err := reg.Register(ctx, ws.Name, m.RequiredEnv)
		if err != nil {
			return rep.fail(EnvRegistering, err)
		}
		rep.Env = &EnvSummary{Written: res.Written, Added: res.Added}
		envUnresolved = res.Unresolved
		if res.EditorErr != nil {
			rep.warn("could not open an editor: %v; edit %s by hand", res.EditorErr, p.EnvPath())
		}
		if len(res.Added) > 0 {
			in.progress("  ✓ environment: %s", strings.Join(res.Added, ", "))
		}
	}

	rep.Stage = Integrating
	lr, err := (&linker.Integrator{Dir: p.SparksDir(), Logger: in.logger}).Integrate(ws.Dir, ws.Name)
	if err != nil {
		return rep.fail(Integrating, err)
	}
	rep.Integration = &IntegrationSummary{
		Dest:            lr.Dest,
		PreviousVersion: lr.PreviousVersion,
		Change:          linker.Classify(lr.PreviousVersion, m.Version),
		ModuleAdded:     lr.ModuleAdded,
		RegistryUpdated: lr.RegistryUpdated,
	}
	in.progress("  ✓ sources: %s", lr.Dest)

	rep.Stage = Migrating
	mig := in.runner(ws.Name, lr.Dest).Run(ctx, m.Migrations)
	rep.Migrations = mig.Results

	unresolved := mig.Unresolved
	if unresolved == nil {
		unresolved = envUnresolved
	}
	if len(unresolved) > 0 {
		rep.Unresolved = unresolved
		rep.warn("placeholder values not replaced in %s: %s", project.EnvFile, strings.Join(unresolved, ", "))
	}
	for _, r := range mig.Results {
		if r.Outcome == migration.Failed {
			in.progress("  ✗ migration %s: %s", r.Name, r.Reason)
		}
	}

	rep.Stage = Done
	return rep
}

func (in *Installer) runner(spark, dir string) *migration.Runner {
	r := &migration.Runner{
		Spark:       spark,
		SparkDir:    dir,
		ProjectDir:  in.opts.Project.Root,
		Placeholder: in.opts.Placeholder,
		Command:     in.opts.MigrationCommand,
		Stdout:      in.opts.ToolOutput,
		Stderr:      in.opts.ToolOutput,
		Logger:      in.logger,
	}
	if _, err := os.Stat(in.opts.Project.EnvPath()); err == nil {
		r.EnvFile = in.opts.Project.EnvPath()
	}
	return r
}

// Migrate re-runs the migrations of an installed spark.
func (in *Installer) Migrate(ctx context.Context, name string) (migration.Report, error) {
	dir := in.opts.Project.SparkDir(name)
	m, err := manifest.Load(dir)
	if err != nil {
		return migration.Report{}, fmt.Errorf("loading installed spark %s: %w", name, err)
	}
	return in.runner(name, dir).Run(ctx, m.Migrations), nil
}

func summarize(m *manifest.Manifest) *ManifestSummary {
	return &ManifestSummary{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Author:      m.Author,
		License:     m.License,
	}
}
