// Package doctor runs health checks on a blast project: the files an
// install touches, the external tools it shells out to, placeholder values
// left in .env and, on request, the database connection.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arete-Innovations/blast-sub000/internal/descriptor"
	"github.com/Arete-Innovations/blast-sub000/internal/envfile"
	"github.com/Arete-Innovations/blast-sub000/internal/linker"
	"github.com/Arete-Innovations/blast-sub000/internal/migration"
	"github.com/Arete-Innovations/blast-sub000/internal/platform"
	"github.com/Arete-Innovations/blast-sub000/internal/project"
)

// DefaultDBTimeout bounds the database check.
const DefaultDBTimeout = 5 * time.Second

// Status is the outcome of one check.
type Status string

const (
	OK   Status = " OK "
	Miss Status = "MISS"
	Warn Status = "WARN"
	Fail Status = "FAIL"
	Fix  Status = "FIX "
)

// Options configure a run.
type Options struct {
	Project          *project.Project // nil when no project was found
	Placeholder      string
	MigrationCommand string
	CheckDB          bool
	DBTimeout        time.Duration
	Fix              bool // tighten .env permissions

	// Ping connects to url. Defaults to a pgx pool ping.
	Ping     func(ctx context.Context, url string) error
	LookPath func(file string) (string, error)
	Getenv   func(key string) string
}

// Summary counts what went wrong.
type Summary struct {
	Failures int // MISS and FAIL lines
	Warnings int
}

// Err returns an error when any check failed.
func (s Summary) Err() error {
	if s.Failures == 0 {
		return nil
	}
	return fmt.Errorf("%d check(s) failed", s.Failures)
}

type doctor struct {
	w    io.Writer
	opts Options
	sum  Summary
}

func (d *doctor) report(status Status, format string, args ...any) {
	switch status {
	case Miss, Fail:
		d.sum.Failures++
	case Warn:
		d.sum.Warnings++
	}
	fmt.Fprintf(d.w, "  [%s] %s\n", status, fmt.Sprintf(format, args...))
}

// Run writes every check to w.
func Run(ctx context.Context, w io.Writer, opts Options) Summary {
	if opts.Placeholder == "" {
		opts.Placeholder = envfile.DefaultPlaceholder
	}
	if opts.MigrationCommand == "" {
		opts.MigrationCommand = migration.DefaultCommand
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Ping == nil {
		opts.Ping = Ping
	}
	if opts.DBTimeout <= 0 {
		opts.DBTimeout = DefaultDBTimeout
	}

	d := &doctor{w: w, opts: opts}
	d.checkTools()
	if opts.Project == nil {
		fmt.Fprintln(w, "Project check:")
		d.report(Miss, "%s not found in this directory or any parent", project.DescriptorFile)
		return d.sum
	}
	d.checkProject()
	d.checkSparks()
	env := d.checkEnv()
	if opts.CheckDB {
		d.checkDB(ctx, env)
	}
	return d.sum
}

func (d *doctor) checkTools() {
	fmt.Fprintln(d.w, "Tools check:")
	for _, name := range []string{"git", d.opts.MigrationCommand} {
		path, err := d.opts.LookPath(name)
		if err != nil {
			d.report(Miss, "%s not found", name)
			continue
		}
		d.report(OK, "%s found at %s", name, path)
	}
}

func (d *doctor) checkProject() {
	p := d.opts.Project
	fmt.Fprintf(d.w, "Project check: %s\n", p.Root)
	d.checkFile(p.DescriptorPath())
	d.checkFile(p.BuildManifestPath())

	settings, err := p.LoadSettings()
	if err != nil {
		d.report(Fail, "%s: %v", project.DescriptorFile, err)
	} else {
		d.report(OK, "environment %s", settings.Environment)
	}

	info, err := os.Stat(p.EnvPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		d.report(Miss, "%s does not exist", p.EnvPath())
	case err != nil:
		d.report(Fail, "%s: %v", p.EnvPath(), err)
	case info.Mode().Perm()&0o077 != 0:
		d.report(Warn, "%s has permissions %o (expected %o)", p.EnvPath(), info.Mode().Perm(), platform.FilePermSecure)
		if d.opts.Fix {
			if err := platform.Chmod(p.EnvPath(), platform.FilePermSecure); err != nil {
				d.report(Fail, "could not fix permissions on %s: %v", p.EnvPath(), err)
				return
			}
			d.report(Fix, "fixed permissions on %s to %o", p.EnvPath(), platform.FilePermSecure)
		}
	default:
		d.report(OK, "%s (permissions %o)", p.EnvPath(), info.Mode().Perm())
	}
}

func (d *doctor) checkFile(path string) {
	if _, err := os.Stat(path); err != nil {
		d.report(Miss, "%s does not exist", path)
		return
	}
	d.report(OK, "%s exists", path)
}

func (d *doctor) checkSparks() {
	p := d.opts.Project
	fmt.Fprintln(d.w, "Sparks check:")

	sparks, err := descriptor.List(p.DescriptorPath())
	if err != nil {
		d.report(Fail, "%v", err)
		return
	}
	index := filepath.Join(p.SparksDir(), linker.ModIndexFile)
	modules, err := linker.Modules(index)
	if err != nil && len(sparks) > 0 {
		d.report(Miss, "%s does not exist", index)
	}
	if len(sparks) == 0 {
		fmt.Fprintln(d.w, "  [INFO] no sparks recorded")
		return
	}

	for _, s := range sparks {
		dir := p.SparkDir(s.Name)
		if _, err := os.Stat(dir); err != nil {
			d.report(Miss, "%s: not installed (run `blast spark install`)", s.Name)
			continue
		}
		if !slices.Contains(modules, s.Name) {
			d.report(Warn, "%s: installed but not declared in %s", s.Name, linker.ModIndexFile)
			continue
		}
		version := linker.InstalledVersion(dir)
		if version == "" {
			version = "unknown version"
		}
		d.report(OK, "%s %s", s.Name, version)
	}
}

// checkEnv reports placeholders still present and returns the .env
// variables, or nil when the file cannot be read.
func (d *doctor) checkEnv() map[string]string {
	p := d.opts.Project
	fmt.Fprintln(d.w, "Environment check:")

	entries, err := envfile.ParseFile(p.EnvPath())
	if err != nil {
		d.report(Miss, "%v", err)
		return nil
	}
	var unresolved []string
	for _, e := range entries {
		if e.Value == d.opts.Placeholder && !slices.Contains(unresolved, e.Key) {
			unresolved = append(unresolved, e.Key)
		}
	}
	for _, k := range unresolved {
		d.report(Warn, "%s still holds the placeholder value", k)
	}
	if len(unresolved) == 0 {
		d.report(OK, "no placeholder values")
	}

	env, err := envfile.Load(p.EnvPath())
	if err != nil {
		d.report(Fail, "%v", err)
		return nil
	}
	if url := d.databaseURL(env); url != "" {
		d.report(OK, "DATABASE_URL is set (%s)", migration.MaskURL(url))
	} else {
		d.report(Warn, "DATABASE_URL is not set; migrations will fail")
	}
	return env
}

func (d *doctor) databaseURL(env map[string]string) string {
	if url := d.opts.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return env["DATABASE_URL"]
}

func (d *doctor) checkDB(ctx context.Context, env map[string]string) {
	fmt.Fprintln(d.w, "Database check:")
	url := d.databaseURL(env)
	if url == "" || url == d.opts.Placeholder {
		d.report(Miss, "DATABASE_URL is not set")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.DBTimeout)
	defer cancel()
	if err := d.opts.Ping(ctx, url); err != nil {
		d.report(Fail, "%s: %s", migration.MaskURL(url), migration.MaskCredentials(err.Error()))
		return
	}
	d.report(OK, "connected to %s", migration.MaskURL(url))
}

// Ping opens a connection pool to url and pings the server.
func Ping(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping db: %w", err)
	}
	return nil
}
