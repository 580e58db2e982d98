package installer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Arete-Innovations/blast-sub000/internal/linker"
	"github.com/Arete-Innovations/blast-sub000/internal/merger"
	"github.com/Arete-Innovations/blast-sub000/internal/migration"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFatal   = 1 // nothing was recorded, or the descriptor is unreadable
	ExitPartial = 2 // a stage after recording failed, or a migration failed
	ExitUsage   = 3
)

// Report is the outcome of one install.
type Report struct {
	Source       string              `json:"source" yaml:"source"`
	Spark        string              `json:"spark,omitempty" yaml:"spark,omitempty"`
	Stage        Stage               `json:"stage" yaml:"stage"`
	Failure      *Failure            `json:"failure,omitempty" yaml:"failure,omitempty"`
	Manifest     *ManifestSummary    `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Recorded     bool                `json:"recorded" yaml:"recorded"`
	Dependencies []DependencyChange  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Env          *EnvSummary         `json:"env,omitempty" yaml:"env,omitempty"`
	Integration  *IntegrationSummary `json:"integration,omitempty" yaml:"integration,omitempty"`
	Migrations   []migration.Result  `json:"migrations,omitempty" yaml:"migrations,omitempty"`
	Unresolved   []string            `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Warnings     []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ManifestSummary is the manifest part of a report.
type ManifestSummary struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
	Author      string `json:"author" yaml:"author"`
	License     string `json:"license" yaml:"license"`
}

// DependencyChange is one merger decision.
type DependencyChange struct {
	Name     string          `json:"name" yaml:"name"`
	Decision merger.Decision `json:"decision" yaml:"decision"`
	Added    []string        `json:"added,omitempty" yaml:"added,omitempty"`
	Reason   string          `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// EnvSummary is the env registration part of a report.
type EnvSummary struct {
	Written bool     `json:"written" yaml:"written"`
	Added   []string `json:"added,omitempty" yaml:"added,omitempty"`
}

// IntegrationSummary is the source integration part of a report.
type IntegrationSummary struct {
	Dest            string               `json:"dest" yaml:"dest"`
	PreviousVersion string               `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
	Change          linker.VersionChange `json:"change" yaml:"change"`
	ModuleAdded     bool                 `json:"module_added" yaml:"module_added"`
	RegistryUpdated bool                 `json:"registry_updated" yaml:"registry_updated"`
}

func (r *Report) fail(stage Stage, err error) *Report {
	r.Stage = stage
	r.Failure = newFailure(stage, err)
	return r
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) setDependencies(changes []merger.Change) {
	r.Dependencies = make([]DependencyChange, 0, len(changes))
	for _, c := range changes {
		r.Dependencies = append(r.Dependencies, DependencyChange{
			Name:     c.Name,
			Decision: c.Decision,
			Added:    c.Added,
			Reason:   c.Reason(),
		})
	}
}

// MigrationFailed reports whether any migration failed.
func (r *Report) MigrationFailed() bool {
	for _, m := range r.Migrations {
		if m.Outcome == migration.Failed {
			return true
		}
	}
	return false
}

// ExitCode maps the report to the process exit code.
func (r *Report) ExitCode() int {
	switch {
	case r.Failure != nil && !r.Failure.Partial():
		return ExitFatal
	case r.Failure != nil, r.MigrationFailed():
		return ExitPartial
	}
	return ExitOK
}

// BatchReport is the outcome of installing every recorded spark.
type BatchReport struct {
	Installs []*Report `json:"installs" yaml:"installs"`
}

// ExitCode is ExitPartial if any install did not succeed.
func (b *BatchReport) ExitCode() int {
	for _, r := range b.Installs {
		if r.ExitCode() != ExitOK {
			return ExitPartial
		}
	}
	return ExitOK
}

var printer = message.NewPrinter(language.English)

func countDecisions(r merger.Report) string {
	counts := map[merger.Decision]int{}
	for _, c := range r.Changes {
		counts[c.Decision]++
	}
	var parts []string
	for _, d := range []merger.Decision{merger.Inserted, merger.Promoted, merger.FeaturesAdded, merger.Unchanged, merger.Skipped} {
		if n := counts[d]; n > 0 {
			parts = append(parts, printer.Sprintf("%d %s", n, d))
		}
	}
	return strings.Join(parts, ", ")
}

// Format is a report output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// TextWriter is implemented by values with a human-readable rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// Render writes v to w in format.
func Render(w io.Writer, format Format, v TextWriter) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return v.WriteText(w)
}

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	name := r.Spark
	if name == "" {
		name = r.Source
	}
	if r.Manifest != nil {
		fmt.Fprintf(w, "Spark %s %s by %s (%s)\n", name, r.Manifest.Version, r.Manifest.Author, r.Manifest.License)
	} else {
		fmt.Fprintf(w, "Spark %s\n", name)
	}
	fmt.Fprintf(w, "  source: %s\n", r.Source)
	if r.Stage > Recording || (r.Stage == Recording && r.Failure == nil) {
		if r.Recorded {
			fmt.Fprintln(w, "  recorded: yes")
		} else {
			fmt.Fprintln(w, "  recorded: already present")
		}
	}

	if len(r.Dependencies) > 0 {
		fmt.Fprintln(w, "Dependencies:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, d := range r.Dependencies {
			detail := strings.Join(d.Added, ", ")
			if d.Reason != "" {
				detail = d.Reason
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", d.Name, d.Decision, detail)
		}
		tw.Flush()
	}

	if r.Env != nil && len(r.Env.Added) > 0 {
		fmt.Fprintln(w, "Environment:")
		for _, k := range r.Env.Added {
			fmt.Fprintf(w, "  %s\n", k)
		}
	}

	if r.Integration != nil {
		line := fmt.Sprintf("Sources: %s (%s", r.Integration.Dest, r.Integration.Change)
		if r.Integration.PreviousVersion != "" {
			line += " from " + r.Integration.PreviousVersion
		}
		fmt.Fprintln(w, line+")")
	}

	if len(r.Migrations) > 0 {
		fmt.Fprintln(w, "Migrations:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, m := range r.Migrations {
			detail := strings.Join(m.Applied, ", ")
			if m.Reason != "" {
				detail = m.Reason
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Name, m.Outcome, detail)
		}
		tw.Flush()
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warning)
	}

	switch {
	case r.Failure != nil:
		fmt.Fprintf(w, "✗ %s\n", r.Failure.Error())
	case r.MigrationFailed():
		fmt.Fprintln(w, "✗ installed with failed migrations; fix them and run the install again")
	default:
		fmt.Fprintf(w, "✓ %s installed\n", name)
	}
	return nil
}

// WriteText renders every install followed by a summary line.
func (b *BatchReport) WriteText(w io.Writer) error {
	ok := 0
	for i, r := range b.Installs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := r.WriteText(w); err != nil {
			return err
		}
		if r.ExitCode() == ExitOK {
			ok++
		}
	}
	if len(b.Installs) == 0 {
		fmt.Fprintln(w, "No sparks recorded.")
		return nil
	}
	fmt.Fprintln(w)
	printer.Fprintf(w, "%d of %d sparks installed.\n", ok, len(b.Installs))
	return nil
}
