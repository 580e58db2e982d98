package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the manifest file expected at the root of a spark repository.
const FileName = "manifest.toml"

// Defaults applied to [[migrations]] entries.
const (
	DefaultMigrationName = "unnamed"
	DefaultMigrationPath = "migrations"
)

// legacyFeaturesKey holds the historical form of [dependencies]:
// features = [{ crate_name = "serde", features = ["derive"] }].
const legacyFeaturesKey = "features"

// NamePattern is the pattern every spark name must match.
var NamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// requiredFields are the [spark] keys every manifest must set, in the order
// they are reported.
var requiredFields = []string{"name", "version", "description", "author", "license"}

// Manifest is a validated spark manifest.
type Manifest struct {
	Name        string
	Version     string
	Description string
	Author      string
	License     string

	Dependencies []Dependency
	RequiredEnv  []EnvVar
	Migrations   []Migration

	// Warnings are non-fatal findings, such as a version that is not semver.
	Warnings []string
}

// Dependency is a build dependency declared by a spark, normalized from any
// of the accepted shapes.
type Dependency struct {
	Name     string
	Version  string   // empty when the manifest gives no version
	Features []string // unique, in declaration order

	// Extra holds any other keys of a table-form declaration, such as
	// default-features or git, exactly as decoded.
	Extra map[string]any
}

// EnvVar is a required environment variable with its optional comment.
type EnvVar struct {
	Name    string
	Comment string
}

// Migration is a [[migrations]] entry.
type Migration struct {
	Name string
	Path string // relative to the spark directory
}

// SemVer parses the manifest version. It returns nil when the version is not
// semantic versioning.
func (m *Manifest) SemVer() *semver.Version {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil
	}
	return v
}

// Summary returns a one-line description such as "demo 1.0.0 by Jane (MIT)".
func (m *Manifest) Summary() string {
	return fmt.Sprintf("%s %s by %s (%s)", m.Name, m.Version, m.Author, m.License)
}

// Load reads and validates the manifest at the root of dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestMissing, path)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates manifest content. Every missing required field is
// reported as its own *ValidationError, joined with errors.Join.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid TOML: %v", err)}
	}

	spark, _ := raw["spark"].(map[string]any)
	var missing []error
	fields := make(map[string]string, len(requiredFields))
	for _, f := range requiredFields {
		s, ok := spark[f].(string)
		if !ok || strings.TrimSpace(s) == "" {
			missing = append(missing, &ValidationError{Field: "spark." + f, Reason: "missing required field"})
			continue
		}
		fields[f] = s
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	issues, err := validateSchema(raw)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		errs := make([]error, len(issues))
		for i, issue := range issues {
			errs[i] = &ValidationError{Field: issueField(issue.Path), Reason: issue.Message}
		}
		return nil, errors.Join(errs...)
	}

	m := &Manifest{
		Name:        fields["name"],
		Version:     fields["version"],
		Description: fields["description"],
		Author:      fields["author"],
		License:     fields["license"],
	}
	if m.SemVer() == nil {
		m.Warnings = append(m.Warnings, fmt.Sprintf("version %q is not a semantic version", m.Version))
	}

	deps, _ := raw["dependencies"].(map[string]any)
	m.Dependencies = normalizeDependencies(deps)

	if cfg, ok := raw["config"].(map[string]any); ok {
		m.RequiredEnv = parseRequiredEnv(cfg["required_env"])
	}

	if list, ok := raw["migrations"].([]any); ok {
		for _, item := range list {
			entry, _ := item.(map[string]any)
			mig := Migration{Name: DefaultMigrationName, Path: DefaultMigrationPath}
			if s, ok := entry["name"].(string); ok && s != "" {
				mig.Name = s
			}
			if s, ok := entry["path"].(string); ok && s != "" {
				mig.Path = s
			}
			m.Migrations = append(m.Migrations, mig)
		}
	}

	return m, nil
}

// normalizeDependencies flattens the legacy features list and the direct
// name = spec entries into one list. Legacy entries come first, direct
// entries follow in name order, and a name declared twice is merged into
// its first occurrence.
func normalizeDependencies(deps map[string]any) []Dependency {
	var out []Dependency
	index := make(map[string]int)
	add := func(d Dependency) {
		if i, ok := index[d.Name]; ok {
			prev := &out[i]
			if prev.Version == "" {
				prev.Version = d.Version
			}
			prev.Features = unionFeatures(prev.Features, d.Features)
			for k, v := range d.Extra {
				if _, exists := prev.Extra[k]; !exists {
					if prev.Extra == nil {
						prev.Extra = make(map[string]any)
					}
					prev.Extra[k] = v
				}
			}
			return
		}
		index[d.Name] = len(out)
		out = append(out, d)
	}

	if legacy, ok := deps[legacyFeaturesKey].([]any); ok {
		for _, item := range legacy {
			entry, _ := item.(map[string]any)
			name, _ := entry["crate_name"].(string)
			if name == "" {
				continue
			}
			add(Dependency{Name: name, Features: stringsOf(entry["features"])})
		}
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		if name != legacyFeaturesKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		d := Dependency{Name: name}
		switch spec := deps[name].(type) {
		case string:
			d.Version = spec
		case map[string]any:
			for k, v := range spec {
				switch k {
				case "version":
					d.Version, _ = v.(string)
				case "features":
					d.Features = stringsOf(v)
				default:
					if d.Extra == nil {
						d.Extra = make(map[string]any)
					}
					d.Extra[k] = v
				}
			}
		}
		add(d)
	}
	return out
}

// stringsOf accepts either a single string or an array of strings.
func stringsOf(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		var out []string
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return unionFeatures(nil, out)
	}
	return nil
}

func unionFeatures(base, add []string) []string {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseRequiredEnv splits entries like "API_KEY # your key" into name and
// comment.
func parseRequiredEnv(v any) []EnvVar {
	list, _ := v.([]any)
	var out []EnvVar
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		name, comment, _ := strings.Cut(s, "#")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, EnvVar{Name: name, Comment: strings.TrimSpace(comment)})
	}
	return out
}
