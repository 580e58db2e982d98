package merger

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/Arete-Innovations/blast-sub000/internal/manifest"
	"github.com/Arete-Innovations/blast-sub000/internal/tomldoc"
)

const dependenciesTable = "dependencies"

// ErrUnexpectedShape marks a dependency entry the merger cannot update
// without risking the user's content.
var ErrUnexpectedShape = errors.New("unexpected dependency shape")

// Decision is what the merger did with one declared dependency.
type Decision int

const (
	Unchanged Decision = iota
	Inserted
	Promoted
	FeaturesAdded
	Skipped
)

var decisionNames = map[Decision]string{
	Unchanged:     "unchanged",
	Inserted:      "inserted",
	Promoted:      "promoted",
	FeaturesAdded: "features-added",
	Skipped:       "skipped",
}

func (d Decision) String() string {
	if s, ok := decisionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// MarshalText renders the decision by name in JSON and YAML reports.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Change records the decision for one dependency.
type Change struct {
	Name     string   `json:"name" yaml:"name"`
	Decision Decision `json:"decision" yaml:"decision"`
	Added    []string `json:"added,omitempty" yaml:"added,omitempty"` // features written by this merge
	Err      error    `json:"-" yaml:"-"`                             // set when Skipped
}

// Reason returns the skip reason, or "".
func (c Change) Reason() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}

// Report lists the per-dependency decisions of one merge, in declaration
// order.
type Report struct {
	Changes []Change `json:"changes" yaml:"changes"`
}

// Changed reports whether the merge altered the document.
func (r Report) Changed() bool {
	for _, c := range r.Changes {
		switch c.Decision {
		case Inserted, Promoted, FeaturesAdded:
			return true
		}
	}
	return false
}

// Skipped returns the dependencies that could not be merged.
func (r Report) Skipped() []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Decision == Skipped {
			out = append(out, c)
		}
	}
	return out
}

// MergeFile merges deps into the build manifest at path. The file is only
// written when at least one entry changed.
func MergeFile(path string, deps []manifest.Dependency) (Report, error) {
	doc, err := tomldoc.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("loading build manifest: %w", err)
	}
	report := Merge(doc, deps)
	if !report.Changed() {
		return report, nil
	}
	if err := doc.WriteFile(path); err != nil {
		return report, fmt.Errorf("writing build manifest %s: %w", path, err)
	}
	return report, nil
}

// Merge applies deps to doc in memory. A dependency that cannot be merged is
// reported as Skipped and the rest are still applied.
func Merge(doc *tomldoc.Document, deps []manifest.Dependency) Report {
	report := Report{Changes: make([]Change, 0, len(deps))}
	for _, dep := range deps {
		report.Changes = append(report.Changes, mergeOne(doc, dep))
	}
	return report
}

func mergeOne(doc *tomldoc.Document, dep manifest.Dependency) Change {
	path := []string{dependenciesTable, dep.Name}

	if e, ok := doc.Lookup(path...); ok {
		return mergeValue(doc, e, dep)
	}
	if doc.HasTable(path...) {
		return mergeTable(doc, path, dep)
	}
	if doc.HasChildren(path...) {
		return unexpected(dep.Name, "declared with dotted keys")
	}

	raw, err := insertValue(dep)
	if err != nil {
		return skipped(dep.Name, err)
	}
	if _, err := doc.EnsureTable(dependenciesTable); err != nil {
		return skipped(dep.Name, err)
	}
	if err := doc.Insert([]string{dependenciesTable}, dep.Name, raw); err != nil {
		return skipped(dep.Name, err)
	}
	return Change{Name: dep.Name, Decision: Inserted, Added: dep.Features}
}

// mergeValue handles `name = "1"` and `name = { ... }`.
func mergeValue(doc *tomldoc.Document, e tomldoc.Entry, dep manifest.Dependency) Change {
	v, err := e.Value()
	if err != nil {
		return unexpected(dep.Name, "unreadable value: %v", err)
	}

	switch val := v.(type) {
	case string:
		if len(dep.Features) == 0 {
			return Change{Name: dep.Name, Decision: Unchanged}
		}
		raw, err := Entry{Kind: Bare, Version: val}.Promote(dep.Features).Render()
		if err != nil {
			return skipped(dep.Name, err)
		}
		if err := doc.SetValue(e, raw); err != nil {
			return skipped(dep.Name, err)
		}
		return Change{Name: dep.Name, Decision: Promoted, Added: dep.Features}

	case map[string]any:
		existing, err := featureList(val["features"])
		if err != nil {
			return unexpected(dep.Name, "%v", err)
		}
		added := missingFeatures(existing, dep.Features)
		if len(added) == 0 {
			return Change{Name: dep.Name, Decision: Unchanged}
		}
		union := append(slices.Clone(existing), added...)
		raw, err := tomldoc.SetInlineField(e.Raw, "features", tomldoc.FormatStringArray(union))
		if err != nil {
			return unexpected(dep.Name, "%v", err)
		}
		if err := doc.SetValue(e, raw); err != nil {
			return skipped(dep.Name, err)
		}
		return Change{Name: dep.Name, Decision: FeaturesAdded, Added: added}
	}
	return unexpected(dep.Name, "value is %T, not a version string or table", v)
}

// mergeTable handles a [dependencies.name] section.
func mergeTable(doc *tomldoc.Document, path []string, dep manifest.Dependency) Change {
	featuresPath := append(slices.Clone(path), "features")
	if doc.HasChildren(featuresPath...) {
		return unexpected(dep.Name, "features is a table")
	}

	fe, found := doc.Lookup(featuresPath...)
	var existing []string
	if found {
		v, err := fe.Value()
		if err != nil {
			return unexpected(dep.Name, "unreadable features: %v", err)
		}
		if existing, err = featureList(v); err != nil {
			return unexpected(dep.Name, "%v", err)
		}
	}

	added := missingFeatures(existing, dep.Features)
	if len(added) == 0 {
		return Change{Name: dep.Name, Decision: Unchanged}
	}
	raw := tomldoc.FormatStringArray(append(slices.Clone(existing), added...))

	var err error
	if found {
		err = doc.SetValue(fe, raw)
	} else {
		err = doc.Insert(path, "features", raw)
	}
	if err != nil {
		return skipped(dep.Name, err)
	}
	return Change{Name: dep.Name, Decision: FeaturesAdded, Added: added}
}

// insertValue renders a new entry. Declarations with features or extra keys
// become inline tables so nothing the spark declared is lost.
func insertValue(dep manifest.Dependency) (string, error) {
	if len(dep.Features) == 0 && len(dep.Extra) == 0 {
		return Entry{Kind: Bare, Version: dep.Version}.Render()
	}

	version := dep.Version
	if version == "" {
		version = WildcardVersion
	}
	fields := []tomldoc.Field{{Key: "version", Value: tomldoc.FormatString(version)}}
	if len(dep.Features) > 0 {
		fields = append(fields, tomldoc.Field{Key: "features", Value: tomldoc.FormatStringArray(dep.Features)})
	}

	keys := make([]string, 0, len(dep.Extra))
	for k := range dep.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := tomldoc.FormatValue(dep.Extra[k])
		if err != nil {
			return "", fmt.Errorf("dependency %s key %s: %w", dep.Name, k, err)
		}
		fields = append(fields, tomldoc.Field{Key: k, Value: v})
	}
	return tomldoc.FormatInlineTable(fields), nil
}

func unexpected(name, format string, args ...any) Change {
	return Change{
		Name:     name,
		Decision: Skipped,
		Err:      fmt.Errorf("%w: %s", ErrUnexpectedShape, fmt.Sprintf(format, args...)),
	}
}

func skipped(name string, err error) Change {
	return Change{Name: name, Decision: Skipped, Err: err}
}
