package merger

import (
	"fmt"

	"github.com/Arete-Innovations/blast-sub000/internal/tomldoc"
)

// WildcardVersion is written when a spark declares a dependency without a
// version.
const WildcardVersion = "*"

// Kind is the shape of a dependency entry in the build manifest.
type Kind int

const (
	// Bare is `name = "1"`.
	Bare Kind = iota
	// Inline is `name = { version = "1", features = [...] }`.
	Inline
	// Table is a [dependencies.name] section.
	Table
)

func (k Kind) String() string {
	switch k {
	case Bare:
		return "bare"
	case Inline:
		return "inline"
	case Table:
		return "table"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Entry is the merger's view of one dependency entry.
type Entry struct {
	Kind     Kind
	Version  string
	Features []string
}

// Promote turns a bare entry into an inline table carrying the same version
// and the given features.
func (e Entry) Promote(features []string) Entry {
	return Entry{Kind: Inline, Version: e.Version, Features: features}
}

// Render formats an entry as a value. Table entries have no single-value
// form.
func (e Entry) Render() (string, error) {
	version := e.Version
	if version == "" {
		version = WildcardVersion
	}
	switch e.Kind {
	case Bare:
		return tomldoc.FormatString(version), nil
	case Inline:
		fields := []tomldoc.Field{{Key: "version", Value: tomldoc.FormatString(version)}}
		if len(e.Features) > 0 {
			fields = append(fields, tomldoc.Field{Key: "features", Value: tomldoc.FormatStringArray(e.Features)})
		}
		return tomldoc.FormatInlineTable(fields), nil
	}
	return "", fmt.Errorf("cannot render %s entry as a value", e.Kind)
}

// featureList reads a features value, accepting an array or a single string.
func featureList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, f := range val {
			s, ok := f.(string)
			if !ok {
				return nil, fmt.Errorf("feature %v is %T, not a string", f, f)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("features is %T, not an array or string", v)
}

// missingFeatures returns the declared features not in existing, in
// declaration order and without duplicates.
func missingFeatures(existing, declared []string) []string {
	have := make(map[string]bool, len(existing))
	for _, f := range existing {
		have[f] = true
	}
	var out []string
	for _, f := range declared {
		if !have[f] {
			have[f] = true
			out = append(out, f)
		}
	}
	return out
}
