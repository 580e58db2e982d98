package descriptor

import (
	"errors"
	"fmt"

	"github.com/Arete-Innovations/blast-sub000/internal/tomldoc"
)

// SparksTable is the descriptor table listing installed sparks.
const SparksTable = "sparks"

// ErrWriteFailed is returned when a spark cannot be recorded.
var ErrWriteFailed = errors.New("descriptor write failed")

// Spark is one [sparks] entry.
type Spark struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// Record sets sparks.<name> = url in the descriptor at path. It reports
// whether the file changed; recording an identical entry is a no-op.
func Record(path, name, url string) (bool, error) {
	doc, err := tomldoc.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: loading descriptor: %w", ErrWriteFailed, err)
	}
	changed, err := record(doc, name, url)
	if err != nil || !changed {
		return false, err
	}
	if err := doc.WriteFile(path); err != nil {
		return false, fmt.Errorf("%w: writing %s: %w", ErrWriteFailed, path, err)
	}
	return true, nil
}

func record(doc *tomldoc.Document, name, url string) (bool, error) {
	value := tomldoc.FormatString(url)

	// sparks = { name = "url", ... } at the top level.
	if e, ok := doc.Lookup(SparksTable); ok {
		fields, err := tomldoc.InlineFields(e.Raw)
		if err != nil {
			return false, fmt.Errorf("%w: %s is not a table", ErrWriteFailed, SparksTable)
		}
		for _, f := range fields {
			if len(f.Path) == 1 && f.Path[0] == name && unquote(f.Raw) == url {
				return false, nil
			}
		}
		raw, err := tomldoc.SetInlineField(e.Raw, name, value)
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		if err := doc.SetValue(e, raw); err != nil {
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return true, nil
	}

	if e, ok := doc.Lookup(SparksTable, name); ok {
		if unquote(e.Raw) == url {
			return false, nil
		}
		if err := doc.SetValue(e, value); err != nil {
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return true, nil
	}
	if doc.HasChildren(SparksTable, name) {
		return false, fmt.Errorf("%w: sparks.%s is a table, not a URL", ErrWriteFailed, name)
	}

	if _, err := doc.EnsureTable(SparksTable); err != nil {
		return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := doc.Insert([]string{SparksTable}, name, value); err != nil {
		return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return true, nil
}

// List returns the recorded sparks in document order. Entries whose value
// is not a string are ignored.
func List(path string) ([]Spark, error) {
	doc, err := tomldoc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading descriptor: %w", err)
	}
	return list(doc), nil
}

func list(doc *tomldoc.Document) []Spark {
	var sparks []Spark
	if e, ok := doc.Lookup(SparksTable); ok {
		fields, err := tomldoc.InlineFields(e.Raw)
		if err != nil {
			return nil
		}
		for _, f := range fields {
			if len(f.Path) != 1 {
				continue
			}
			if url, ok := stringValue(f.Raw); ok {
				sparks = append(sparks, Spark{Name: f.Path[0], URL: url})
			}
		}
		return sparks
	}
	for _, e := range doc.Entries(SparksTable) {
		if url, ok := stringValue(e.Raw); ok {
			sparks = append(sparks, Spark{Name: e.Path[len(e.Path)-1], URL: url})
		}
	}
	return sparks
}

func stringValue(raw string) (string, bool) {
	v, err := tomldoc.DecodeValue(raw)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// unquote returns the string value of raw, or raw itself if it is not a
// string, which never equals a URL written by Record.
func unquote(raw string) string {
	if s, ok := stringValue(raw); ok {
		return s
	}
	return "\x00" + raw
}
