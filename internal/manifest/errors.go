package manifest

import (
	"errors"
	"fmt"
)

// ErrManifestMissing is returned when a spark has no manifest.toml.
var ErrManifestMissing = errors.New("manifest missing")

// ValidationError reports a manifest problem tied to one field.
type ValidationError struct {
	Field  string // dotted path such as "spark.name"; empty for document-level problems
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid manifest: " + e.Reason
	}
	return fmt.Sprintf("invalid manifest field %s: %s", e.Field, e.Reason)
}

// Fields returns the field of every ValidationError wrapped in err.
func Fields(err error) []string {
	switch x := err.(type) {
	case *ValidationError:
		return []string{x.Field}
	case interface{ Unwrap() []error }:
		var fields []string
		for _, e := range x.Unwrap() {
			fields = append(fields, Fields(e)...)
		}
		return fields
	case interface{ Unwrap() error }:
		return Fields(x.Unwrap())
	}
	return nil
}
