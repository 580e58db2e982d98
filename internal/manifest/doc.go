// Package manifest loads and validates spark manifests (manifest.toml).
// It normalizes the accepted dependency shapes into Dependency values and
// checks the document against an embedded JSON Schema.
package manifest
