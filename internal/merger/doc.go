// Package merger merges spark build dependencies into the host Cargo.toml.
//
// Entries are only ever added to or widened: a missing dependency is
// inserted, a bare version string is promoted to an inline table when
// features are needed, and feature lists grow by set union. Versions that
// are already present are never changed and table forms are never demoted.
package merger
