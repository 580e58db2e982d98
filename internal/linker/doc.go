// Package linker integrates a fetched spark into the host project. It copies
// the spark's source tree into the sparks directory, declares the module in
// the sparks module index (mod.rs) and, when the project has a spark
// registry (registry.rs), adds a match arm that registers the spark by name.
package linker
