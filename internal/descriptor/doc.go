// Package descriptor records installed sparks in the project descriptor
// (Catalyst.toml). The [sparks] table maps each spark name to the URL it was
// installed from and drives batch installation. Edits preserve the rest of
// the file byte for byte.
package descriptor
