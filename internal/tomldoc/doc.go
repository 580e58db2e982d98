// Package tomldoc edits TOML documents in place.
//
// A Document indexes headers and key/value statements by byte offset.
// Edits splice new text over a single value or insert a single line, so
// comments, blank lines, key order and formatting elsewhere in the file are
// kept byte for byte. Values are decoded with go-toml, and every edit is
// re-validated before it is accepted.
package tomldoc
