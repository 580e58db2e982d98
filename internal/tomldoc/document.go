package tomldoc

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrStaleEntry is returned when an Entry obtained before an edit is used
// to edit the document again.
var ErrStaleEntry = errors.New("entry is stale: document changed since lookup")

// Document is a TOML document that can be edited without reformatting it.
type Document struct {
	data  []byte
	items []item
	rev   int
}

// Entry is a key/value pair located in a Document.
type Entry struct {
	Path []string // table path followed by the key path
	Raw  string   // value text as written

	valStart int
	valEnd   int
	rev      int
}

// Value decodes the entry's value.
func (e Entry) Value() (any, error) {
	return DecodeValue(e.Raw)
}

// Parse validates data as TOML and indexes its statements.
func Parse(data []byte) (*Document, error) {
	var probe map[string]any
	if err := toml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	items, err := scan(data)
	if err != nil {
		return nil, fmt.Errorf("indexing TOML: %w", err)
	}
	return &Document{data: data, items: items}, nil
}

// ReadFile parses the TOML file at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteFile writes the document to path, keeping the file's mode if it exists.
func (d *Document) WriteFile(path string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, d.data, mode)
}

// Bytes returns the current document text.
func (d *Document) Bytes() []byte { return d.data }

// Decode unmarshals the whole document into v.
func (d *Document) Decode(v any) error {
	return toml.Unmarshal(d.data, v)
}

// Lookup finds the key/value whose table path plus key path equals path.
// It matches `b = 1` under `[a]` as well as `a.b = 1` at the top level.
func (d *Document) Lookup(path ...string) (Entry, bool) {
	for _, it := range d.items {
		if it.kind == kindKeyValue && slices.Equal(it.fullPath(), path) {
			return d.entry(it), true
		}
	}
	return Entry{}, false
}

// Entries returns the direct children of table that are plain values, in
// document order.
func (d *Document) Entries(table ...string) []Entry {
	var out []Entry
	for _, it := range d.items {
		if it.kind != kindKeyValue {
			continue
		}
		p := it.fullPath()
		if len(p) == len(table)+1 && slices.Equal(p[:len(table)], table) {
			out = append(out, d.entry(it))
		}
	}
	return out
}

// HasTable reports whether a [table] header with exactly this path exists.
func (d *Document) HasTable(path ...string) bool {
	for _, it := range d.items {
		if it.kind == kindHeader && !it.array && slices.Equal(it.table, path) {
			return true
		}
	}
	return false
}

// HasChildren reports whether any header or key extends path, for example
// `[a.b.c]` or `a.b.c = 1` for path a.b.
func (d *Document) HasChildren(path ...string) bool {
	for _, it := range d.items {
		p := it.fullPath()
		if len(p) > len(path) && slices.Equal(p[:len(path)], path) {
			return true
		}
	}
	return false
}

// SetValue replaces the value text of e with raw.
func (d *Document) SetValue(e Entry, raw string) error {
	if e.rev != d.rev {
		return ErrStaleEntry
	}
	if e.Raw == raw {
		return nil
	}
	return d.splice(e.valStart, e.valEnd, raw)
}

// Insert adds `key = raw` after the last key/value of table. An empty table
// means the top level. The table header must already exist.
func (d *Document) Insert(table []string, key, raw string) error {
	pos := -1
	if len(table) == 0 {
		pos = 0
		for _, it := range d.items {
			if it.kind == kindHeader {
				break
			}
			pos = it.end
		}
	} else {
		inTable := false
		for _, it := range d.items {
			switch {
			case it.kind == kindHeader && !it.array && slices.Equal(it.table, table):
				inTable = true
				pos = it.end
			case it.kind == kindHeader:
				inTable = false
			case inTable:
				pos = it.end
			}
		}
	}
	if pos < 0 {
		return fmt.Errorf("table [%s] not found", FormatPath(table))
	}

	line := FormatKey(key) + " = " + raw + "\n"
	if pos > 0 && d.data[pos-1] != '\n' {
		line = "\n" + line
	}
	return d.splice(pos, pos, line)
}

// EnsureTable appends a [path] header at the end of the document unless one
// exists. It reports whether the header was added.
func (d *Document) EnsureTable(path ...string) (bool, error) {
	if d.HasTable(path...) {
		return false, nil
	}
	var b strings.Builder
	if n := len(d.data); n > 0 {
		if d.data[n-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString("[" + FormatPath(path) + "]\n")
	if err := d.splice(len(d.data), len(d.data), b.String()); err != nil {
		return false, err
	}
	return true, nil
}

// splice replaces data[start:end] with text. The result must still be valid
// TOML; otherwise the document is left unchanged.
func (d *Document) splice(start, end int, text string) error {
	next := make([]byte, 0, len(d.data)-(end-start)+len(text))
	next = append(next, d.data[:start]...)
	next = append(next, text...)
	next = append(next, d.data[end:]...)

	parsed, err := Parse(next)
	if err != nil {
		return fmt.Errorf("edit would produce invalid TOML: %w", err)
	}
	d.data = parsed.data
	d.items = parsed.items
	d.rev++
	return nil
}

func (d *Document) entry(it item) Entry {
	return Entry{
		Path:     it.fullPath(),
		Raw:      string(d.data[it.valStart:it.valEnd]),
		valStart: it.valStart,
		valEnd:   it.valEnd,
		rev:      d.rev,
	}
}

// DecodeValue decodes a single TOML value such as `"1"`, `["a", "b"]` or
// `{ version = "1" }`.
func DecodeValue(raw string) (any, error) {
	var m map[string]any
	if err := toml.Unmarshal([]byte("v = "+raw), &m); err != nil {
		return nil, fmt.Errorf("decoding value %q: %w", raw, err)
	}
	return m["v"], nil
}
