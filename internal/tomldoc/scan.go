package tomldoc

import (
	"fmt"
	"strconv"
)

type itemKind int

const (
	kindHeader itemKind = iota
	kindKeyValue
)

// item is one top-level statement of a document: a table header or a
// key/value pair. Offsets index into the document bytes.
type item struct {
	kind  itemKind
	table []string // header path, or the enclosing table of a key/value
	key   []string // key/values only
	array bool     // [[header]]

	valStart int
	valEnd   int
	end      int // byte after the terminating newline, or len(data)
}

func (it item) fullPath() []string {
	if it.kind == kindHeader {
		return it.table
	}
	p := make([]string, 0, len(it.table)+len(it.key))
	p = append(p, it.table...)
	return append(p, it.key...)
}

type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) eof() bool { return s.pos >= len(s.data) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.data[s.pos]
}

func (s *scanner) hasPrefix(p string) bool {
	return len(s.data)-s.pos >= len(p) && string(s.data[s.pos:s.pos+len(p)]) == p
}

func (s *scanner) errorf(format string, args ...any) error {
	line := 1
	for _, c := range s.data[:min(s.pos, len(s.data))] {
		if c == '\n' {
			line++
		}
	}
	return fmt.Errorf("line %d: %s", line, fmt.Sprintf(format, args...))
}

func (s *scanner) skipSpace() {
	for !s.eof() && (s.peek() == ' ' || s.peek() == '\t') {
		s.pos++
	}
}

func (s *scanner) skipBlank() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) skipComment() {
	for !s.eof() && s.peek() != '\n' {
		s.pos++
	}
}

// scan splits data into headers and key/value statements.
func scan(data []byte) ([]item, error) {
	s := &scanner{data: data}
	var items []item
	var table []string

	for {
		s.skipBlank()
		if s.eof() {
			return items, nil
		}
		switch s.peek() {
		case '#':
			s.skipComment()
		case '[':
			it, err := s.header()
			if err != nil {
				return nil, err
			}
			table = it.table
			items = append(items, it)
		default:
			it, err := s.keyValue(table)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
	}
}

func (s *scanner) header() (item, error) {
	s.pos++
	array := false
	if s.peek() == '[' {
		array = true
		s.pos++
	}
	s.skipSpace()
	path, err := s.keyPath()
	if err != nil {
		return item{}, err
	}
	s.skipSpace()
	closing := "]"
	if array {
		closing = "]]"
	}
	if !s.hasPrefix(closing) {
		return item{}, s.errorf("expected %q after table name", closing)
	}
	s.pos += len(closing)
	end, err := s.finishLine()
	if err != nil {
		return item{}, err
	}
	return item{kind: kindHeader, table: path, array: array, end: end}, nil
}

func (s *scanner) keyValue(table []string) (item, error) {
	key, err := s.keyPath()
	if err != nil {
		return item{}, err
	}
	s.skipSpace()
	if s.peek() != '=' {
		return item{}, s.errorf("expected '=' after key")
	}
	s.pos++
	s.skipSpace()
	start := s.pos
	if err := s.value(); err != nil {
		return item{}, err
	}
	valEnd := s.pos
	end, err := s.finishLine()
	if err != nil {
		return item{}, err
	}
	return item{
		kind:     kindKeyValue,
		table:    table,
		key:      key,
		valStart: start,
		valEnd:   valEnd,
		end:      end,
	}, nil
}

// finishLine consumes trailing whitespace, an optional comment and the
// newline, returning the offset just past it.
func (s *scanner) finishLine() (int, error) {
	s.skipSpace()
	if s.peek() == '#' {
		s.skipComment()
	}
	if s.peek() == '\r' {
		s.pos++
	}
	if s.eof() {
		return s.pos, nil
	}
	if s.peek() != '\n' {
		return 0, s.errorf("unexpected %q at end of statement", s.peek())
	}
	s.pos++
	return s.pos, nil
}

func (s *scanner) keyPath() ([]string, error) {
	var path []string
	for {
		seg, err := s.keySegment()
		if err != nil {
			return nil, err
		}
		path = append(path, seg)
		s.skipSpace()
		if s.peek() != '.' {
			return path, nil
		}
		s.pos++
		s.skipSpace()
	}
}

func (s *scanner) keySegment() (string, error) {
	start := s.pos
	switch s.peek() {
	case '"':
		if err := s.basicString(); err != nil {
			return "", err
		}
		key, err := strconv.Unquote(string(s.data[start:s.pos]))
		if err != nil {
			return "", s.errorf("invalid quoted key: %v", err)
		}
		return key, nil
	case '\'':
		if err := s.literalString(); err != nil {
			return "", err
		}
		return string(s.data[start+1 : s.pos-1]), nil
	}
	for !s.eof() && isBareKeyChar(s.peek()) {
		s.pos++
	}
	if s.pos == start {
		return "", s.errorf("expected key, found %q", s.peek())
	}
	return string(s.data[start:s.pos]), nil
}

func isBareKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

func (s *scanner) value() error {
	switch {
	case s.hasPrefix(`"""`):
		return s.multiline(`"""`, true)
	case s.hasPrefix("'''"):
		return s.multiline("'''", false)
	}
	switch s.peek() {
	case '"':
		return s.basicString()
	case '\'':
		return s.literalString()
	case '[', '{':
		return s.nested()
	}
	s.scalar()
	return nil
}

// scalar consumes a number, boolean or date. Local date-times may contain a
// space, so only line and container delimiters terminate it.
func (s *scanner) scalar() {
	start := s.pos
	for !s.eof() && !isScalarEnd(s.peek()) {
		s.pos++
	}
	for s.pos > start && (s.data[s.pos-1] == ' ' || s.data[s.pos-1] == '\t') {
		s.pos--
	}
}

func isScalarEnd(c byte) bool {
	switch c {
	case '\n', '\r', '#', ',', ']', '}':
		return true
	}
	return false
}

func (s *scanner) basicString() error {
	s.pos++
	for !s.eof() {
		switch s.peek() {
		case '\\':
			s.pos += 2
			continue
		case '"':
			s.pos++
			return nil
		case '\n':
			return s.errorf("unterminated string")
		}
		s.pos++
	}
	return s.errorf("unterminated string")
}

func (s *scanner) literalString() error {
	s.pos++
	for !s.eof() {
		switch s.peek() {
		case '\'':
			s.pos++
			return nil
		case '\n':
			return s.errorf("unterminated string")
		}
		s.pos++
	}
	return s.errorf("unterminated string")
}

func (s *scanner) multiline(delim string, escapes bool) error {
	s.pos += len(delim)
	for !s.eof() {
		if escapes && s.peek() == '\\' {
			s.pos += 2
			continue
		}
		if s.hasPrefix(delim) {
			s.pos += len(delim)
			// Up to two quotes may directly precede the closing delimiter.
			for extra := 0; extra < 2 && s.peek() == delim[0]; extra++ {
				s.pos++
			}
			return nil
		}
		s.pos++
	}
	return s.errorf("unterminated multi-line string")
}

// nested consumes an array or inline table, including any nested
// containers, strings and comments.
func (s *scanner) nested() error {
	depth := 0
	for !s.eof() {
		var err error
		switch {
		case s.hasPrefix(`"""`):
			err = s.multiline(`"""`, true)
		case s.hasPrefix("'''"):
			err = s.multiline("'''", false)
		case s.peek() == '"':
			err = s.basicString()
		case s.peek() == '\'':
			err = s.literalString()
		case s.peek() == '#':
			s.skipComment()
		case s.peek() == '[' || s.peek() == '{':
			depth++
			s.pos++
		case s.peek() == ']' || s.peek() == '}':
			depth--
			s.pos++
			if depth == 0 {
				return nil
			}
		default:
			s.pos++
		}
		if err != nil {
			return err
		}
	}
	return s.errorf("unterminated array or inline table")
}
