package tomldoc

import (
	"fmt"
	"slices"
)

// InlineField is a key/value inside an inline table, with the value's byte
// span relative to the inline table text.
type InlineField struct {
	Path []string
	Raw  string

	start int
	end   int
}

// InlineFields lists the fields of an inline table such as
// `{ version = "1", features = ["derive"] }`.
func InlineFields(raw string) ([]InlineField, error) {
	fields, _, err := inlineFields(raw)
	return fields, err
}

func inlineFields(raw string) ([]InlineField, int, error) {
	s := &scanner{data: []byte(raw)}
	s.skipSpace()
	if s.peek() != '{' {
		return nil, 0, fmt.Errorf("not an inline table: %q", raw)
	}
	s.pos++

	var fields []InlineField
	for {
		s.skipBlank()
		if s.peek() == '}' {
			return fields, s.pos, nil
		}
		if s.eof() {
			return nil, 0, s.errorf("unterminated inline table")
		}
		path, err := s.keyPath()
		if err != nil {
			return nil, 0, err
		}
		s.skipSpace()
		if s.peek() != '=' {
			return nil, 0, s.errorf("expected '=' in inline table")
		}
		s.pos++
		s.skipSpace()
		start := s.pos
		if err := s.value(); err != nil {
			return nil, 0, err
		}
		fields = append(fields, InlineField{
			Path:  path,
			Raw:   raw[start:s.pos],
			start: start,
			end:   s.pos,
		})
		s.skipBlank()
		switch s.peek() {
		case ',':
			s.pos++
		case '}':
			return fields, s.pos, nil
		default:
			return nil, 0, s.errorf("expected ',' or '}' in inline table")
		}
	}
}

// SetInlineField returns raw with key set to value. An existing field keeps
// its position; a new one is appended after the last field.
func SetInlineField(raw, key, value string) (string, error) {
	fields, closing, err := inlineFields(raw)
	if err != nil {
		return "", err
	}
	for _, f := range fields {
		if slices.Equal(f.Path, []string{key}) {
			return raw[:f.start] + value + raw[f.end:], nil
		}
	}
	pair := FormatKey(key) + " = " + value
	if len(fields) == 0 {
		return "{ " + pair + " }" + raw[closing+1:], nil
	}
	last := fields[len(fields)-1]
	return raw[:last.end] + ", " + pair + raw[last.end:], nil
}
