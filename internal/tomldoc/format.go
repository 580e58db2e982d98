package tomldoc

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FormatString renders s as a TOML basic string.
func FormatString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f || r == utf8.RuneError {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FormatStringArray renders a single-line array of strings: ["a", "b"].
func FormatStringArray(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatString(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatKey renders a key segment, quoting it when it is not a bare key.
func FormatKey(key string) string {
	if key == "" {
		return `""`
	}
	for i := 0; i < len(key); i++ {
		if !isBareKeyChar(key[i]) {
			return FormatString(key)
		}
	}
	return key
}

// FormatPath renders a dotted table path.
func FormatPath(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = FormatKey(p)
	}
	return strings.Join(parts, ".")
}

// Field is one key = value pair used to build an inline table.
type Field struct {
	Key   string
	Value string // already formatted
}

// FormatInlineTable renders `{ k = v, k2 = v2 }` in the given order.
func FormatInlineTable(fields []Field) string {
	if len(fields) == 0 {
		return "{}"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = FormatKey(f.Key) + " = " + f.Value
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// FormatValue renders a decoded TOML value. Maps become inline tables with
// keys in sorted order.
func FormatValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return FormatString(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return formatFloat(val), nil
	case []string:
		return FormatStringArray(val), nil
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			s, err := FormatValue(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			s, err := FormatValue(val[k])
			if err != nil {
				return "", err
			}
			fields = append(fields, Field{Key: k, Value: s})
		}
		return FormatInlineTable(fields), nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		// go-toml's local date and time types print in TOML syntax.
		return val.String(), nil
	}
	return "", fmt.Errorf("unsupported TOML value type %T", v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
