package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/subosito/gotenv"

	"github.com/Arete-Innovations/blast-sub000/internal/platform"
)

// DefaultPlaceholder marks a value the user has not supplied yet.
const DefaultPlaceholder = "REPLACE_THIS_WITH_YOUR_VALUE"

// ErrEnvMissing is returned when the host project has no .env file.
var ErrEnvMissing = errors.New("environment file not found")

// Entry is a single KEY=VALUE line from a .env file.
type Entry struct {
	Key     string
	Value   string // unquoted, without a trailing comment
	Comment string // text after an unquoted " #"
	Line    int    // 1-based
}

// Key returns the variable name a spark's required variable is stored under.
func Key(plugin, name string) string {
	return strings.ToUpper(plugin) + "_" + strings.ToUpper(name)
}

// Prefix returns the prefix shared by all of a spark's variables.
func Prefix(plugin string) string {
	return strings.ToUpper(plugin) + "_"
}

// ParseFile reads the .env file at path.
func ParseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEnvMissing, path)
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

// Parse returns the KEY=VALUE entries of content. Blank lines, comments and
// lines without '=' are skipped.
func Parse(content string) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if e, ok := parseLine(scanner.Text()); ok {
			e.Line = n
			entries = append(entries, e)
		}
	}
	return entries
}

func parseLine(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Entry{}, false
	}
	line = strings.TrimPrefix(line, "export ")
	key, rest, found := strings.Cut(line, "=")
	if !found {
		return Entry{}, false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Entry{}, false
	}
	value, comment := splitValue(strings.TrimSpace(rest))
	return Entry{Key: key, Value: value, Comment: comment}, true
}

// splitValue unquotes a value and separates a trailing comment.
func splitValue(s string) (value, comment string) {
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		quote := s[0]
		for i := 1; i < len(s); i++ {
			if s[i] == '\\' && quote == '"' {
				i++
				continue
			}
			if s[i] == quote {
				value = s[1:i]
				if quote == '"' {
					value = unescape(value)
				}
				tail := strings.TrimSpace(s[i+1:])
				return value, strings.TrimSpace(strings.TrimPrefix(tail, "#"))
			}
		}
		// Unterminated quote: treat the rest literally.
		return s[1:], ""
	}
	if i := strings.Index(s, " #"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+2:])
	}
	return s, ""
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t")
	return r.Replace(s)
}

// sensitivePatterns are substrings that indicate a value should be redacted.
var sensitivePatterns = []string{"TOKEN", "SECRET", "PASSWORD", "KEY", "CREDENTIAL", "DATABASE_URL"}

// RedactValue hides the value of keys that look sensitive. Values with 4+
// chars keep their first 4 chars; shorter ones become "***". Placeholders
// are shown as they are so unfinished setup stays visible.
func RedactValue(key, value, placeholder string) string {
	if value == placeholder {
		return value
	}
	upper := strings.ToUpper(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(upper, pattern) {
			if len(value) >= 4 {
				return value[:4] + "***"
			}
			return "***"
		}
	}
	return value
}

// Unresolved lists the plugin's keys in the file at path whose value is
// still exactly placeholder, in file order.
func Unresolved(path, plugin, placeholder string) ([]string, error) {
	entries, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return unresolved(entries, plugin, placeholder), nil
}

func unresolved(entries []Entry, plugin, placeholder string) []string {
	prefix := Prefix(plugin)
	var keys []string
	seen := map[string]bool{}
	for _, e := range entries {
		if strings.HasPrefix(e.Key, prefix) && e.Value == placeholder && !seen[e.Key] {
			seen[e.Key] = true
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Load reads the .env file at path with dotenv semantics.
func Load(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEnvMissing, path)
		}
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer f.Close()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing env file %s: %w", path, err)
	}
	return env, nil
}

// Environ returns base overlaid with the variables of the .env file at path.
// Variables already set in base win. The file's variables are appended in
// key order.
func Environ(path string, base []string) ([]string, error) {
	vars, err := Load(path)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(base))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		present[k] = true
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if !present[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := append([]string(nil), base...)
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out, nil
}

// writeFile replaces path through a temporary file in the same directory,
// keeping the original permissions.
func writeFile(path string, data []byte) error {
	mode := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".env.tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary env file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing env file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing env file: %w", err)
	}
	if err := platform.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("setting env file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing env file %s: %w", path, err)
	}
	return nil
}
