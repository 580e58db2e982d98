package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	content := `# comment
LOG_LEVEL=info
export REGION=eu-west-1

DEMO_API_KEY="REPLACE_THIS_WITH_YOUR_VALUE" # key for the demo API
QUOTED='single # not a comment'
CONNECTION=host=localhost port=5432
ESCAPED="say \"hi\""
not a pair
EMPTY=
`
	got := Parse(content)
	want := []Entry{
		{Key: "LOG_LEVEL", Value: "info", Line: 2},
		{Key: "REGION", Value: "eu-west-1", Line: 3},
		{Key: "DEMO_API_KEY", Value: "REPLACE_THIS_WITH_YOUR_VALUE", Comment: "key for the demo API", Line: 5},
		{Key: "QUOTED", Value: "single # not a comment", Line: 6},
		{Key: "CONNECTION", Value: "host=localhost port=5432", Line: 7},
		{Key: "ESCAPED", Value: `say "hi"`, Line: 8},
		{Key: "EMPTY", Value: "", Line: 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), ".env"))
	if !errors.Is(err, ErrEnvMissing) {
		t.Errorf("ParseFile() error = %v, want ErrEnvMissing", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("demo_auth", "api_key"); got != "DEMO_AUTH_API_KEY" {
		t.Errorf("Key() = %q, want %q", got, "DEMO_AUTH_API_KEY")
	}
}

func TestRedactValue(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"DEMO_API_KEY", "sk-12345", "sk-1***"},
		{"DB_PASSWORD", "hunter2", "hunt***"},
		{"DEMO_DATABASE_URL", "postgres://u:p@h/db", "post***"},
		{"MY_SECRET", "ab", "***"},
		{"DEMO_API_KEY", DefaultPlaceholder, DefaultPlaceholder},
		{"LOG_LEVEL", "info", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := RedactValue(tt.key, tt.value, DefaultPlaceholder); got != tt.expected {
				t.Errorf("RedactValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.expected)
			}
		})
	}
}

func TestUnresolved(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `DEMO_API_KEY="REPLACE_THIS_WITH_YOUR_VALUE"
DEMO_REGION="eu"
OTHER_TOKEN="REPLACE_THIS_WITH_YOUR_VALUE"
DEMO_LOWER="replace_this_with_your_value"
DEMO_SECRET=REPLACE_THIS_WITH_YOUR_VALUE
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Unresolved(path, "demo", DefaultPlaceholder)
	if err != nil {
		t.Fatalf("Unresolved() error = %v", err)
	}
	want := []string{"DEMO_API_KEY", "DEMO_SECRET"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unresolved() = %v, want %v", got, want)
	}
}

func TestEnviron_ProcessWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DATABASE_URL=postgres://file/db\nDEMO_API_KEY=\"abc\" # comment\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Environ(path, []string{"DATABASE_URL=postgres://process/db", "PATH=/bin"})
	if err != nil {
		t.Fatalf("Environ() error = %v", err)
	}
	want := []string{"DATABASE_URL=postgres://process/db", "PATH=/bin", "DEMO_API_KEY=abc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Environ() = %v, want %v", got, want)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), ".env")); !errors.Is(err, ErrEnvMissing) {
		t.Errorf("Load() error = %v, want ErrEnvMissing", err)
	}
}

func TestSystemEditorCommand(t *testing.T) {
	onPath := func(names ...string) func(string) (string, error) {
		return func(name string) (string, error) {
			for _, n := range names {
				if n == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", errors.New("not found")
		}
	}
	env := func(v string) func(string) string {
		return func(string) string { return v }
	}

	tests := []struct {
		name    string
		editor  *SystemEditor
		want    []string
		wantErr bool
	}{
		{"editor variable with args", &SystemEditor{getenv: env("code --wait"), lookPath: onPath()}, []string{"code", "--wait"}, false},
		{"first candidate on path", &SystemEditor{getenv: env(""), lookPath: onPath("vi", "emacs")}, []string{"vi"}, false},
		{"custom candidates", &SystemEditor{Candidates: []string{"micro"}, getenv: env(""), lookPath: onPath("micro", "nano")}, []string{"micro"}, false},
		{"nothing available", &SystemEditor{getenv: env(""), lookPath: onPath()}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.editor.Command()
			if tt.wantErr {
				if !errors.Is(err, ErrNoEditor) {
					t.Errorf("Command() error = %v, want ErrNoEditor", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Command() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Command() = %v, want %v", got, tt.want)
			}
		})
	}
}
