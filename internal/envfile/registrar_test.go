package envfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Arete-Innovations/blast-sub000/internal/manifest"
)

// fakeEditor records calls and optionally rewrites the file.
type fakeEditor struct {
	calls   int
	replace map[string]string // placeholder line -> replacement line
	err     error
}

func (f *fakeEditor) Edit(_ context.Context, path string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if len(f.replace) == 0 {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(data)
	for old, repl := range f.replace {
		content = strings.ReplaceAll(content, old, repl)
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
	return path
}

func readEnv(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

var demoVars = []manifest.EnvVar{
	{Name: "API_KEY", Comment: "key for the demo API"},
	{Name: "region"},
}

func TestRegister_AppendsBlock(t *testing.T) {
	path := writeEnv(t, "DATABASE_URL=postgres://localhost/app\n")
	r := &Registrar{Path: path}

	res, err := r.Register(context.Background(), "demo", demoVars)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	want := `DATABASE_URL=postgres://localhost/app

# Environment variables for demo spark
DEMO_API_KEY="REPLACE_THIS_WITH_YOUR_VALUE" # key for the demo API
DEMO_REGION="REPLACE_THIS_WITH_YOUR_VALUE"
`
	if got := readEnv(t, path); got != want {
		t.Errorf("file =\n%s\nwant\n%s", got, want)
	}
	if !res.Written {
		t.Error("Written = false, want true")
	}
	if !reflect.DeepEqual(res.Added, []string{"DEMO_API_KEY", "DEMO_REGION"}) {
		t.Errorf("Added = %v", res.Added)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"DEMO_API_KEY", "DEMO_REGION"}) {
		t.Errorf("Unresolved = %v", res.Unresolved)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestRegister_AddsTrailingNewline(t *testing.T) {
	path := writeEnv(t, "A=1")
	r := &Registrar{Path: path}
	if _, err := r.Register(context.Background(), "demo", []manifest.EnvVar{{Name: "X"}}); err != nil {
		t.Fatal(err)
	}
	want := "A=1\n\n# Environment variables for demo spark\nDEMO_X=\"REPLACE_THIS_WITH_YOUR_VALUE\"\n"
	if got := readEnv(t, path); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestRegister_LeavesRealValues(t *testing.T) {
	content := "DEMO_API_KEY=\"sk-live\"\nDEMO_REGION=eu\n"
	path := writeEnv(t, content)
	editor := &fakeEditor{}
	r := &Registrar{Path: path, Editor: editor}

	res, err := r.Register(context.Background(), "demo", demoVars)
	if err != nil {
		t.Fatal(err)
	}
	if res.Written || len(res.Added) != 0 {
		t.Errorf("Result = %+v, want no change", res)
	}
	if got := readEnv(t, path); got != content {
		t.Errorf("file changed:\n%s", got)
	}
	if editor.calls != 0 {
		t.Errorf("editor called %d times, want 0", editor.calls)
	}
}

func TestRegister_RefreshesPlaceholderBlock(t *testing.T) {
	path := writeEnv(t, `A=1

# Environment variables for demo spark
DEMO_API_KEY="real-value"
DEMO_REGION="REPLACE_THIS_WITH_YOUR_VALUE"

B=2
`)
	r := &Registrar{Path: path}
	res, err := r.Register(context.Background(), "demo", demoVars)
	if err != nil {
		t.Fatal(err)
	}

	want := `A=1

DEMO_API_KEY="real-value"

B=2

# Environment variables for demo spark
DEMO_REGION="REPLACE_THIS_WITH_YOUR_VALUE"
`
	if got := readEnv(t, path); got != want {
		t.Errorf("file =\n%s\nwant\n%s", got, want)
	}
	if !reflect.DeepEqual(res.Added, []string{"DEMO_REGION"}) {
		t.Errorf("Added = %v, want [DEMO_REGION]", res.Added)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	path := writeEnv(t, "A=1\n")
	r := &Registrar{Path: path}
	if _, err := r.Register(context.Background(), "demo", demoVars); err != nil {
		t.Fatal(err)
	}
	first := readEnv(t, path)

	res, err := r.Register(context.Background(), "demo", demoVars)
	if err != nil {
		t.Fatal(err)
	}
	if res.Written {
		t.Error("second Register() rewrote the file")
	}
	if got := readEnv(t, path); got != first {
		t.Errorf("file =\n%s\nwant\n%s", got, first)
	}
	for _, key := range []string{"DEMO_API_KEY", "DEMO_REGION"} {
		if n := strings.Count(readEnv(t, path), key+"="); n != 1 {
			t.Errorf("%s appears %d times, want 1", key, n)
		}
	}
}

func TestRegister_EmptyFile(t *testing.T) {
	path := writeEnv(t, "")
	r := &Registrar{Path: path}
	for i := 0; i < 2; i++ {
		if _, err := r.Register(context.Background(), "demo", []manifest.EnvVar{{Name: "X"}}); err != nil {
			t.Fatal(err)
		}
	}
	want := "\n# Environment variables for demo spark\nDEMO_X=\"REPLACE_THIS_WITH_YOUR_VALUE\"\n"
	if got := readEnv(t, path); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestRegister_EditorResolvesPlaceholders(t *testing.T) {
	path := writeEnv(t, "")
	editor := &fakeEditor{replace: map[string]string{
		`DEMO_API_KEY="REPLACE_THIS_WITH_YOUR_VALUE"`: `DEMO_API_KEY="sk-test"`,
	}}
	r := &Registrar{Path: path, Editor: editor}

	res, err := r.Register(context.Background(), "demo", demoVars)
	if err != nil {
		t.Fatal(err)
	}
	if editor.calls != 1 {
		t.Errorf("editor called %d times, want 1", editor.calls)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"DEMO_REGION"}) {
		t.Errorf("Unresolved = %v, want [DEMO_REGION]", res.Unresolved)
	}
}

func TestRegister_EditorFailureIsNotFatal(t *testing.T) {
	path := writeEnv(t, "")
	editor := &fakeEditor{err: ErrNoEditor}
	r := &Registrar{Path: path, Editor: editor}

	res, err := r.Register(context.Background(), "demo", demoVars)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !errors.Is(res.EditorErr, ErrNoEditor) {
		t.Errorf("EditorErr = %v, want ErrNoEditor", res.EditorErr)
	}
	if !res.Written {
		t.Error("Written = false, want true")
	}
}

func TestRegister_CustomPlaceholder(t *testing.T) {
	path := writeEnv(t, "DEMO_X=\"REPLACE_THIS_WITH_YOUR_VALUE\"\n")
	r := &Registrar{Path: path, Placeholder: "CHANGEME"}

	res, err := r.Register(context.Background(), "demo", []manifest.EnvVar{{Name: "X"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Written {
		t.Error("a value that is not the configured placeholder should be kept")
	}
}

func TestRegister_Missing(t *testing.T) {
	r := &Registrar{Path: filepath.Join(t.TempDir(), ".env")}
	if _, err := r.Register(context.Background(), "demo", demoVars); !errors.Is(err, ErrEnvMissing) {
		t.Errorf("Register() error = %v, want ErrEnvMissing", err)
	}
}
