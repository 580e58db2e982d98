//go:build integration

package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // HOME, so ~/.blast is sandboxed
	ProjectDir string // a Catalyst project with Catalyst.toml, Cargo.toml and .env
	RemoteDir  string // holds the spark repositories served over file://
}

// setupTestEnv creates isolated temp directories and a mock Catalyst project.
// Tests that need git skip when it is not installed.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
		RemoteDir:  t.TempDir(),
	}
	t.Setenv("HOME", env.HomeDir)

	writeFile(t, filepath.Join(env.ProjectDir, "Catalyst.toml"), "[settings]\nenvironment = \"dev\"\nshow_compiler_warnings = true\n")
	writeFile(t, filepath.Join(env.ProjectDir, "Cargo.toml"), `[package]
name = "app"
version = "0.1.0"
edition = "2021"

[dependencies]
rocket = { version = "0.5", features = ["json"] }
serde = "1.0"
`)
	writeFile(t, filepath.Join(env.ProjectDir, ".env"), "DATABASE_URL=postgres://app@localhost/app\n")
	return env
}

// sparkManifest returns a manifest.toml for the demo spark.
func sparkManifest(version string) string {
	return `[spark]
name = "demo"
version = "` + version + `"
description = "Demo spark"
author = "Catalyst Team"
license = "MIT"

[dependencies]
serde = { version = "1", features = ["derive"] }
rocket = { version = "0.5", features = ["secrets"] }

[config]
required_env = ["API_KEY # key for the demo service"]
`
}

// setupSparkRepo creates a git repository named name.git under RemoteDir
// holding the given files and returns its file:// URL.
func setupSparkRepo(t *testing.T, env *testEnv, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(env.RemoteDir, name+".git")
	for path, content := range files {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(path)), content)
	}
	git(t, dir, "init", "--quiet")
	commitAll(t, dir, "initial")
	return "file://" + filepath.ToSlash(dir)
}

// commitAll commits every change in dir.
func commitAll(t *testing.T, dir, message string) {
	t.Helper()
	git(t, dir, "add", "-A")
	git(t, dir, "-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "--quiet", "-m", message)
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// readFile returns the contents of path.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
