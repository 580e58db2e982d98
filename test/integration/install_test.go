//go:build integration

package integration_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Arete-Innovations/blast-sub000/internal/fetcher"
	"github.com/Arete-Innovations/blast-sub000/internal/installer"
	"github.com/Arete-Innovations/blast-sub000/internal/linker"
	"github.com/Arete-Innovations/blast-sub000/internal/merger"
	"github.com/Arete-Innovations/blast-sub000/internal/project"
)

func newInstaller(env *testEnv) *installer.Installer {
	return installer.New(installer.Options{
		Project: &project.Project{Root: env.ProjectDir},
		Fetch:   fetcher.DefaultOptions(),
	})
}

func TestInstallFromGit(t *testing.T) {
	env := setupTestEnv(t)
	url := setupSparkRepo(t, env, "demo", map[string]string{
		"manifest.toml": sparkManifest("0.1.0"),
		"mod.rs":        "pub fn create_spark() {}\n",
	})

	rep := newInstaller(env).Add(context.Background(), url)
	if rep.Failure != nil {
		t.Fatalf("Add: %v", rep.Failure)
	}
	if rep.ExitCode() != installer.ExitOK {
		t.Errorf("ExitCode() = %d, want 0", rep.ExitCode())
	}

	sparkDir := filepath.Join(env.ProjectDir, "src", "services", "sparks", "demo")
	assertFileExists(t, filepath.Join(sparkDir, "manifest.toml"))
	assertFileExists(t, filepath.Join(sparkDir, "mod.rs"))
	assertFileNotExists(t, filepath.Join(sparkDir, ".git"))
	assertFileNotExists(t, fetcher.WorkDir(env.ProjectDir, "demo"))

	assertFileContains(t, filepath.Join(env.ProjectDir, "Catalyst.toml"), `demo = "`+url+`"`)
	cargo := filepath.Join(env.ProjectDir, "Cargo.toml")
	assertFileContains(t, cargo, `serde = { version = "1.0", features = ["derive"] }`)
	assertFileContains(t, cargo, `rocket = { version = "0.5", features = ["json", "secrets"] }`)
	assertFileContains(t, filepath.Join(env.ProjectDir, ".env"), `DEMO_API_KEY="REPLACE_THIS_WITH_YOUR_VALUE"`)
	assertFileContains(t, filepath.Join(env.ProjectDir, "src", "services", "sparks", "mod.rs"), "pub mod demo;")
}

func TestInstallFromRegistry_Reinstall(t *testing.T) {
	env := setupTestEnv(t)
	url := setupSparkRepo(t, env, "demo", map[string]string{"manifest.toml": sparkManifest("0.1.0")})
	in := newInstaller(env)

	if rep := in.Add(context.Background(), url); rep.Failure != nil {
		t.Fatalf("Add: %v", rep.Failure)
	}
	envPath := filepath.Join(env.ProjectDir, ".env")
	writeFile(t, envPath, strings.Replace(readFile(t, envPath), `"REPLACE_THIS_WITH_YOUR_VALUE"`, "abc123", 1))

	files := []string{
		filepath.Join(env.ProjectDir, "Catalyst.toml"),
		filepath.Join(env.ProjectDir, "Cargo.toml"),
		envPath,
		filepath.Join(env.ProjectDir, "src", "services", "sparks", "mod.rs"),
	}
	before := map[string]string{}
	for _, f := range files {
		before[f] = readFile(t, f)
	}

	batch, err := in.InstallFromRegistry(context.Background())
	if err != nil {
		t.Fatalf("InstallFromRegistry: %v", err)
	}
	if batch.ExitCode() != installer.ExitOK || len(batch.Installs) != 1 {
		t.Fatalf("batch = %+v", batch)
	}
	for _, d := range batch.Installs[0].Dependencies {
		if d.Decision != merger.Unchanged {
			t.Errorf("%s decision = %s, want unchanged", d.Name, d.Decision)
		}
	}
	for _, f := range files {
		if got := readFile(t, f); got != before[f] {
			t.Errorf("%s changed on reinstall:\n%s\nwant\n%s", f, got, before[f])
		}
	}
}

func TestInstallUpgrade(t *testing.T) {
	env := setupTestEnv(t)
	url := setupSparkRepo(t, env, "demo", map[string]string{"manifest.toml": sparkManifest("0.1.0")})
	in := newInstaller(env)
	if rep := in.Add(context.Background(), url); rep.Failure != nil {
		t.Fatalf("Add: %v", rep.Failure)
	}

	repo := filepath.Join(env.RemoteDir, "demo.git")
	writeFile(t, filepath.Join(repo, "manifest.toml"), sparkManifest("0.2.0"))
	commitAll(t, repo, "bump")

	rep := in.Add(context.Background(), url)
	if rep.Failure != nil {
		t.Fatalf("Add: %v", rep.Failure)
	}
	if rep.Integration.Change != linker.Upgrade || rep.Integration.PreviousVersion != "0.1.0" {
		t.Errorf("Integration = %+v, want upgrade from 0.1.0", rep.Integration)
	}
	if rep.Recorded {
		t.Error("Recorded = true on upgrade, want false")
	}
}

func TestInstallMissingRepo(t *testing.T) {
	env := setupTestEnv(t)
	url := "file://" + filepath.ToSlash(filepath.Join(env.RemoteDir, "absent.git"))

	rep := newInstaller(env).Add(context.Background(), url)
	if rep.Failure == nil || !errors.Is(rep.Failure, fetcher.ErrFetchFailed) {
		t.Fatalf("Failure = %v, want ErrFetchFailed", rep.Failure)
	}
	if rep.ExitCode() != installer.ExitFatal {
		t.Errorf("ExitCode() = %d, want 1", rep.ExitCode())
	}
	assertFileNotExists(t, fetcher.WorkDir(env.ProjectDir, "absent"))
}
