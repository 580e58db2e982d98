package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Arete-Innovations/blast-sub000/internal/branding"
)

// File and directory names inside a host project.
const (
	DescriptorFile    = "Catalyst.toml"
	BuildManifestFile = "Cargo.toml"
	EnvFile           = ".env"
	SparksDir         = "src/services/sparks"
)

// DefaultEnvironment is used when [settings] does not name one.
const DefaultEnvironment = "dev"

// ErrNotFound is returned when no project root can be located.
var ErrNotFound = errors.New("not inside a Catalyst project")

// Project is a host project rooted at Root.
type Project struct {
	Root string
}

// DescriptorPath returns <root>/Catalyst.toml.
func (p *Project) DescriptorPath() string { return filepath.Join(p.Root, DescriptorFile) }

// BuildManifestPath returns <root>/Cargo.toml.
func (p *Project) BuildManifestPath() string { return filepath.Join(p.Root, BuildManifestFile) }

// EnvPath returns <root>/.env.
func (p *Project) EnvPath() string { return filepath.Join(p.Root, EnvFile) }

// SparksDir returns <root>/src/services/sparks.
func (p *Project) SparksDir() string { return filepath.Join(p.Root, filepath.FromSlash(SparksDir)) }

// SparkDir returns the installed directory of the named spark.
func (p *Project) SparkDir(name string) string { return filepath.Join(p.SparksDir(), name) }

// EnvOverride names the variable that points at the project root, e.g.
// BLAST_PROJECT.
func EnvOverride() string { return branding.EnvVar("PROJECT") }

// Resolve picks the project root: dir if non-empty, then $BLAST_PROJECT, then
// the nearest ancestor of the working directory holding Catalyst.toml.
func Resolve(dir string) (*Project, error) {
	if dir == "" {
		dir = os.Getenv(EnvOverride())
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving project path %s: %w", dir, err)
		}
		if _, err := os.Stat(filepath.Join(abs, DescriptorFile)); err != nil {
			return nil, fmt.Errorf("%w: %s has no %s", ErrNotFound, abs, DescriptorFile)
		}
		return &Project{Root: abs}, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return Find(wd)
}

// Find walks up from start to the first directory containing Catalyst.toml.
func Find(start string) (*Project, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, DescriptorFile)); err == nil && !info.IsDir() {
			return &Project{Root: dir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("%w (no %s found above %s)", ErrNotFound, DescriptorFile, start)
		}
		dir = parent
	}
}

// Settings is the [settings] table of the descriptor.
type Settings struct {
	Environment          string `toml:"environment" json:"environment" yaml:"environment"`
	ShowCompilerWarnings bool   `toml:"show_compiler_warnings" json:"show_compiler_warnings" yaml:"show_compiler_warnings"`
}

// LoadSettings decodes [settings] from the descriptor.
func (p *Project) LoadSettings() (Settings, error) {
	data, err := os.ReadFile(p.DescriptorPath())
	if err != nil {
		return Settings{}, fmt.Errorf("reading descriptor: %w", err)
	}
	var doc struct {
		Settings Settings `toml:"settings"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("parsing %s: %w", DescriptorFile, err)
	}
	if doc.Settings.Environment == "" {
		doc.Settings.Environment = DefaultEnvironment
	}
	return doc.Settings, nil
}
