package linker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"

	"github.com/Arete-Innovations/blast-sub000/internal/manifest"
)

const (
	ModIndexFile = "mod.rs"
	RegistryFile = "registry.rs"
)

// ErrIntegrationFailed wraps filesystem errors while integrating a spark.
var ErrIntegrationFailed = errors.New("integration failed")

// VersionChange compares a previously installed version with the new one.
type VersionChange string

const (
	FreshInstall VersionChange = "fresh"
	Upgrade      VersionChange = "upgrade"
	Downgrade    VersionChange = "downgrade"
	Reinstall    VersionChange = "reinstall"
	Replaced     VersionChange = "replaced" // at least one version is not semver
)

// Classify compares previous and current manifest versions.
func Classify(previous, current string) VersionChange {
	if previous == "" {
		return FreshInstall
	}
	if previous == current {
		return Reinstall
	}
	pv, err := semver.NewVersion(previous)
	if err != nil {
		return Replaced
	}
	cv, err := semver.NewVersion(current)
	if err != nil {
		return Replaced
	}
	switch pv.Compare(cv) {
	case -1:
		return Upgrade
	case 1:
		return Downgrade
	}
	return Reinstall
}

// Integrator installs sparks into Dir, the host's sparks directory.
type Integrator struct {
	Dir    string
	Logger *slog.Logger
}

// Result describes one integration.
type Result struct {
	Dest            string // installed spark directory
	PreviousVersion string // version of the replaced install, or ""
	IndexCreated    bool   // mod.rs did not exist and was created
	ModuleAdded     bool   // pub mod line appended
	RegistryUpdated bool   // match arm inserted into registry.rs
}

// Integrate copies workDir to <Dir>/<name>, replacing an earlier install,
// and registers the module. Running it twice leaves the same files as
// running it once.
func (in *Integrator) Integrate(workDir, name string) (Result, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !manifest.NamePattern.MatchString(name) {
		return Result{}, fmt.Errorf("%w: invalid spark name %q", ErrIntegrationFailed, name)
	}

	if err := os.MkdirAll(in.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: creating %s: %v", ErrIntegrationFailed, in.Dir, err)
	}

	res := Result{Dest: filepath.Join(in.Dir, name)}
	var err error
	if res.IndexCreated, err = ensureModIndex(filepath.Join(in.Dir, ModIndexFile)); err != nil {
		return res, fmt.Errorf("%w: %v", ErrIntegrationFailed, err)
	}

	res.PreviousVersion = InstalledVersion(res.Dest)
	if _, statErr := os.Stat(res.Dest); statErr == nil {
		if err := os.RemoveAll(res.Dest); err != nil {
			return res, fmt.Errorf("%w: removing existing installation at %s: %v", ErrIntegrationFailed, res.Dest, err)
		}
	}
	if err := copyDir(workDir, res.Dest); err != nil {
		return res, fmt.Errorf("%w: copying %s to %s: %v", ErrIntegrationFailed, workDir, res.Dest, err)
	}
	logger.Info("copied spark sources", "spark", name, "dest", res.Dest)

	if res.ModuleAdded, err = addModule(filepath.Join(in.Dir, ModIndexFile), name); err != nil {
		return res, fmt.Errorf("%w: %v", ErrIntegrationFailed, err)
	}
	if res.RegistryUpdated, err = addRegistryArm(filepath.Join(in.Dir, RegistryFile), name); err != nil {
		return res, fmt.Errorf("%w: %v", ErrIntegrationFailed, err)
	}
	if res.RegistryUpdated {
		logger.Info("registered spark in registry", "spark", name)
	}
	return res, nil
}

// InstalledVersion returns the [spark] version of the manifest installed in
// dir, or "" if there is none. The manifest is not validated.
func InstalledVersion(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return ""
	}
	var m struct {
		Spark struct {
			Version string `toml:"version"`
		} `toml:"spark"`
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return ""
	}
	return m.Spark.Version
}
