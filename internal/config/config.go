package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Arete-Innovations/blast-sub000/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Configuration keys.
const (
	KeyFetchBranch         = "fetch.branch"
	KeyFetchConnectTimeout = "fetch.connect_timeout"
	KeyFetchLowSpeedTime   = "fetch.low_speed_time"
	KeyFetchLowSpeedLimit  = "fetch.low_speed_limit"
	KeyEnvPlaceholder      = "env.placeholder"
	KeyEditorCandidates    = "editor.candidates"
	KeyMigrationCommand    = "migration.command"
)

var (
	// ErrUnknownKey is returned by Set for keys blast does not read.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned by Set for values a key cannot hold.
	ErrInvalidValue = errors.New("invalid config value")
)

var defaults = map[string]any{
	KeyFetchBranch:         "",
	KeyFetchConnectTimeout: "30s",
	KeyFetchLowSpeedTime:   "60s",
	KeyFetchLowSpeedLimit:  1000,
	KeyEnvPlaceholder:      "REPLACE_THIS_WITH_YOUR_VALUE",
	KeyEditorCandidates:    "nano,vim,vi,gedit,code,emacs,sublime,pico",
	KeyMigrationCommand:    "diesel",
}

// Keys returns the known configuration keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Dir returns the path to the blast config directory (~/.blast/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.blast/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// fetch.branch is overridden by BLAST_FETCH_BRANCH, and so on.
func Load() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("%w %q (known keys: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	if err := validate(key, value); err != nil {
		return err
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func validate(key, value string) error {
	switch key {
	case KeyFetchConnectTimeout, KeyFetchLowSpeedTime:
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration such as 30s, got %q", ErrInvalidValue, key, value)
		}
	case KeyFetchLowSpeedLimit:
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive number of bytes per second, got %q", ErrInvalidValue, key, value)
		}
	case KeyEnvPlaceholder, KeyMigrationCommand:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidValue, key)
		}
	}
	return nil
}

// Settings are the effective user settings.
type Settings struct {
	Branch           string
	ConnectTimeout   time.Duration
	LowSpeedTime     time.Duration
	LowSpeedLimit    int
	Placeholder      string
	EditorCandidates []string
	MigrationCommand string
}

// Current returns the settings from Viper. Call Load first.
func Current() Settings {
	return Settings{
		Branch:           viper.GetString(KeyFetchBranch),
		ConnectTimeout:   viper.GetDuration(KeyFetchConnectTimeout),
		LowSpeedTime:     viper.GetDuration(KeyFetchLowSpeedTime),
		LowSpeedLimit:    viper.GetInt(KeyFetchLowSpeedLimit),
		Placeholder:      viper.GetString(KeyEnvPlaceholder),
		EditorCandidates: splitList(viper.GetString(KeyEditorCandidates)),
		MigrationCommand: viper.GetString(KeyMigrationCommand),
	}
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
