// Package config manages user-level settings stored at ~/.blast/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the clone timeouts, the env placeholder and the migration tool, and maps
// them into a Settings value for the installer.
package config
