package linker

import (
	"fmt"
	"os"
	"strings"
)

// ModIndexHeader opens a generated mod.rs.
const ModIndexHeader = "//here you include the modules you want to expose to the outside world\n"

func moduleLine(name string) string {
	return "pub mod " + name + ";"
}

// ensureModIndex creates path with the header if it does not exist.
func ensureModIndex(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(ModIndexHeader), 0o644); err != nil {
		return false, fmt.Errorf("creating module index: %w", err)
	}
	return true, nil
}

// addModule appends `pub mod <name>;` to the module index unless it is
// already declared.
func addModule(path, name string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading module index: %w", err)
	}

	line := moduleLine(name)
	for _, l := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(l) == line {
			return false, nil
		}
	}

	suffix := line + "\n"
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		suffix = "\n" + suffix
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("opening module index for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(suffix); err != nil {
		return false, fmt.Errorf("writing module index: %w", err)
	}
	return true, nil
}

// Modules lists the modules declared in the module index at path.
func Modules(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, l := range strings.Split(string(content), "\n") {
		l = strings.TrimSpace(l)
		if rest, ok := strings.CutPrefix(l, "pub mod "); ok {
			if name, ok := strings.CutSuffix(rest, ";"); ok {
				names = append(names, strings.TrimSpace(name))
			}
		}
	}
	return names, nil
}
