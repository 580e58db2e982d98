package linker

import (
	"fmt"
	"os"
	"strings"
)

const (
	matchOpen    = "match name {"
	fallbackArm  = "_ =>"
	armIndentAdd = "    "
)

// registryArm renders the match arm that registers a spark by name.
func registryArm(name, indent string) string {
	return fmt.Sprintf("%s\"%s\" => {\n%s%sregister_spark(name, %s::create_spark);\n%s%strue\n%s},\n",
		indent, name,
		indent, armIndentAdd, name,
		indent, armIndentAdd,
		indent)
}

// addRegistryArm inserts a match arm for name before the fallback arm of the
// first `match name {` block in the spark registry. It is a no-op when the
// registry does not exist, already lists the spark, or has no such block.
func addRegistryArm(path, name string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading spark registry: %w", err)
	}
	content := string(data)

	if strings.Contains(content, `"`+name+`" =>`) {
		return false, nil
	}

	start := strings.Index(content, matchOpen)
	if start < 0 {
		return false, nil
	}
	rel := strings.Index(content[start:], fallbackArm)
	if rel < 0 {
		return false, nil
	}
	pos := start + rel

	// Insert at the start of the fallback arm's line, with its indentation.
	lineStart := strings.LastIndexByte(content[:pos], '\n') + 1
	indent := content[lineStart:pos]
	if strings.TrimSpace(indent) != "" {
		// The fallback shares its line with other code; insert in place.
		lineStart, indent = pos, ""
	}

	updated := content[:lineStart] + registryArm(name, indent) + content[lineStart:]
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("writing spark registry: %w", err)
	}
	return true, nil
}
