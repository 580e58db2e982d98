package platform

import (
	"os"
	"runtime"
)

// FilePermSecure is the mode for files holding secrets, such as .env.
const FilePermSecure os.FileMode = 0o600

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}
