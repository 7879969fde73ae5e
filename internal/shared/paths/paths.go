package paths

import (
	"os"
	"path/filepath"
)

const appDirName = ".legacy-code-converter"

var dataDirOverride string

// SetDataDir overrides the data directory (DATA_DIR).
func SetDataDir(dir string) {
	dataDirOverride = dir
}

// GetDataDir returns ~/.legacy-code-converter unless overridden.
func GetDataDir() string {
	if dataDirOverride != "" {
		return dataDirOverride
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, appDirName)
}

func GetDBPath() string {
	return filepath.Join(GetDataDir(), "local.db")
}

func EnsureDataDirs() error {
	return os.MkdirAll(GetDataDir(), 0o755)
}
