package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the registry file FindConfig looks for.
const ConfigFileName = "timeline.yaml"

// FindConfig looks upwards from startDir for a registry file, so the CLI
// picks up a project's timeline.yaml from any subdirectory.
// It returns the absolute path of the first match.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found", ConfigFileName)
}
