package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// ManifestName is the file that marks a project root.
const ManifestName = "arcanum.toml"

// FindProjectRoot traverses up from the working directory until it finds a
// directory containing arcanum.toml. Returns an empty string if no manifest
// is found before the filesystem root or one level above the home directory.
func FindProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return FindProjectRootFrom(currentDir)
}

// FindProjectRootFrom is FindProjectRoot starting at an explicit directory.
func FindProjectRootFrom(startDir string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	currentDir := startDir
	for {
		// Stop searching at one level above the home directory.
		if currentDir == filepath.Dir(homeDir) {
			return "", nil
		}

		manifest := filepath.Join(currentDir, ManifestName)
		fileInfo, err := os.Stat(manifest)
		if err == nil {
			if fileInfo.Mode().IsRegular() {
				return currentDir, nil
			}
		} else if !os.IsNotExist(err) {
			// Surface anything that's not "file not found" (like permission issues).
			return "", fmt.Errorf("error checking for %s at %s: %w", ManifestName, currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}
