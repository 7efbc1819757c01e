// Package store provides run ledger implementations.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of doorsim's state directory.
const DirName = ".doorsim"

// DBName is the ledger database file inside DirName.
const DBName = "doorsim.db"

// LocalPath returns the path to the local .doorsim directory
// for the given project root.
func LocalPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// EnsureLocalDir creates the local .doorsim directory if it doesn't exist
// and returns its path.
func EnsureLocalDir(projectRoot string) (string, error) {
	dir := LocalPath(projectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}
	return dir, nil
}
