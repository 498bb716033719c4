// utils/file.go
package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchive writes reports below a directory on disk.
type LocalArchive struct {
	Root string
}

// EnsureDir creates the archive root if it doesn't exist
func (a *LocalArchive) EnsureDir() error {
	return os.MkdirAll(a.Root, os.ModePerm)
}

// Put writes data to Root/key, creating parent directories as needed.
func (a *LocalArchive) Put(_ context.Context, key string, data []byte) error {
	dest, err := a.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (a *LocalArchive) pathFor(key string) (string, error) {
	root := filepath.Clean(a.Root)
	dest := filepath.Join(root, filepath.FromSlash(key))
	// keys come from account names; never let one escape the root
	if !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal report key: %s", key)
	}
	return dest, nil
}
