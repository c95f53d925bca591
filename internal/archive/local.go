package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchiver stores payloads under a directory on disk. Intended for
// development and single-node deployments without blob storage.
type LocalArchiver struct {
	root string
}

var _ Archiver = (*LocalArchiver)(nil)

// NewLocalArchiver creates a filesystem-backed archiver rooted at dir.
func NewLocalArchiver(dir string) (*LocalArchiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchiver{root: dir}, nil
}

func (a *LocalArchiver) path(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid archive name %q", name)
	}
	return filepath.Join(a.root, cleaned), nil
}

// Store writes the payload to disk, creating parent directories as needed.
func (a *LocalArchiver) Store(name string, data []byte) error {
	path, err := a.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive file %s: %w", name, err)
	}
	return nil
}

// Retrieve reads one archived payload.
func (a *LocalArchiver) Retrieve(name string) ([]byte, error) {
	path, err := a.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive file %s: %w", name, err)
	}
	return data, nil
}

// List walks the archive directory and returns names under a prefix.
func (a *LocalArchiver) List(prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list archive files: %w", err)
	}
	return names, nil
}

// Delete removes one archived payload.
func (a *LocalArchiver) Delete(name string) error {
	path, err := a.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete archive file %s: %w", name, err)
	}
	return nil
}
