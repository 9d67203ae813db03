package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalStorage archives reports under a directory on disk
type LocalStorage struct {
	dir string
}

// Ensure LocalStorage implements StorageInterface
var _ StorageInterface = (*LocalStorage)(nil)

// NewLocalStorage creates the archive directory if needed
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (l *LocalStorage) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	return filepath.Join(l.dir, clean), nil
}

// Store writes a report file, creating parent directories
func (l *LocalStorage) Store(ctx context.Context, name string, data []byte) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	logrus.Infof("Archived %s to %s", name, path)
	return nil
}

// Retrieve reads a report file
func (l *LocalStorage) Retrieve(ctx context.Context, name string) ([]byte, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// List returns slash-separated names under prefix in lexical order
func (l *LocalStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
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
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes a report file
func (l *LocalStorage) Delete(ctx context.Context, name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
