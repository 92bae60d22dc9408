package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalStorage keeps artifacts as files under a root directory
type LocalStorage struct {
	root string
}

var _ StorageInterface = (*LocalStorage)(nil)

// NewLocalStorage creates the root directory if it does not exist
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "reports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) path(name string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Store writes through a temporary file so readers never see a partial artifact
func (s *LocalStorage) Store(name string, data []byte) error {
	target, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"artifact": name,
		"bytes":    len(data),
	}).Info("Stored artifact on local disk")
	return nil
}

func (s *LocalStorage) Retrieve(name string) ([]byte, error) {
	target, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("artifact %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// List returns artifact names starting with prefix, sorted
func (s *LocalStorage) List(prefix string) ([]string, error) {
	var names []string

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".artifact-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
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
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

func (s *LocalStorage) Delete(name string) error {
	target, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("artifact %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	logrus.WithField("artifact", name).Info("Deleted artifact from local disk")
	return nil
}
