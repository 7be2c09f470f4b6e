package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"gopkg.in/yaml.v3"
)

const (
	preferencesFileName    = "preferences.yaml"
	preferencesFileVersion = "1"
)

// preferencesFile is the on-disk layout of a FileStore.
type preferencesFile struct {
	Version    string            `yaml:"version"`
	Properties map[string]string `yaml:"properties"`
}

// FileStore is a preferences file implementation of analytics.PropertyStore.
// The whole document is held in memory and rewritten atomically on every change:
//
//	<dir>/
//	  preferences.yaml
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// NewFileStore opens (or creates) the preferences file inside dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	f := &FileStore{
		path:   filepath.Join(dir, preferencesFileName),
		values: make(map[string]string),
	}

	if err := f.load(); err != nil {
		return nil, err
	}

	return f, nil
}

// Path returns the preferences file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	value, ok := f.values[key]
	if !ok {
		return nil, analytics.ErrNotFound
	}

	return []byte(value), nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	f.values[key] = string(value)

	if err := f.persist(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}

		return err
	}

	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, ok := f.values[key]
	if !ok {
		return analytics.ErrNotFound
	}

	delete(f.values, key)

	if err := f.persist(); err != nil {
		f.values[key] = prev

		return err
	}

	return nil
}

// Ping checks that the preferences directory is still accessible.
func (f *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("stat preferences directory: %w", err)
	}

	return nil
}

// Close is a no-op; every change is already on disk.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) load() error {
	// #nosec G304 - path is built from the configured data directory
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read preferences: %w", err)
	}

	var doc preferencesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse preferences %s: %w", f.path, err)
	}

	for k, v := range doc.Properties {
		f.values[k] = v
	}

	return nil
}

// persist writes the document to a temp file and renames it over the old one.
func (f *FileStore) persist() error {
	data, err := yaml.Marshal(preferencesFile{
		Version:    preferencesFileVersion,
		Properties: f.values,
	})
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".preferences-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp preferences: %w", err)
	}

	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write preferences: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync preferences: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preferences: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("chmod preferences: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}

	return nil
}

// Compile-time check.
var _ Backend = (*FileStore)(nil)
