package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements KV as a single json object file.
// Every Set rewrites the whole file via temp file and rename.
type FileStore struct {
	mu    sync.Mutex
	fname string
}

// NewFileStore makes FileStore for fname, creating parent directory if needed
func NewFileStore(fname string) (*FileStore, error) {
	if fname == "" {
		return nil, errors.New("file store location required")
	}
	if err := os.MkdirAll(filepath.Dir(fname), 0o700); err != nil {
		return nil, fmt.Errorf("can't make directory for %s: %w", fname, err)
	}
	return &FileStore{fname: fname}, nil
}

// Get returns value stored under key
func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

// Set stores value under key
func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return err
	}
	data[key] = value

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", f.fname, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.fname), filepath.Base(f.fname)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", f.fname, err)
	}
	if _, err = tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), f.fname); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename %s to %s: %w", tmp.Name(), f.fname, err)
	}
	return nil
}

// Close does nothing, file is not kept open
func (f *FileStore) Close() error { return nil }

// read loads all pairs, missing file is an empty store
func (f *FileStore) read() (map[string]string, error) {
	body, err := os.ReadFile(f.fname)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.fname, err)
	}
	data := map[string]string{}
	if len(body) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.fname, err)
	}
	return data, nil
}
