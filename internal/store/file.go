package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brandforge/contentpilot/pkg/logger"
)

// File persists the whole keyspace as a single JSON document on disk,
// the closest server-side analogue of browser local storage. Malformed
// content on load is treated as an empty store rather than an error.
type File struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

func NewFile(path string) (*File, error) {
	f := &File{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(raw, &f.data); err != nil {
		logger.Warn("Discarding malformed store file", "path", path, "error", err)
		f.data = make(map[string]json.RawMessage)
	}
	return f, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	// The keyspace is one JSON document, so a non-JSON value would
	// poison every later flush.
	if !json.Valid(value) {
		return fmt.Errorf("store: value for key %q is not valid JSON", key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(json.RawMessage, len(value))
	copy(cp, value)
	f.data[key] = cp
	return f.flush()
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flush()
}

// flush writes via a temp file and rename so a crash never leaves a
// half-written document.
func (f *File) flush() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
