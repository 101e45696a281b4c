package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var cleanKeyRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FileKV stores each key as <dir>/<key>.yaml.
type FileKV struct {
	mu  sync.Mutex
	dir string
}

func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, cleanKeyRe.ReplaceAllString(key, "")+".yaml")
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set replaces the whole record via a temp file and rename.
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return err
	}
	path := f.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileKV) Close() error { return nil }
