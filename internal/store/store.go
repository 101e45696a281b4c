// Package store persists the save record and the leaderboard in a key-value store.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tatianab/mahes-quest/internal/store/sqlite"
)

// KV is an opaque key-value blob store. Get reports found=false for missing keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open returns the KV backend for driver.
func Open(driver, dir, sqlitePath string) (KV, error) {
	switch driver {
	case DriverFile, "":
		return NewFileKV(dir), nil
	case DriverSQLite:
		s, err := sqlite.Open(sqlitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// MemoryKV keeps records in process memory only.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
