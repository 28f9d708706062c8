package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("store: key not found")

// KV is the byte-level persistence used by Documents. Implementations must be
// safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Backend   string // gorm | pebble | redis | memory
	DB        *gorm.DB
	PebbleDir string
	Redis     *redis.Client
}

// Open builds the configured backend. Backends that hold resources also
// implement io.Closer.
func Open(opts Options) (KV, error) {
	switch opts.Backend {
	case "gorm", "":
		if opts.DB == nil {
			return nil, errors.New("store: gorm backend needs a database")
		}
		return NewGormKV(opts.DB), nil
	case "pebble":
		return NewPebbleKV(opts.PebbleDir)
	case "redis":
		if opts.Redis == nil {
			return nil, errors.New("store: redis backend needs a client")
		}
		return NewRedisKV(opts.Redis), nil
	case "memory":
		return NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
}

type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
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
