package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleKV is the embedded single-process backend.
type PebbleKV struct {
	db *pebble.DB
}

func NewPebbleKV(dir string) (*PebbleKV, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleKV{db: d}, nil
}

func (p *PebbleKV) Close() error { return p.db.Close() }

func (p *PebbleKV) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	// v is only valid until closer.Close
	return append([]byte(nil), v...), nil
}

func (p *PebbleKV) Set(_ context.Context, key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleKV) Delete(_ context.Context, key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}
