package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// SchemaVersion is the envelope version written by Save.
const SchemaVersion = 1

var ErrFutureVersion = errors.New("store: document written by a newer schema")

// Envelope wraps every persisted document.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Data          json.RawMessage `json:"data"`
}

// Migration upgrades an envelope from its current version to the next one.
// Documents bumps SchemaVersion after a migration returns.
type Migration func(env *Envelope) error

// Documents stores JSON values in a KV inside a versioned envelope. Reads
// upgrade older versions in place and drop payloads that cannot be decoded.
type Documents struct {
	kv         KV
	migrations map[int]Migration
	now        func() time.Time
}

func NewDocuments(kv KV) *Documents {
	return &Documents{
		kv:         kv,
		migrations: map[int]Migration{0: migrateLegacy},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register replaces the migration that upgrades documents at version from.
func (d *Documents) Register(from int, m Migration) {
	d.migrations[from] = m
}

// Load decodes the document at key into dest and returns its last write
// time. Missing or corrupt documents report ErrNotFound.
func (d *Documents) Load(ctx context.Context, key string, dest any) (time.Time, error) {
	raw, err := d.kv.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return time.Time{}, d.discard(ctx, key, err)
	}
	if env.SchemaVersion > SchemaVersion {
		return time.Time{}, fmt.Errorf("%w: %s is v%d", ErrFutureVersion, key, env.SchemaVersion)
	}

	if env.SchemaVersion < SchemaVersion {
		from := env.SchemaVersion
		if err := d.migrate(&env); err != nil {
			return time.Time{}, d.discard(ctx, key, err)
		}
		if err := d.write(ctx, key, env); err != nil {
			return time.Time{}, err
		}
		log.Printf("[store] migrated %s from v%d to v%d", key, from, env.SchemaVersion)
	}

	if err := json.Unmarshal(env.Data, dest); err != nil {
		return time.Time{}, d.discard(ctx, key, err)
	}
	return env.UpdatedAt, nil
}

// Save replaces the document at key and stamps it with the current time.
func (d *Documents) Save(ctx context.Context, key string, v any) (time.Time, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode %s: %w", key, err)
	}
	env := Envelope{SchemaVersion: SchemaVersion, UpdatedAt: d.now(), Data: data}
	if err := d.write(ctx, key, env); err != nil {
		return time.Time{}, err
	}
	return env.UpdatedAt, nil
}

func (d *Documents) Delete(ctx context.Context, key string) error {
	return d.kv.Delete(ctx, key)
}

func (d *Documents) write(ctx context.Context, key string, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return d.kv.Set(ctx, key, b)
}

func (d *Documents) migrate(env *Envelope) error {
	for env.SchemaVersion < SchemaVersion {
		m, ok := d.migrations[env.SchemaVersion]
		if !ok {
			return fmt.Errorf("no migration from v%d", env.SchemaVersion)
		}
		if err := m(env); err != nil {
			return fmt.Errorf("migrate from v%d: %w", env.SchemaVersion, err)
		}
		env.SchemaVersion++
	}
	return nil
}

func (d *Documents) discard(ctx context.Context, key string, cause error) error {
	log.Printf("[store] clearing corrupt document %s: %v", key, cause)
	if err := d.kv.Delete(ctx, key); err != nil {
		log.Printf("[store] delete %s failed: %v", key, err)
	}
	return ErrNotFound
}

// decodeEnvelope accepts both enveloped documents and bare legacy values,
// which are reported as version 0 with the raw value as Data.
func decodeEnvelope(raw []byte) (Envelope, error) {
	if !json.Valid(raw) {
		return Envelope{}, errors.New("invalid json")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil {
		if _, ok := probe["schema_version"]; ok {
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return Envelope{}, err
			}
			if len(env.Data) == 0 {
				return Envelope{}, errors.New("envelope without data")
			}
			return env, nil
		}
	}
	return Envelope{SchemaVersion: 0, Data: bytes.TrimSpace(raw)}, nil
}

// migrateLegacy lifts a bare value into v1. Legacy maps kept their write time
// as a "timestamp" entry (RFC 3339 or epoch millis) next to the real entries.
func migrateLegacy(env *Envelope) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &m); err != nil {
		// arrays and scalars carry no timestamp
		return nil
	}

	if ts, ok := m["timestamp"]; ok {
		if at, ok := parseLegacyTime(ts); ok {
			env.UpdatedAt = at
		}
		delete(m, "timestamp")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	env.Data = data
	return nil
}

func parseLegacyTime(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		return t.UTC(), err == nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}
