// Package state persists per-user and per-conversation bot state as opaque
// records keyed by partition and row.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ErrNotFound is returned by Store.Get when no record exists for a key.
var ErrNotFound = errors.New("state: record not found")

// Key addresses a single record. Partition is the chat platform; Row is the
// scope-qualified identifier ("user:<id>", "conversation:<id>" or
// "conversation:<id>#user:<id>").
type Key struct {
	Partition string
	Row       string
}

// UserKey returns the key for a user-scoped record.
func UserKey(platform, userID string) Key {
	return Key{Partition: platform, Row: "user:" + userID}
}

// ConversationKey returns the key for a conversation-scoped record.
func ConversationKey(platform, conversationID string) Key {
	return Key{Partition: platform, Row: "conversation:" + conversationID}
}

// SessionKey returns the key for one user's private record within a
// conversation. Members of a shared channel never see each other's
// sessions.
func SessionKey(platform, conversationID, userID string) Key {
	return Key{Partition: platform, Row: "conversation:" + conversationID + "#user:" + userID}
}

func (k Key) String() string {
	return k.Partition + ":" + k.Row
}

// Record is a stored state blob. When Compressed is set, Data is gzip
// compressed JSON.
type Record struct {
	Data       []byte
	Compressed bool
	UpdatedAt  time.Time
}

// Store is a key/value backend for state records.
type Store interface {
	Get(ctx context.Context, key Key) (Record, error)
	Put(ctx context.Context, key Key, rec Record) error
	Delete(ctx context.Context, key Key) error
}

// Purger is implemented by stores that can drop stale records in bulk.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Manager serializes typed values into records on top of a Store.
type Manager struct {
	Store    Store
	Compress bool
}

// Load reads the record for key into v. It reports false with a nil error
// when the record does not exist, leaving v untouched.
func (m *Manager) Load(ctx context.Context, key Key, v interface{}) (bool, error) {
	rec, err := m.Store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: load %s: %w", key, err)
	}
	data := rec.Data
	if rec.Compressed {
		data, err = gunzip(data)
		if err != nil {
			return false, fmt.Errorf("state: decompress %s: %w", key, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

// Save writes v as the record for key, compressing it when enabled.
func (m *Manager) Save(ctx context.Context, key Key, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	rec := Record{Data: data, UpdatedAt: time.Now().UTC()}
	if m.Compress {
		rec.Data, err = gzipBytes(data)
		if err != nil {
			return fmt.Errorf("state: compress %s: %w", key, err)
		}
		rec.Compressed = true
	}
	if err := m.Store.Put(ctx, key, rec); err != nil {
		return fmt.Errorf("state: save %s: %w", key, err)
	}
	return nil
}

// Delete removes the record for key. Deleting a missing key is not an error.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.Store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("state: delete %s: %w", key, err)
	}
	return nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
