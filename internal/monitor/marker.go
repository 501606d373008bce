package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// MarkerStore holds the process-wide restart marker. ok is false when the
// marker has never been written.
type MarkerStore interface {
	Load(ctx context.Context) (t time.Time, ok bool, err error)
	Store(ctx context.Context, t time.Time) error
}

// SignalRestart writes now into the marker, asking every running daemon
// to recycle at its next check.
func SignalRestart(ctx context.Context, marker MarkerStore, now time.Time) error {
	if err := marker.Store(ctx, now); err != nil {
		return fmt.Errorf("failed to signal restart: %w", err)
	}
	return nil
}

// MemoryMarker is an in-process MarkerStore
type MemoryMarker struct {
	mu  sync.RWMutex
	t   time.Time
	set bool
}

// NewMemoryMarker creates an empty in-process marker
func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{}
}

// Load implements MarkerStore.Load
func (m *MemoryMarker) Load(ctx context.Context) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t, m.set, nil
}

// Store implements MarkerStore.Store
func (m *MemoryMarker) Store(ctx context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = time.Unix(t.Unix(), 0)
	m.set = true
	return nil
}

// KVMarker keeps the marker in a JetStream key/value bucket so that it can
// be written from any host connected to the same NATS cluster.
type KVMarker struct {
	kv  nats.KeyValue
	key string
}

var kvKeyReplacer = strings.NewReplacer(":", ".", " ", "_")

// NewKVMarker binds to bucket, creating it when missing. Characters that
// are not valid in KV keys are rewritten, so "crontab:restart" is stored
// as "crontab.restart".
func NewKVMarker(js nats.JetStreamContext, bucket, key string) (*KVMarker, error) {
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "crontab restart marker",
			History:     1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to bind key value bucket %s: %w", bucket, err)
	}

	return &KVMarker{
		kv:  kv,
		key: kvKeyReplacer.Replace(key),
	}, nil
}

// Key returns the key used inside the bucket
func (m *KVMarker) Key() string {
	return m.key
}

// Load implements MarkerStore.Load
func (m *KVMarker) Load(ctx context.Context) (time.Time, bool, error) {
	entry, err := m.kv.Get(m.key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to load marker %s: %w", m.key, err)
	}

	value, err := strconv.ParseInt(string(entry.Value()), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid marker value %q: %w", entry.Value(), err)
	}
	return time.Unix(value, 0), true, nil
}

// Store implements MarkerStore.Store
func (m *KVMarker) Store(ctx context.Context, t time.Time) error {
	if _, err := m.kv.Put(m.key, []byte(strconv.FormatInt(t.Unix(), 10))); err != nil {
		return fmt.Errorf("failed to store marker %s: %w", m.key, err)
	}
	return nil
}
