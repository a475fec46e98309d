// Package inmemory provides a map-backed storage driver for tests and
// ephemeral sessions.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/tarot/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the map of values
	mu sync.RWMutex

	values map[string][]byte
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (d *Driver) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.values[key]
	if !ok {
		return nil, storage.NotFoundError{Key: key}
	}
	return slices.Clone(v), nil
}

// Set stores a copy of value under key.
func (d *Driver) Set(_ context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.values[key] = slices.Clone(value)
	return nil
}

// Remove deletes key.
func (d *Driver) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.values, key)
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
