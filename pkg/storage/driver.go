// Package storage defines the key-value persistence used for reading history
// and saved readings, and the JSON helpers shared by its callers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Driver persists opaque values by key.
type Driver interface {
	// Get returns the value stored under key, or NotFoundError.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close closes the store and releases any resources.
	Close() error
}

// GetJSON decodes the value under key into v. It reports false, with no
// error, when the key does not exist.
func GetJSON(ctx context.Context, d Driver, key string, v any) (bool, error) {
	raw, err := d.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, d Driver, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return d.Set(ctx, key, raw)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
