// Package kv defines the durable key/value capability consumed by the
// payment, subscription and access services. Values are opaque bytes; the
// JSON helpers layer typed records on top. Stores never expire keys.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal surface a backend must provide.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Scan calls fn for every key starting with prefix. Returning false from
	// fn stops the iteration. Ordering is backend defined.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) bool) error
}

// Key joins non-empty parts with ':'.
func Key(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}

// GetJSON loads key into dest. It returns ErrNotFound untouched so callers can
// branch on it with errors.Is.
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutJSON stores value under key, replacing any previous value.
func PutJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// List decodes every value under prefix and keeps those matching pred. A nil
// predicate keeps everything. Undecodable values are skipped.
func List[T any](ctx context.Context, s Store, prefix string, pred func(T) bool) ([]T, error) {
	var out []T
	err := s.Scan(ctx, prefix, func(_ string, value []byte) bool {
		var item T
		if err := json.Unmarshal(value, &item); err != nil {
			return true
		}
		if pred == nil || pred(item) {
			out = append(out, item)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
