package kvstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnavailable wraps every failure reported by a backend client.
var ErrUnavailable = errors.New("kv store unavailable")

// ErrInvalidKey is returned when a backend rejects a key's characters.
var ErrInvalidKey = errors.New("kv store rejected key")

// Store is the set of primitives the adapter needs from a key-value backend.
//
// Get returns (nil, nil) when the key is absent or has been purged.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) (*Entry, error)
	Purge(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Entry is a stored value.
type Entry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// Len returns the stored byte length; a nil entry has length zero.
func (e *Entry) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Value)
}

// String returns the value as UTF-8 text.
func (e *Entry) String() string {
	if e == nil {
		return ""
	}
	return string(e.Value)
}

// JSON decodes the value into v.
func (e *Entry) JSON(v any) error {
	if e == nil {
		return errors.New("nil entry")
	}
	return json.Unmarshal(e.Value, v)
}
