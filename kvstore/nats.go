package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore is a Store backed by a JetStream key-value bucket.
//
// JetStream keys are limited to [-/_=.a-zA-Z0-9]; a key outside that grammar fails
// with ErrInvalidKey.
type NATSStore struct {
	kv jetstream.KeyValue
}

// NewNATSStore wraps an opened bucket.
func NewNATSStore(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// Put writes a new revision of key.
func (s *NATSStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return wrapNATS(err)
	}
	return nil
}

// Get reads the latest revision of key. Deleted and purged keys yield (nil, nil).
func (s *NATSStore) Get(ctx context.Context, key string) (*Entry, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, nil
		}
		return nil, wrapNATS(err)
	}
	return &Entry{Key: entry.Key(), Value: entry.Value(), Revision: entry.Revision()}, nil
}

// Purge removes key and all of its history, leaving a single purge marker.
func (s *NATSStore) Purge(ctx context.Context, key string) error {
	if err := s.kv.Purge(ctx, key); err != nil {
		return wrapNATS(err)
	}
	return nil
}

func wrapNATS(err error) error {
	if errors.Is(err, jetstream.ErrInvalidKey) {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Keys lists live keys starting with prefix.
func (s *NATSStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = lister.Stop() }()

	var out []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

// OpenNATSBucket creates the bucket if needed and returns it.
func OpenNATSBucket(ctx context.Context, nc *nats.Conn, bucket string) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return kv, nil
}

// NewNATSDialer returns a Connector that connects to url, binds to an existing
// bucket, and closes the connection on release.
func NewNATSDialer(url, bucket string, opts ...nats.Option) Connector {
	return ConnectorFunc(func(ctx context.Context) (Store, ReleaseFunc, error) {
		nc, err := nats.Connect(url, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		kv, err := js.KeyValue(ctx, bucket)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return NewNATSStore(kv), func() error {
			nc.Close()
			return nil
		}, nil
	})
}
