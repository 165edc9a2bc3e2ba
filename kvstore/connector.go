package kvstore

import (
	"context"
	"errors"
)

// ReleaseFunc returns a store obtained from a Connector.
type ReleaseFunc func() error

// Connector supplies a Store for the duration of one logical operation.
// Callers must invoke the returned ReleaseFunc on every exit path.
type Connector interface {
	Acquire(ctx context.Context) (Store, ReleaseFunc, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Store, ReleaseFunc, error)

// Acquire calls f. A nil ReleaseFunc from a successful call is replaced with one
// that does nothing.
func (f ConnectorFunc) Acquire(ctx context.Context) (Store, ReleaseFunc, error) {
	store, release, err := f(ctx)
	if err == nil && release == nil {
		release = noRelease
	}
	return store, release, err
}

func noRelease() error { return nil }

type staticConnector struct {
	store Store
}

// Static returns a Connector that always hands out store and never closes it.
func Static(store Store) Connector {
	return staticConnector{store: store}
}

func (c staticConnector) Acquire(context.Context) (Store, ReleaseFunc, error) {
	if c.store == nil {
		return nil, nil, errors.New("kvstore: nil static store")
	}
	return c.store, noRelease, nil
}
