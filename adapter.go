package kvauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/kvauth/internal/audit"
	"github.com/MrEthical07/kvauth/internal/keys"
	"github.com/MrEthical07/kvauth/internal/repository"
	"github.com/MrEthical07/kvauth/kvstore"
)

// Adapter implements the authentication adapter operations on a key-value store.
//
// Adapter methods are safe for concurrent use. No in-process locks are taken;
// within one method store calls are issued sequentially in program order.
type Adapter struct {
	config    Config
	connector kvstore.Connector
	layout    keys.Layout
	logger    *slog.Logger
	audit     *audit.Dispatcher
	metrics   *Metrics
	newID     func() string
	now       func() time.Time
}

// Close flushes pending audit events. It does not close stores handed to
// WithStore; their owner does.
func (a *Adapter) Close() {
	if a == nil {
		return
	}
	if a.audit != nil {
		a.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped due to backpressure.
func (a *Adapter) AuditDropped() uint64 {
	if a == nil || a.audit == nil {
		return 0
	}
	return a.audit.Dropped()
}

// MetricsSnapshot returns a copy of the adapter's counters.
func (a *Adapter) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

// Config returns the effective configuration, with prefix defaults applied.
func (a *Adapter) Config() Config {
	return a.config
}

func (a *Adapter) metricInc(id MetricID) {
	if a == nil || a.metrics == nil {
		return
	}
	a.metrics.Inc(id)
}

// withRepo acquires a store for one logical operation and releases it on every
// exit path, panics included.
func (a *Adapter) withRepo(ctx context.Context, op string, fn func(*repository.Repository) error) (err error) {
	start := time.Now()
	defer func() {
		a.metrics.Observe(MetricOperationLatency, time.Since(start))
		if err != nil && errors.Is(err, kvstore.ErrUnavailable) {
			a.metricInc(MetricStoreError)
		}
	}()

	store, release, err := a.connector.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if release == nil {
			return
		}
		if rerr := release(); rerr != nil {
			a.logger.ErrorContext(ctx, "kvauth: store release failed", "op", op, "error", rerr)
		}
	}()

	return fn(repository.New(store, a.layout))
}

// danglingIndex records an index entry whose primary record is gone. Keys are not
// logged: session keys embed the session token.
func (a *Adapter) danglingIndex(ctx context.Context, index, userID string) {
	a.metricInc(MetricDanglingIndex)
	a.logger.WarnContext(ctx, "kvauth: index points at missing record", "index", index, "user_id", userID)
}
