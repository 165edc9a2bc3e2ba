package kvauth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/kvauth/internal/audit"
	"github.com/MrEthical07/kvauth/kvstore"
)

// Builder assembles an [Adapter].
//
// Builder instances are single-use: Build may be called once.
type Builder struct {
	config    Config
	connector kvstore.Connector
	logger    *slog.Logger
	auditSink AuditSink
	newID     func() string

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. Empty key prefixes fall back to defaults.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore uses one long-lived store for every operation.
func (b *Builder) WithStore(store kvstore.Store) *Builder {
	if store == nil {
		b.connector = nil
		return b
	}
	b.connector = kvstore.Static(store)
	return b
}

// WithConnector acquires a store per operation and releases it when the operation
// returns.
func (b *Builder) WithConnector(c kvstore.Connector) *Builder {
	b.connector = c
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit sink and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the operation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithIDGenerator overrides user id generation. The default is a random UUID.
func (b *Builder) WithIDGenerator(fn func() string) *Builder {
	b.newID = fn
	return b
}

// Build validates the configuration and returns the Adapter.
func (b *Builder) Build() (*Adapter, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.connector == nil {
		return nil, ErrStoreRequired
	}

	cfg := b.config
	cfg.KeyPrefixes = cfg.KeyPrefixes.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	adapter := &Adapter{
		config:    cfg,
		connector: b.connector,
		layout:    cfg.KeyPrefixes.layout(),
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		newID:     newID,
		now:       time.Now,
	}
	adapter.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return adapter, nil
}
