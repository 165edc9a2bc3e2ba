package kvauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrEthical07/kvauth/internal/keys"
)

// EnvPrefix namespaces the variables read by [LoadConfigFromEnv].
const EnvPrefix = "KVAUTH_"

// Config defines the adapter configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	KeyPrefixes KeyPrefixConfig
	Cascade     CascadeConfig `envPrefix:"CASCADE_"`
	Audit       AuditConfig   `envPrefix:"AUDIT_"`
	Metrics     MetricsConfig `envPrefix:"METRICS_"`
}

/*
====================================
KEY PREFIX CONFIG
====================================
*/

// KeyPrefixConfig namespaces every derived key. The effective prefix of a record
// kind is BaseKeyPrefix followed by its specific prefix.
type KeyPrefixConfig struct {
	BaseKeyPrefix              string `env:"BASE_KEY_PREFIX"`
	AccountKeyPrefix           string `env:"ACCOUNT_KEY_PREFIX"`
	AccountByUserIDPrefix      string `env:"ACCOUNT_BY_USER_ID_PREFIX"`
	EmailKeyPrefix             string `env:"EMAIL_KEY_PREFIX"`
	SessionKeyPrefix           string `env:"SESSION_KEY_PREFIX"`
	SessionByUserIDKeyPrefix   string `env:"SESSION_BY_USER_ID_KEY_PREFIX"`
	UserKeyPrefix              string `env:"USER_KEY_PREFIX"`
	VerificationTokenKeyPrefix string `env:"VERIFICATION_TOKEN_KEY_PREFIX"`
}

// DefaultKeyPrefixes returns the documented default prefixes.
func DefaultKeyPrefixes() KeyPrefixConfig {
	return KeyPrefixConfig{
		BaseKeyPrefix:              "",
		AccountKeyPrefix:           "user.account.",
		AccountByUserIDPrefix:      "user.account.by-user-id.",
		EmailKeyPrefix:             "user.email.",
		SessionKeyPrefix:           "user.session.",
		SessionByUserIDKeyPrefix:   "user.session.by-user-id.",
		UserKeyPrefix:              "user.",
		VerificationTokenKeyPrefix: "user.token.",
	}
}

// withDefaults fills every empty specific prefix from the defaults.
func (c KeyPrefixConfig) withDefaults() KeyPrefixConfig {
	d := DefaultKeyPrefixes()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.AccountKeyPrefix, d.AccountKeyPrefix)
	fill(&c.AccountByUserIDPrefix, d.AccountByUserIDPrefix)
	fill(&c.EmailKeyPrefix, d.EmailKeyPrefix)
	fill(&c.SessionKeyPrefix, d.SessionKeyPrefix)
	fill(&c.SessionByUserIDKeyPrefix, d.SessionByUserIDKeyPrefix)
	fill(&c.UserKeyPrefix, d.UserKeyPrefix)
	fill(&c.VerificationTokenKeyPrefix, d.VerificationTokenKeyPrefix)
	return c
}

func (c KeyPrefixConfig) layout() keys.Layout {
	return keys.NewLayout(c.BaseKeyPrefix, keys.Prefixes{
		Account:           c.AccountKeyPrefix,
		AccountByUser:     c.AccountByUserIDPrefix,
		Email:             c.EmailKeyPrefix,
		Session:           c.SessionKeyPrefix,
		SessionByUser:     c.SessionByUserIDKeyPrefix,
		User:              c.UserKeyPrefix,
		VerificationToken: c.VerificationTokenKeyPrefix,
	})
}

/*
====================================
CASCADE CONFIG
====================================
*/

// CascadeConfig controls retries of the DeleteUser cascade. Only the steps that
// have not completed are retried.
type CascadeConfig struct {
	MaxAttempts     int           `env:"MAX_ATTEMPTS"`
	InitialInterval time.Duration `env:"INITIAL_INTERVAL"`
	MaxInterval     time.Duration `env:"MAX_INTERVAL"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a Config with documented defaults: default prefixes, a
// single cascade attempt, audit off, counters on.
func DefaultConfig() Config {
	return Config{
		KeyPrefixes: DefaultKeyPrefixes(),
		Cascade: CascadeConfig{
			MaxAttempts:     1,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// LoadConfigFromEnv overlays KVAUTH_* environment variables on DefaultConfig.
//
// Recognized variables: KVAUTH_BASE_KEY_PREFIX, KVAUTH_ACCOUNT_KEY_PREFIX,
// KVAUTH_ACCOUNT_BY_USER_ID_PREFIX, KVAUTH_EMAIL_KEY_PREFIX, KVAUTH_SESSION_KEY_PREFIX,
// KVAUTH_SESSION_BY_USER_ID_KEY_PREFIX, KVAUTH_USER_KEY_PREFIX,
// KVAUTH_VERIFICATION_TOKEN_KEY_PREFIX, KVAUTH_CASCADE_*, KVAUTH_AUDIT_*, KVAUTH_METRICS_*.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("kvauth: parse env config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	p := c.KeyPrefixes
	specific := map[string]string{
		"AccountKeyPrefix":           p.AccountKeyPrefix,
		"AccountByUserIDPrefix":      p.AccountByUserIDPrefix,
		"EmailKeyPrefix":             p.EmailKeyPrefix,
		"SessionKeyPrefix":           p.SessionKeyPrefix,
		"SessionByUserIDKeyPrefix":   p.SessionByUserIDKeyPrefix,
		"UserKeyPrefix":              p.UserKeyPrefix,
		"VerificationTokenKeyPrefix": p.VerificationTokenKeyPrefix,
	}
	for name, v := range specific {
		if v == "" {
			return fmt.Errorf("KeyPrefixes %s must not be empty", name)
		}
		if err := checkPrefix(name, v); err != nil {
			return err
		}
	}
	if err := checkPrefix("BaseKeyPrefix", p.BaseKeyPrefix); err != nil {
		return err
	}

	// Cascade
	if c.Cascade.MaxAttempts < 1 {
		return errors.New("Cascade MaxAttempts must be >= 1")
	}
	if c.Cascade.MaxAttempts > 1 {
		if c.Cascade.InitialInterval <= 0 {
			return errors.New("Cascade InitialInterval must be > 0 when retries are enabled")
		}
		if c.Cascade.MaxInterval < c.Cascade.InitialInterval {
			return errors.New("Cascade MaxInterval must be >= InitialInterval")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func checkPrefix(name, v string) error {
	if strings.ContainsAny(v, "@:") {
		return fmt.Errorf("KeyPrefixes %s must not contain '@' or ':'", name)
	}
	if strings.IndexFunc(v, isSpace) >= 0 {
		return fmt.Errorf("KeyPrefixes %s must not contain whitespace", name)
	}
	return nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
