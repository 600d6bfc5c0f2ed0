// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and the environment over those defaults.
// - Validate is the single place that rejects bad values.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/stats"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver picks the report repository: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// SQLiteDSN is the database path used when StoreDriver is sqlite.
	SQLiteDSN string `koanf:"sqlite_dsn"`

	// QueueSize bounds the pending recompute queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize caps how many pending report ids are tracked for coalescing.
	DedupeSize int `koanf:"dedupe_size"`

	// SummaryCacheSize caps how many computed summaries are kept.
	SummaryCacheSize int `koanf:"summary_cache_size"`

	// MaxListLimit caps GET /reports?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// MinuteStyle is carry or legacy.
	MinuteStyle string `koanf:"minute_style"`

	// StatKinds overrides the per-90 eligibility of named stats (rate or count).
	StatKinds map[string]string `koanf:"stat_kinds"`

	// StrictStatKinds turns off the name based per-90 fallback.
	StrictStatKinds bool `koanf:"strict_stat_kinds"`

	// MutatingRoles lists staff roles allowed to change reports.
	MutatingRoles []string `koanf:"mutating_roles"`

	// KafkaBrokers enables event publishing when non-empty.
	KafkaBrokers []string `koanf:"kafka_brokers"`

	// KafkaTopic receives scored report events.
	KafkaTopic string `koanf:"kafka_topic"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		StoreDriver:      DriverMemory,
		SQLiteDSN:        "matchreport.db",
		QueueSize:        1_024,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       10_000,
		SummaryCacheSize: 5_000,
		MaxListLimit:     100,
		MinuteStyle:      string(scoring.MinuteStyleCarry),
		StatKinds:        map[string]string{},
		MutatingRoles:    []string{"admin", "analyst"},
		KafkaTopic:       "match-report-scored",
		CORSOrigins:      []string{"*"},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("%w: sqlite_dsn must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.QueueSize <= 0 || c.WorkerCount <= 0 || c.DedupeSize <= 0 || c.SummaryCacheSize <= 0 || c.MaxListLimit <= 0 {
		return fmt.Errorf("%w: sizes must be positive", ErrInvalidConfig)
	}
	if _, err := scoring.ParseMinuteStyle(c.MinuteStyle); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for name, kind := range c.StatKinds {
		if _, err := stats.ParseKind(kind); err != nil {
			return fmt.Errorf("%w: stat_kinds[%s]: %w", ErrInvalidConfig, name, err)
		}
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("%w: kafka_topic must be set with kafka_brokers", ErrInvalidConfig)
	}
	return nil
}

// Catalog builds the stat catalog described by StatKinds.
func (c *Config) Catalog() (stats.Catalog, error) {
	cat, err := stats.NewCatalog(c.StatKinds)
	if err != nil {
		return stats.Catalog{}, err
	}
	if c.StrictStatKinds {
		return cat.Strict(), nil
	}
	return cat, nil
}
