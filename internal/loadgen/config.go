// Package loadgen drives a running match report service with generated
// reports and checks the served summaries against local scoring.
package loadgen

import (
	"runtime"
	"time"
)

// Defaults for a load run.
const (
	DefaultBaseURL          = "http://localhost:9080"
	DefaultReports          = 1_000
	DefaultActionsPerReport = 40
	DefaultTimeout          = 30 * time.Second
	DefaultRole             = "analyst"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL          string        // Base URL of the service
	Reports          int           // Number of reports to create
	ActionsPerReport int           // Actions generated per report
	Workers          int           // Concurrent submitters
	Timeout          time.Duration // HTTP request timeout
	Role             string        // Staff role sent on writes
	Seed             uint64        // Generator seed; equal seeds give equal reports
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Reports <= 0 {
		c.Reports = DefaultReports
	}
	if c.ActionsPerReport < 0 {
		c.ActionsPerReport = 0
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Role == "" {
		c.Role = DefaultRole
	}
	return c
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Created    int
	Failed     int
	Verified   int
	Mismatched int
	Duration   time.Duration
}

// ReportsPerSecond is the create throughput of the run.
func (s Stats) ReportsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Created) / s.Duration.Seconds()
}
