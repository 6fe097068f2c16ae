package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SessionPath string // hcl file or directory
	PrefsPath   string

	LogFormat string
	LogLevel  string

	// Samples is the capture vector size, unless the session sets one.
	Samples     int
	MonitorPort int
	RecordDir   string
	// Duration bounds a streaming run; zero runs until interrupted.
	Duration    time.Duration
	Interactive bool
	Scan        bool
	ScanPeriod  time.Duration
	ScanSchemes []string

	// Vars override session variables by name.
	Vars map[string]any
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.SessionPath == "" {
		return nil, errors.New("SessionPath is a required configuration field and cannot be empty")
	}
	if cfg.Samples < 0 {
		return nil, errors.New("Samples cannot be negative")
	}
	if cfg.Duration < 0 {
		return nil, errors.New("Duration cannot be negative")
	}
	return &cfg, nil
}

// streaming reports whether the run keeps the engine going until it is
// stopped, instead of running the session once to completion.
func (c *Config) streaming() bool {
	return c.Interactive || c.Duration > 0 || c.MonitorPort > 0 || c.RecordDir != "" || c.Scan
}
