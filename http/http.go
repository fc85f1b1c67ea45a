// Package http implements a minimal single-threaded HTTP/1.1 server
// with server-sent events and declarative typed request handlers. All
// connection, session and channel state is owned by one event loop
// goroutine; nothing in this package takes a lock.
package http

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultMaxRequestSize     = 2 * 1024 * 1024 // 2MB
	DefaultMaxRequestAge      = 5 * time.Second
	DefaultMaxBufferTries     = 500
	DefaultMaxSessionIdle     = 30 * time.Minute
	DefaultCleanSessionsEvery = 1000
	DefaultPollInterval       = 50 * time.Millisecond

	readChunkSize = 4096
)

// Config carries the server's resource bounds. Every bound must be
// positive; a zero field falls back to its default.
type Config struct {
	// MaxRequestSize is the hard cap on accumulated request bytes.
	// Crossing it produces a 413 and drops the connection.
	MaxRequestSize int

	// MaxRequestAge bounds the wall-clock life of a partial request.
	MaxRequestAge time.Duration

	// MaxBufferTries bounds how many read cycles one request may take.
	MaxBufferTries int

	// MaxSessionIdle is the idle window after which a session token
	// stops resolving.
	MaxSessionIdle time.Duration

	// CleanSessionsEvery triggers a full session sweep after this many
	// session creations.
	CleanSessionsEvery int

	// PollInterval paces the accept/poll cycle of the event loop.
	PollInterval time.Duration

	// Logger receives loop, dispatch and registration events.
	// Nil means slog.Default().
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxRequestSize:     DefaultMaxRequestSize,
		MaxRequestAge:      DefaultMaxRequestAge,
		MaxBufferTries:     DefaultMaxBufferTries,
		MaxSessionIdle:     DefaultMaxSessionIdle,
		CleanSessionsEvery: DefaultCleanSessionsEvery,
		PollInterval:       DefaultPollInterval,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.MaxRequestSize == 0 {
		cfg.MaxRequestSize = def.MaxRequestSize
	}
	if cfg.MaxRequestAge == 0 {
		cfg.MaxRequestAge = def.MaxRequestAge
	}
	if cfg.MaxBufferTries == 0 {
		cfg.MaxBufferTries = def.MaxBufferTries
	}
	if cfg.MaxSessionIdle == 0 {
		cfg.MaxSessionIdle = def.MaxSessionIdle
	}
	if cfg.CleanSessionsEvery == 0 {
		cfg.CleanSessionsEvery = def.CleanSessionsEvery
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

func (cfg Config) validate() error {
	if cfg.MaxRequestSize <= 0 {
		return fmt.Errorf("http: MaxRequestSize must be positive, got %d", cfg.MaxRequestSize)
	}
	if cfg.MaxRequestAge <= 0 {
		return fmt.Errorf("http: MaxRequestAge must be positive, got %s", cfg.MaxRequestAge)
	}
	if cfg.MaxBufferTries <= 0 {
		return fmt.Errorf("http: MaxBufferTries must be positive, got %d", cfg.MaxBufferTries)
	}
	if cfg.MaxSessionIdle <= 0 {
		return fmt.Errorf("http: MaxSessionIdle must be positive, got %s", cfg.MaxSessionIdle)
	}
	if cfg.CleanSessionsEvery <= 0 {
		return fmt.Errorf("http: CleanSessionsEvery must be positive, got %d", cfg.CleanSessionsEvery)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("http: PollInterval must be positive, got %s", cfg.PollInterval)
	}
	return nil
}
