package session

import "time"

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// ConnectConfig bounds how hard the client tries to reach the compositor.
type ConnectConfig struct {
	Attempts int
	Backoff  BackoffConfig
}

func DefaultConnectConfig() ConnectConfig {
	return ConnectConfig{
		Attempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero fields from DefaultConnectConfig.
func (c ConnectConfig) WithDefaults() ConnectConfig {
	def := DefaultConnectConfig()
	if c.Attempts <= 0 {
		c.Attempts = def.Attempts
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff.InitialDelay = def.Backoff.InitialDelay
	}
	if c.Backoff.Multiplier <= 0 {
		c.Backoff.Multiplier = def.Backoff.Multiplier
	}
	if c.Backoff.MaxDelay <= 0 {
		c.Backoff.MaxDelay = def.Backoff.MaxDelay
	}
	return c
}
