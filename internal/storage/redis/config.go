package redis

import "time"

// Config holds Redis connection and projection settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// ProjectionTTL expires an event's projection keys after the last write.
	// Zero keeps them forever.
	ProjectionTTL time.Duration

	// MaxTxRetries bounds optimistic transaction retries on the stats and feed keys
	MaxTxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:           "redis://localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		ProjectionTTL: 72 * time.Hour,
		MaxTxRetries:  50,
	}
}
