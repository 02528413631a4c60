package gateway

import "time"

const (
	// DefaultBaseDelay is the first-reconnect baseline.
	DefaultBaseDelay = time.Second
	// DefaultMaxDelay caps the exponential growth.
	DefaultMaxDelay = 30 * time.Second
	// DefaultMaxAttempts is the reconnect ceiling; once exceeded the
	// gateway stays unavailable until process restart.
	DefaultMaxAttempts = 5
)

// ReconnectDelay computes the exponential backoff for a reconnect
// attempt: base doubled per attempt, capped at max. Attempt numbering
// starts at 1.
func ReconnectDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}

	return delay
}
