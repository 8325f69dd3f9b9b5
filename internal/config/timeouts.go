package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Create            time.Duration // Timeout for a single create or update call, including retries
	Delete            time.Duration // Timeout for a single delete, including dependency retries
	Ready             time.Duration // Timeout for a resource to become usable after creation
	ReadyPoll         time.Duration // Poll interval while waiting for readiness
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
	RetryMaxDelay     time.Duration // Upper bound of the backoff delay
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - SEARCHSTACK_TIMEOUT_CREATE (default: 10m)
//   - SEARCHSTACK_TIMEOUT_DELETE (default: 15m)
//   - SEARCHSTACK_TIMEOUT_READY (default: 15m)
//   - SEARCHSTACK_TIMEOUT_READY_POLL (default: 10s)
//   - SEARCHSTACK_RETRY_MAX_ATTEMPTS (default: 5)
//   - SEARCHSTACK_RETRY_INITIAL_DELAY (default: 1s)
//   - SEARCHSTACK_RETRY_MAX_DELAY (default: 30s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Create:            parseDuration("SEARCHSTACK_TIMEOUT_CREATE", 10*time.Minute),
		Delete:            parseDuration("SEARCHSTACK_TIMEOUT_DELETE", 15*time.Minute),
		Ready:             parseDuration("SEARCHSTACK_TIMEOUT_READY", 15*time.Minute),
		ReadyPoll:         parseDuration("SEARCHSTACK_TIMEOUT_READY_POLL", 10*time.Second),
		RetryMaxAttempts:  parseInt("SEARCHSTACK_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("SEARCHSTACK_RETRY_INITIAL_DELAY", 1*time.Second),
		RetryMaxDelay:     parseDuration("SEARCHSTACK_RETRY_MAX_DELAY", 30*time.Second),
	}
}

// TestTimeouts returns short timeouts for tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		Create:            5 * time.Second,
		Delete:            5 * time.Second,
		Ready:             5 * time.Second,
		ReadyPoll:         time.Millisecond,
		RetryMaxAttempts:  3,
		RetryInitialDelay: time.Millisecond,
		RetryMaxDelay:     5 * time.Millisecond,
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
