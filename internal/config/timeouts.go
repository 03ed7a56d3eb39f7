package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the poll intervals and attempt budgets of every waiting step.
// These values can be customized via environment variables.
type Timeouts struct {
	PollInterval        time.Duration // Delay between backend status polls
	StackCreateAttempts int           // Status polls before a create is abandoned
	StackDeleteAttempts int           // Status polls before a delete is abandoned
	DNSCheckInterval    time.Duration // Delay between reachability rounds
	DNSCheckAttempts    int           // Reachability rounds after a DNS update
	SSHTimeout          time.Duration // Dial timeout for SSH sessions
	RetryMaxAttempts    int           // Retries of transient API failures
	RetryInitialDelay   time.Duration // Initial delay between API retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - OCPOOL_POLL_INTERVAL (default: 10s)
//   - OCPOOL_STACK_CREATE_ATTEMPTS (default: 180)
//   - OCPOOL_STACK_DELETE_ATTEMPTS (default: 90)
//   - OCPOOL_DNS_CHECK_INTERVAL (default: 5s)
//   - OCPOOL_DNS_CHECK_ATTEMPTS (default: 10)
//   - OCPOOL_SSH_TIMEOUT (default: 30s)
//   - OCPOOL_RETRY_MAX_ATTEMPTS (default: 5)
//   - OCPOOL_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		PollInterval:        parseDuration("OCPOOL_POLL_INTERVAL", 10*time.Second),
		StackCreateAttempts: parseInt("OCPOOL_STACK_CREATE_ATTEMPTS", 180),
		StackDeleteAttempts: parseInt("OCPOOL_STACK_DELETE_ATTEMPTS", 90),
		DNSCheckInterval:    parseDuration("OCPOOL_DNS_CHECK_INTERVAL", 5*time.Second),
		DNSCheckAttempts:    parseInt("OCPOOL_DNS_CHECK_ATTEMPTS", 10),
		SSHTimeout:          parseDuration("OCPOOL_SSH_TIMEOUT", 30*time.Second),
		RetryMaxAttempts:    parseInt("OCPOOL_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay:   parseDuration("OCPOOL_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// TestTimeouts returns small budgets for unit tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		PollInterval:        time.Millisecond,
		StackCreateAttempts: 5,
		StackDeleteAttempts: 5,
		DNSCheckInterval:    time.Millisecond,
		DNSCheckAttempts:    3,
		SSHTimeout:          time.Second,
		RetryMaxAttempts:    1,
		RetryInitialDelay:   time.Millisecond,
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
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses a positive integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}
