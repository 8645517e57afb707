package probe

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls how a Probe fetches, retries and rate limits requests
type Policy struct {
	Timeout        time.Duration
	ArchiveTimeout time.Duration

	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	MaxRetryAfter time.Duration
	RetryOnStatus []int

	MaxBodyBytes int64

	// RatePerSecond of zero or less disables per-domain rate limiting
	RatePerSecond float64
	RateBurst     int

	UserAgent string
	// Headers are extra request headers keyed by host name
	Headers map[string]map[string]string
}

func DefaultPolicy() Policy {
	return Policy{
		Timeout:        10 * time.Second,
		ArchiveTimeout: 120 * time.Second,
		MaxAttempts:    3,
		BackoffBase:    2 * time.Second,
		BackoffMax:     30 * time.Second,
		MaxRetryAfter:  60 * time.Second,
		RetryOnStatus:  []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		MaxBodyBytes:   512 << 20,
		RatePerSecond:  4,
		RateBurst:      2,
		UserAgent:      "feedcheck",
	}
}

// withDefaults fills any zero valued field from DefaultPolicy
func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()

	if p.Timeout <= 0 {
		p.Timeout = defaults.Timeout
	}
	if p.ArchiveTimeout <= 0 {
		p.ArchiveTimeout = defaults.ArchiveTimeout
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = defaults.BackoffBase
	}
	if p.BackoffMax <= 0 {
		p.BackoffMax = defaults.BackoffMax
	}
	if p.MaxRetryAfter <= 0 {
		p.MaxRetryAfter = defaults.MaxRetryAfter
	}
	if p.RetryOnStatus == nil {
		p.RetryOnStatus = defaults.RetryOnStatus
	}
	if p.MaxBodyBytes <= 0 {
		p.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if p.RateBurst <= 0 {
		p.RateBurst = defaults.RateBurst
	}
	if p.UserAgent == "" {
		p.UserAgent = defaults.UserAgent
	}

	return p
}

func (p Policy) timeoutFor(kind Kind) time.Duration {
	if kind == Archive {
		return p.ArchiveTimeout
	}
	return p.Timeout
}

func (p Policy) retryable(statusCode int) bool {
	for _, status := range p.RetryOnStatus {
		if status == statusCode {
			return true
		}
	}
	return false
}

func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = p.BackoffBase
	retryBackoff.Multiplier = 2
	retryBackoff.RandomizationFactor = 0
	retryBackoff.MaxInterval = p.BackoffMax
	retryBackoff.MaxElapsedTime = 0
	retryBackoff.Reset()

	return retryBackoff
}
