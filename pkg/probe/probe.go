package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

type Kind int

const (
	// Archive reads the body with the archive timeout
	Archive Kind = iota
	Realtime
	// Document only checks the response status and discards the body
	Document
)

func (k Kind) String() string {
	switch k {
	case Archive:
		return "archive"
	case Realtime:
		return "realtime"
	case Document:
		return "document"
	default:
		return "unknown"
	}
}

// Doer is satisfied by *http.Client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Result struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

func (r *Result) ContentType() string {
	return r.Header.Get("Content-Type")
}

func (r *Result) NoContent() bool {
	return r.StatusCode == http.StatusNoContent
}

// Probe performs HTTP GETs under a Policy. It is safe for concurrent use.
type Probe struct {
	policy Policy
	client Doer

	limitersMutex sync.Mutex
	limiters      map[string]*rate.Limiter

	group singleflight.Group

	sleep func(ctx context.Context, delay time.Duration) error
}

func New(policy Policy, client Doer) *Probe {
	if client == nil {
		client = &http.Client{}
	}

	return &Probe{
		policy:   policy.withDefaults(),
		client:   client,
		limiters: map[string]*rate.Limiter{},
		sleep:    sleepContext,
	}
}

// Fetch GETs target, retrying 429 and the configured retryable statuses.
// Identical concurrent fetches share one request. When ctx ends the context
// error is returned as is.
func (p *Probe) Fetch(ctx context.Context, target string, kind Kind) (*Result, error) {
	value, err, shared := p.group.Do(kind.String()+" "+target, func() (any, error) {
		return p.fetch(ctx, target, kind)
	})
	if shared {
		log.Debug().Str("url", target).Str("kind", kind.String()).Msg("Shared in-flight fetch")
	}
	if err != nil {
		return nil, err
	}

	return value.(*Result), nil
}

func (p *Probe) fetch(ctx context.Context, target string, kind Kind) (*Result, error) {
	parsedURL, err := url.Parse(target)
	if err != nil || parsedURL.Host == "" {
		return nil, &UnreachableError{URL: target, Cause: fmt.Errorf("invalid url %q", target)}
	}

	retryBackoff := p.policy.newBackOff()

	for attempt := 1; ; attempt++ {
		if err := p.waitForDomain(ctx, parsedURL); err != nil {
			return nil, err
		}

		result, err := p.do(ctx, parsedURL, kind)
		if err != nil {
			return nil, err
		}
		result.Attempts = attempt

		var delay time.Duration

		switch {
		case result.StatusCode == http.StatusTooManyRequests:
			if attempt >= p.policy.MaxAttempts {
				return nil, &RateLimitedError{URL: target, Attempts: attempt}
			}

			retryAfter, ok := parseRetryAfter(result.Header.Get("Retry-After"), time.Now())
			if ok {
				delay = min(retryAfter, p.policy.MaxRetryAfter)
			} else {
				delay = retryBackoff.NextBackOff()
			}
		case p.policy.retryable(result.StatusCode):
			if attempt >= p.policy.MaxAttempts {
				return nil, &HTTPError{URL: target, StatusCode: result.StatusCode}
			}
			delay = retryBackoff.NextBackOff()
		case result.StatusCode >= 200 && result.StatusCode < 400:
			return result, nil
		default:
			return nil, &HTTPError{URL: target, StatusCode: result.StatusCode}
		}

		log.Debug().
			Str("url", target).
			Int("status", result.StatusCode).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying fetch")

		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// do performs a single request under the per request timeout
func (p *Probe) do(ctx context.Context, target *url.URL, kind Kind) (*Result, error) {
	requestContext, cancel := context.WithTimeout(ctx, p.policy.timeoutFor(kind))
	defer cancel()

	req, err := http.NewRequestWithContext(requestContext, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &UnreachableError{URL: target.String(), Cause: err}
	}

	req.Header.Set("User-Agent", p.policy.UserAgent)
	for name, value := range p.policy.Headers[target.Hostname()] {
		req.Header.Set(name, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.requestError(ctx, target, err)
	}
	defer resp.Body.Close()

	result := &Result{
		URL:        target.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	if kind == Document || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return result, nil
	}

	if resp.ContentLength > p.policy.MaxBodyBytes {
		return nil, &UnreachableError{URL: target.String(), Cause: ErrBodyTooLarge}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.policy.MaxBodyBytes+1))
	if err != nil {
		return nil, p.requestError(ctx, target, err)
	}
	if int64(len(body)) > p.policy.MaxBodyBytes {
		return nil, &UnreachableError{URL: target.String(), Cause: ErrBodyTooLarge}
	}
	result.Body = body

	return result, nil
}

// requestError keeps the run context's own error distinguishable from
// failures of the individual request
func (p *Probe) requestError(ctx context.Context, target *url.URL, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return &UnreachableError{URL: target.String(), Cause: err}
}

func (p *Probe) waitForDomain(ctx context.Context, target *url.URL) error {
	limiter := p.limiter(domainKey(target.Hostname()))
	if limiter == nil {
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The limiter refuses to wait past the context deadline
		return context.DeadlineExceeded
	}

	return nil
}

func (p *Probe) limiter(key string) *rate.Limiter {
	if p.policy.RatePerSecond <= 0 {
		return nil
	}

	p.limitersMutex.Lock()
	defer p.limitersMutex.Unlock()

	limiter, exists := p.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(p.policy.RatePerSecond), p.policy.RateBurst)
		p.limiters[key] = limiter
	}

	return limiter
}

// domainKey groups hosts by registrable domain so feeds.example.com and
// api.example.com share one limit
func domainKey(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}

	return domain
}

// parseRetryAfter accepts delta-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if date, err := http.ParseTime(value); err == nil {
		return max(date.Sub(now), 0), true
	}

	return 0, false
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsContextError reports whether err came from the run context ending
func IsContextError(err error) bool {
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return false
	}

	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
