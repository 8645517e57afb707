package checker

import (
	"context"
	"errors"

	"github.com/travigo/feedcheck/pkg/probe"
	"github.com/travigo/feedcheck/pkg/verdict"
)

// Fetcher is satisfied by *probe.Probe
type Fetcher interface {
	Fetch(ctx context.Context, url string, kind probe.Kind) (*probe.Result, error)
}

// ReferenceCache remembers reference URLs that answered recently so repeated
// runs can skip fetching them
type ReferenceCache interface {
	Seen(ctx context.Context, url string) bool
	Remember(ctx context.Context, url string)
}

// recordFetchError turns a failed fetch into the outcome of a reachability
// check. It returns true when the run deadline expired, in which case no
// further checks should be recorded.
func recordFetchError(ctx context.Context, builder *verdict.Builder, name string, err error) bool {
	var rateLimited *probe.RateLimitedError
	var httpError *probe.HTTPError

	switch {
	case ctx.Err() != nil || probe.IsContextError(err):
		builder.TimedOut(name, "validation deadline expired during fetch")
		return true
	case errors.As(err, &rateLimited):
		builder.Skip(name, verdict.CodeRateLimited, err.Error()).Inconclusive()
	case errors.As(err, &httpError):
		builder.Fail(name, verdict.CodeHTTPError, err.Error())
	default:
		builder.Fail(name, verdict.CodeUnreachable, err.Error())
	}

	return false
}

// advisoryFetchError records a failed fetch for a check that never affects the
// status. A deadline hit during an advisory fetch is an advisory skip; the entry
// keeps the status its required checks produced rather than becoming timeout.
func advisoryFetchError(ctx context.Context, builder *verdict.Builder, name string, err error) {
	var rateLimited *probe.RateLimitedError
	var httpError *probe.HTTPError

	switch {
	case ctx.Err() != nil || probe.IsContextError(err):
		builder.Advisory(name, verdict.OutcomeSkip, verdict.CodeTimeout, "validation deadline expired during fetch")
	case errors.As(err, &rateLimited):
		builder.Advisory(name, verdict.OutcomeSkip, verdict.CodeRateLimited, err.Error())
	case errors.As(err, &httpError):
		builder.Advisory(name, verdict.OutcomeFail, verdict.CodeHTTPError, err.Error())
	default:
		builder.Advisory(name, verdict.OutcomeFail, verdict.CodeUnreachable, err.Error())
	}
}
