package feedtest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/travigo/feedcheck/pkg/probe"
)

// Response is what Fetcher answers for one URL. Status 429 becomes a
// RateLimitedError and other 4xx/5xx statuses an HTTPError, as the real probe does.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Err         error
	Delay       time.Duration
}

// Fetcher is an in-memory stand-in for probe.Probe that counts calls and
// the highest number of concurrent fetches
type Fetcher struct {
	mutex     sync.Mutex
	responses map[string]Response
	calls     map[string]int

	inFlight    int
	maxInFlight int
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		responses: map[string]Response{},
		calls:     map[string]int{},
	}
}

func (f *Fetcher) Set(url string, response Response) *Fetcher {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}
	f.responses[url] = response

	return f
}

func (f *Fetcher) Fetch(ctx context.Context, url string, kind probe.Kind) (*probe.Result, error) {
	f.mutex.Lock()
	f.calls[url]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	response, exists := f.responses[url]
	f.mutex.Unlock()

	defer func() {
		f.mutex.Lock()
		f.inFlight--
		f.mutex.Unlock()
	}()

	if response.Delay > 0 {
		timer := time.NewTimer(response.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	switch {
	case !exists:
		return nil, &probe.UnreachableError{URL: url, Cause: errors.New("no such host")}
	case response.Err != nil:
		return nil, response.Err
	case response.StatusCode == http.StatusTooManyRequests:
		return nil, &probe.RateLimitedError{URL: url, Attempts: 3}
	case response.StatusCode >= 400:
		return nil, &probe.HTTPError{URL: url, StatusCode: response.StatusCode}
	}

	header := http.Header{}
	if response.ContentType != "" {
		header.Set("Content-Type", response.ContentType)
	}

	result := &probe.Result{
		URL:        url,
		StatusCode: response.StatusCode,
		Header:     header,
		Attempts:   1,
	}
	if kind != probe.Document {
		result.Body = response.Body
	}

	return result, nil
}

func (f *Fetcher) Calls(url string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.calls[url]
}

func (f *Fetcher) TotalCalls() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	total := 0
	for _, count := range f.calls {
		total += count
	}

	return total
}

// MaxInFlight is the highest number of fetches that were running at once
func (f *Fetcher) MaxInFlight() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.maxInFlight
}
