package checker

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/feedcheck/pkg/catalog"
	"github.com/travigo/feedcheck/pkg/feedtest"
	"github.com/travigo/feedcheck/pkg/verdict"
)

var staticFeed = catalog.StaticFeed{
	Index:     0,
	Type:      catalog.StaticFeedTypeGTFS,
	Source:    "https://x/gtfs.zip",
	FeedID:    "f1",
	Reference: "https://x/docs",
}

func requireCheck(t *testing.T, record verdict.Record, name string) verdict.Check {
	t.Helper()

	check, exists := record.Check(name)
	require.True(t, exists, "check %s not recorded", name)

	return check
}

func TestStaticChecker_ValidArchive(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{Body: feedtest.ZipArchive(t, append(feedtest.RequiredTables, "agency.txt")...)}).
		Set(staticFeed.Reference, feedtest.Response{})

	record := NewStaticChecker(fetcher, nil, nil).Check(context.Background(), staticFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)
	assert.Equal(t, verdict.EntryRef{Kind: verdict.KindStatic, Index: 0, FeedID: "f1", Type: "gtfs", URL: staticFeed.Source}, record.Entry)

	names := []string{}
	for _, check := range record.Checks {
		names = append(names, check.Name)
	}
	assert.Equal(t, []string{
		verdict.CheckSourceReachability,
		verdict.CheckZipSignature,
		verdict.CheckArchiveStructure,
		verdict.CheckReferenceReachability,
	}, names)
	assert.True(t, requireCheck(t, record, verdict.CheckReferenceReachability).Advisory)
}

func TestStaticChecker_HTMLInsteadOfArchive(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{ContentType: "text/html", Body: []byte("<html><body>Moved</body></html>")}).
		Set(staticFeed.Reference, feedtest.Response{})

	record := NewStaticChecker(fetcher, nil, nil).Check(context.Background(), staticFeed)

	assert.Equal(t, verdict.StatusFail, record.Status)
	assert.Equal(t, verdict.OutcomePass, requireCheck(t, record, verdict.CheckSourceReachability).Outcome)

	signature := requireCheck(t, record, verdict.CheckZipSignature)
	assert.Equal(t, verdict.OutcomeFail, signature.Outcome)
	assert.Equal(t, verdict.CodeInvalidFormat, signature.Code)
	assert.Contains(t, signature.Message, "text/html")

	assert.Equal(t, verdict.OutcomeSkip, requireCheck(t, record, verdict.CheckArchiveStructure).Outcome)
}

func TestStaticChecker_MissingTables(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{Body: feedtest.ZipArchive(t, "stops.txt", "routes.txt", "gtfs/trips.txt")}).
		Set(staticFeed.Reference, feedtest.Response{})

	record := NewStaticChecker(fetcher, nil, nil).Check(context.Background(), staticFeed)

	assert.Equal(t, verdict.StatusFail, record.Status)

	structure := requireCheck(t, record, verdict.CheckArchiveStructure)
	assert.Equal(t, verdict.CodeIncompleteStructure, structure.Code)
	assert.Equal(t, "missing stop_times, trips (trips only found inside a subdirectory)", structure.Message)
}

func TestStaticChecker_CustomRequiredTables(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{Body: feedtest.ZipArchive(t, "stops.txt")}).
		Set(staticFeed.Reference, feedtest.Response{})

	record := NewStaticChecker(fetcher, []string{"stops"}, nil).Check(context.Background(), staticFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)
}

func TestStaticChecker_SourceFailures(t *testing.T) {
	tests := []struct {
		name     string
		response *feedtest.Response
		status   verdict.Status
		code     verdict.Code
	}{
		{name: "rate limited", response: &feedtest.Response{StatusCode: http.StatusTooManyRequests}, status: verdict.StatusSkip, code: verdict.CodeRateLimited},
		{name: "not found", response: &feedtest.Response{StatusCode: http.StatusNotFound}, status: verdict.StatusFail, code: verdict.CodeHTTPError},
		{name: "unreachable", response: nil, status: verdict.StatusFail, code: verdict.CodeUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := feedtest.NewFetcher().Set(staticFeed.Reference, feedtest.Response{})
			if tt.response != nil {
				fetcher.Set(staticFeed.Source, *tt.response)
			}

			record := NewStaticChecker(fetcher, nil, nil).Check(context.Background(), staticFeed)

			assert.Equal(t, tt.status, record.Status)
			assert.Equal(t, tt.code, requireCheck(t, record, verdict.CheckSourceReachability).Code)
			assert.Equal(t, verdict.OutcomeSkip, requireCheck(t, record, verdict.CheckZipSignature).Outcome)
			assert.Equal(t, verdict.OutcomeSkip, requireCheck(t, record, verdict.CheckArchiveStructure).Outcome)
		})
	}
}

func TestStaticChecker_ReferenceIsAdvisory(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{Body: feedtest.ZipArchive(t, feedtest.RequiredTables...)}).
		Set(staticFeed.Reference, feedtest.Response{StatusCode: http.StatusNotFound})

	record := NewStaticChecker(fetcher, nil, nil).Check(context.Background(), staticFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)

	reference := requireCheck(t, record, verdict.CheckReferenceReachability)
	assert.Equal(t, verdict.OutcomeFail, reference.Outcome)
	assert.Equal(t, verdict.CodeHTTPError, reference.Code)
	assert.Len(t, record.Notes(), 1)
}

func TestStaticChecker_DeadlineExpired(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{Body: feedtest.ZipArchive(t, feedtest.RequiredTables...)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record := NewStaticChecker(fetcher, nil, nil).Check(ctx, staticFeed)

	assert.Equal(t, verdict.StatusTimeout, record.Status)
	assert.Equal(t, verdict.CodeTimeout, requireCheck(t, record, verdict.CheckSourceReachability).Code)
}

func TestStaticChecker_DeadlineDuringReference(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{Body: feedtest.ZipArchive(t, feedtest.RequiredTables...)}).
		Set(staticFeed.Reference, feedtest.Response{Delay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	record := NewStaticChecker(fetcher, nil, nil).Check(ctx, staticFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)

	reference := requireCheck(t, record, verdict.CheckReferenceReachability)
	assert.True(t, reference.Advisory)
	assert.Equal(t, verdict.OutcomeSkip, reference.Outcome)
	assert.Equal(t, verdict.CodeTimeout, reference.Code)
}

type memoryReferenceCache struct {
	mutex sync.Mutex
	urls  map[string]bool
}

func (m *memoryReferenceCache) Seen(ctx context.Context, url string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.urls[url]
}

func (m *memoryReferenceCache) Remember(ctx context.Context, url string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.urls[url] = true
}

func TestStaticChecker_ReferenceCache(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(staticFeed.Source, feedtest.Response{Body: feedtest.ZipArchive(t, feedtest.RequiredTables...)}).
		Set(staticFeed.Reference, feedtest.Response{})
	cache := &memoryReferenceCache{urls: map[string]bool{}}
	checker := NewStaticChecker(fetcher, nil, cache)

	checker.Check(context.Background(), staticFeed)
	record := checker.Check(context.Background(), staticFeed)

	assert.Equal(t, 1, fetcher.Calls(staticFeed.Reference))
	assert.Equal(t, 2, fetcher.Calls(staticFeed.Source))
	assert.Equal(t, "reachable (cached)", requireCheck(t, record, verdict.CheckReferenceReachability).Message)
}
