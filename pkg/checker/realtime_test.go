package checker

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/travigo/feedcheck/pkg/catalog"
	"github.com/travigo/feedcheck/pkg/feedtest"
	"github.com/travigo/feedcheck/pkg/verdict"
)

var realtimeFeed = catalog.RealtimeFeed{
	Index:  0,
	Type:   catalog.UpdaterTypeVehiclePositions,
	URL:    "https://x/vp",
	FeedID: "f1",
}

func staticLookup(records ...verdict.Record) StaticLookup {
	return func(feedID string) (verdict.Record, bool) {
		for _, record := range records {
			if record.Entry.FeedID == feedID {
				return record, true
			}
		}
		return verdict.Record{}, false
	}
}

func staticRecord(feedID string, status verdict.Status) verdict.Record {
	return verdict.Record{
		Entry:  verdict.EntryRef{Kind: verdict.KindStatic, FeedID: feedID},
		Status: status,
	}
}

func TestRealtimeChecker_Protobuf(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{ContentType: "application/x-protobuf", Body: feedtest.FeedMessage(t, 3, 0, 0)})

	record := NewRealtimeChecker(fetcher, staticLookup(staticRecord("f1", verdict.StatusPass))).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)
	assert.Equal(t, verdict.EntryRef{Kind: verdict.KindRealtime, Index: 0, FeedID: "f1", Type: "vehicle_positions", URL: realtimeFeed.URL}, record.Entry)
	assert.Equal(t, "protobuf", requireCheck(t, record, verdict.CheckPayloadFormat).Message)
	assert.Equal(t, verdict.OutcomePass, requireCheck(t, record, verdict.CheckStaticReference).Outcome)

	schema := requireCheck(t, record, verdict.CheckFeedSchema)
	assert.Equal(t, verdict.OutcomePass, schema.Outcome)
	assert.Equal(t, "gtfs-realtime 2.0, 3 entities", schema.Message)
}

func TestRealtimeChecker_ArbitraryBinaryPasses(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{Body: []byte{0xff, 0x00, 0x9c, 0x81, 0x02}})

	record := NewRealtimeChecker(fetcher, nil).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)
	assert.Equal(t, verdict.OutcomePass, requireCheck(t, record, verdict.CheckPayloadFormat).Outcome)

	schema := requireCheck(t, record, verdict.CheckFeedSchema)
	assert.True(t, schema.Advisory)
	assert.Equal(t, verdict.OutcomeFail, schema.Outcome)
	assert.Equal(t, verdict.CodeSchemaMismatch, schema.Code)
}

func TestRealtimeChecker_WrongEntityKind(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{Body: feedtest.FeedMessage(t, 0, 0, 2)})

	record := NewRealtimeChecker(fetcher, nil).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)
	assert.Equal(t, "feed has 2 entities but no vehicle positions", requireCheck(t, record, verdict.CheckFeedSchema).Message)
}

func TestRealtimeChecker_JSON(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{ContentType: "application/json", Body: []byte(`{"header": {}, "entity": []}`)})

	record := NewRealtimeChecker(fetcher, nil).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusPass, record.Status)
	assert.Equal(t, "json", requireCheck(t, record, verdict.CheckPayloadFormat).Message)

	_, hasSchema := record.Check(verdict.CheckFeedSchema)
	assert.False(t, hasSchema)
}

func TestRealtimeChecker_UnknownFormat(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{ContentType: "text/html", Body: []byte("<html>maintenance</html>")})

	record := NewRealtimeChecker(fetcher, nil).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusFail, record.Status)
	assert.Equal(t, verdict.CodeUnknownFormat, requireCheck(t, record, verdict.CheckPayloadFormat).Code)
}

func TestRealtimeChecker_NoContent(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{StatusCode: http.StatusNoContent})

	record := NewRealtimeChecker(fetcher, nil).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusSkip, record.Status)
	assert.Equal(t, verdict.OutcomePass, requireCheck(t, record, verdict.CheckEndpointReachability).Outcome)

	format := requireCheck(t, record, verdict.CheckPayloadFormat)
	assert.Equal(t, verdict.OutcomeSkip, format.Outcome)
	assert.Equal(t, verdict.CodeNoContent, format.Code)
}

func TestRealtimeChecker_RateLimited(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{StatusCode: http.StatusTooManyRequests})

	record := NewRealtimeChecker(fetcher, nil).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusSkip, record.Status)

	reachability := requireCheck(t, record, verdict.CheckEndpointReachability)
	assert.Equal(t, verdict.OutcomeSkip, reachability.Outcome)
	assert.Equal(t, verdict.CodeRateLimited, reachability.Code)
	assert.Equal(t, verdict.OutcomeSkip, requireCheck(t, record, verdict.CheckPayloadFormat).Outcome)
}

func TestRealtimeChecker_Unreachable(t *testing.T) {
	record := NewRealtimeChecker(feedtest.NewFetcher(), nil).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.StatusFail, record.Status)
	assert.Equal(t, verdict.CodeUnreachable, requireCheck(t, record, verdict.CheckEndpointReachability).Code)
}

func TestRealtimeChecker_InvalidUpdaterType(t *testing.T) {
	feed := realtimeFeed
	feed.Type = "trip_modifications"

	fetcher := feedtest.NewFetcher().
		Set(feed.URL, feedtest.Response{Body: feedtest.FeedMessage(t, 1, 0, 0)})

	record := NewRealtimeChecker(fetcher, nil).Check(context.Background(), feed)

	assert.Equal(t, verdict.StatusFail, record.Status)
	assert.Equal(t, verdict.CodeInvalidUpdaterType, requireCheck(t, record, verdict.CheckUpdaterType).Code)
}

func TestRealtimeChecker_StaleReference(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{Body: feedtest.FeedMessage(t, 1, 0, 0)})

	for _, status := range []verdict.Status{verdict.StatusFail, verdict.StatusTimeout} {
		t.Run(string(status), func(t *testing.T) {
			record := NewRealtimeChecker(fetcher, staticLookup(staticRecord("f1", status))).Check(context.Background(), realtimeFeed)

			assert.Equal(t, verdict.StatusPass, record.Status)

			reference := requireCheck(t, record, verdict.CheckStaticReference)
			assert.Equal(t, verdict.OutcomeFail, reference.Outcome)
			assert.Equal(t, verdict.CodeStaleReference, reference.Code)
			assert.Len(t, record.Notes(), 1)
		})
	}
}

func TestRealtimeChecker_StaticNotValidated(t *testing.T) {
	fetcher := feedtest.NewFetcher().
		Set(realtimeFeed.URL, feedtest.Response{Body: feedtest.FeedMessage(t, 1, 0, 0)})

	record := NewRealtimeChecker(fetcher, staticLookup(staticRecord("other", verdict.StatusFail))).Check(context.Background(), realtimeFeed)

	assert.Equal(t, verdict.OutcomeSkip, requireCheck(t, record, verdict.CheckStaticReference).Outcome)
}

func TestRealtimeChecker_DeadlineExpired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record := NewRealtimeChecker(feedtest.NewFetcher(), nil).Check(ctx, realtimeFeed)

	assert.Equal(t, verdict.StatusTimeout, record.Status)
	assert.True(t, record.Status.Failed())
}
