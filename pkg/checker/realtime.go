package checker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/travigo/feedcheck/pkg/catalog"
	"github.com/travigo/feedcheck/pkg/payload"
	"github.com/travigo/feedcheck/pkg/probe"
	"github.com/travigo/feedcheck/pkg/verdict"
)

// StaticLookup returns the verdict of a static feed validated earlier in the same run
type StaticLookup func(feedID string) (verdict.Record, bool)

type RealtimeChecker struct {
	fetcher Fetcher
	statics StaticLookup
}

// NewRealtimeChecker creates a checker for realtime updaters. statics may be nil
// when static feeds are not part of the run.
func NewRealtimeChecker(fetcher Fetcher, statics StaticLookup) *RealtimeChecker {
	return &RealtimeChecker{
		fetcher: fetcher,
		statics: statics,
	}
}

func RealtimeEntryRef(feed catalog.RealtimeFeed) verdict.EntryRef {
	return verdict.EntryRef{
		Kind:   verdict.KindRealtime,
		Index:  feed.Index,
		FeedID: feed.FeedID,
		Type:   string(feed.Type),
		URL:    feed.URL,
	}
}

func (c *RealtimeChecker) Check(ctx context.Context, feed catalog.RealtimeFeed) verdict.Record {
	builder := verdict.NewBuilder(RealtimeEntryRef(feed))

	var body []byte
	format := payload.FormatUnknown

	result, err := c.fetcher.Fetch(ctx, feed.URL, probe.Realtime)
	switch {
	case err != nil:
		if recordFetchError(ctx, builder, verdict.CheckEndpointReachability, err) {
			return c.finish(builder)
		}
		builder.Skip(verdict.CheckPayloadFormat, verdict.CodeNone, "endpoint was not fetched")
	case result.NoContent():
		builder.
			Pass(verdict.CheckEndpointReachability, "HTTP 204").
			Skip(verdict.CheckPayloadFormat, verdict.CodeNoContent, "endpoint returned no payload").
			Inconclusive()
	default:
		builder.Pass(verdict.CheckEndpointReachability, fmt.Sprintf("HTTP %d, %d bytes", result.StatusCode, len(result.Body)))

		body = result.Body
		format = payload.ClassifyRealtime(result.ContentType(), body)
		if format == payload.FormatUnknown {
			builder.Fail(verdict.CheckPayloadFormat, verdict.CodeUnknownFormat,
				fmt.Sprintf("payload is neither GTFS-Realtime Protobuf nor JSON (%s)", payload.DescribeContent(body)))
		} else {
			builder.Pass(verdict.CheckPayloadFormat, string(format))
		}
	}

	if feed.Type.Valid() {
		builder.Pass(verdict.CheckUpdaterType, string(feed.Type))
	} else {
		builder.Fail(verdict.CheckUpdaterType, verdict.CodeInvalidUpdaterType, fmt.Sprintf("%q is not a recognised updater type", feed.Type))
	}

	c.checkStaticReference(builder, feed)

	if format == payload.FormatProtobuf {
		checkFeedSchema(builder, feed.Type, body)
	}

	return c.finish(builder)
}

func (c *RealtimeChecker) finish(builder *verdict.Builder) verdict.Record {
	record := builder.Build()

	log.Debug().
		Str("feedId", record.Entry.FeedID).
		Str("url", record.Entry.URL).
		Str("status", string(record.Status)).
		Msg("Checked realtime feed")

	return record
}

func (c *RealtimeChecker) checkStaticReference(builder *verdict.Builder, feed catalog.RealtimeFeed) {
	if c.statics == nil {
		builder.Advisory(verdict.CheckStaticReference, verdict.OutcomeSkip, verdict.CodeNone, "static feeds were not validated in this run")
		return
	}

	static, exists := c.statics(feed.FeedID)
	if !exists {
		builder.Advisory(verdict.CheckStaticReference, verdict.OutcomeSkip, verdict.CodeNone, fmt.Sprintf("static feed %s was not validated in this run", feed.FeedID))
		return
	}

	message := fmt.Sprintf("static feed %s is %s", feed.FeedID, static.Status)
	if static.Status.Failed() {
		builder.Advisory(verdict.CheckStaticReference, verdict.OutcomeFail, verdict.CodeStaleReference, message)
	} else {
		builder.Advisory(verdict.CheckStaticReference, verdict.OutcomePass, verdict.CodeNone, message)
	}
}

func checkFeedSchema(builder *verdict.Builder, updaterType catalog.UpdaterType, body []byte) {
	summary, err := payload.DecodeFeed(body)
	if err != nil {
		builder.Advisory(verdict.CheckFeedSchema, verdict.OutcomeFail, verdict.CodeSchemaMismatch, err.Error())
		return
	}

	matching, entityName := matchingEntities(updaterType, summary)
	if summary.Entities > 0 && matching == 0 {
		builder.Advisory(verdict.CheckFeedSchema, verdict.OutcomeFail, verdict.CodeSchemaMismatch,
			fmt.Sprintf("feed has %d entities but no %s", summary.Entities, entityName))
		return
	}

	builder.Advisory(verdict.CheckFeedSchema, verdict.OutcomePass, verdict.CodeNone,
		fmt.Sprintf("gtfs-realtime %s, %d entities", summary.Version, summary.Entities))
}

func matchingEntities(updaterType catalog.UpdaterType, summary payload.FeedSummary) (int, string) {
	switch updaterType {
	case catalog.UpdaterTypeStopTimeUpdater:
		return summary.TripUpdates, "trip updates"
	case catalog.UpdaterTypeVehiclePositions:
		return summary.VehiclePositions, "vehicle positions"
	case catalog.UpdaterTypeRealTimeAlerts:
		return summary.Alerts, "alerts"
	default:
		return summary.Entities, "entities"
	}
}
