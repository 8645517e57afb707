package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/feedcheck/pkg/catalog"
	"github.com/travigo/feedcheck/pkg/checker"
	"github.com/travigo/feedcheck/pkg/verdict"
)

const DefaultConcurrencyLimit = 8

const checkInternalError = "internal_error"

type Options struct {
	ConcurrencyLimit int
	// Deadline bounds the whole run, zero means no deadline
	Deadline time.Duration

	RequiredTables []string
	References     checker.ReferenceCache
}

// Run validates every entry and aggregates the records into a report. Static
// feeds are checked first so realtime verdicts can refer to them. Every entry
// gets exactly one record, entries that have not finished when the deadline
// expires are recorded as timed out.
func Run(ctx context.Context, fetcher checker.Fetcher, staticFeeds []catalog.StaticFeed, realtimeFeeds []catalog.RealtimeFeed, options Options) verdict.Report {
	started := time.Now()

	limit := options.ConcurrencyLimit
	if limit <= 0 {
		limit = DefaultConcurrencyLimit
	}

	runContext := ctx
	if options.Deadline > 0 {
		var cancel context.CancelFunc
		runContext, cancel = context.WithTimeout(ctx, options.Deadline)
		defer cancel()
	}

	log.Info().
		Int("static", len(staticFeeds)).
		Int("realtime", len(realtimeFeeds)).
		Int("concurrency", limit).
		Str("deadline", options.Deadline.String()).
		Msg("Starting validation run")

	staticChecker := checker.NewStaticChecker(fetcher, options.RequiredTables, options.References)
	staticPool := pool.NewWithResults[verdict.Record]().WithMaxGoroutines(limit)
	for _, feed := range staticFeeds {
		feed := feed
		entry := checker.StaticEntryRef(feed)

		staticPool.Go(func() verdict.Record {
			return runEntry(runContext, entry, func() verdict.Record {
				return staticChecker.Check(runContext, feed)
			})
		})
	}
	staticRecords := staticPool.Wait()

	staticVerdicts := make(map[string]verdict.Record, len(staticRecords))
	for _, record := range staticRecords {
		staticVerdicts[record.Entry.FeedID] = record
	}

	realtimeChecker := checker.NewRealtimeChecker(fetcher, func(feedID string) (verdict.Record, bool) {
		record, exists := staticVerdicts[feedID]
		return record, exists
	})
	realtimePool := pool.NewWithResults[verdict.Record]().WithMaxGoroutines(limit)
	for _, feed := range realtimeFeeds {
		feed := feed
		entry := checker.RealtimeEntryRef(feed)

		realtimePool.Go(func() verdict.Record {
			return runEntry(runContext, entry, func() verdict.Record {
				return realtimeChecker.Check(runContext, feed)
			})
		})
	}
	realtimeRecords := realtimePool.Wait()

	report := verdict.NewReport(append(staticRecords, realtimeRecords...), started, time.Now())

	log.Info().
		Bool("allPassed", report.AllPassed).
		Int("pass", report.Counts.Pass).
		Int("fail", report.Counts.Fail).
		Int("skip", report.Counts.Skip).
		Int("timeout", report.Counts.Timeout).
		Str("duration", report.Finished.Sub(report.Started).String()).
		Msg("Validation run finished")

	return report
}

// runEntry isolates a single entry: entries not started before the deadline
// time out, and a panicking check fails only its own entry
func runEntry(ctx context.Context, entry verdict.EntryRef, check func() verdict.Record) (record verdict.Record) {
	if ctx.Err() != nil {
		return verdict.TimeoutRecord(entry)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error().
				Str("feedId", entry.FeedID).
				Str("url", entry.URL).
				Interface("panic", recovered).
				Msg("Check panicked")

			record = verdict.NewBuilder(entry).
				Fail(checkInternalError, verdict.CodeNone, fmt.Sprintf("check panicked: %v", recovered)).
				Build()
		}
	}()

	return check()
}
