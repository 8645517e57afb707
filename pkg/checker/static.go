package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/feedcheck/pkg/catalog"
	"github.com/travigo/feedcheck/pkg/payload"
	"github.com/travigo/feedcheck/pkg/probe"
	"github.com/travigo/feedcheck/pkg/util"
	"github.com/travigo/feedcheck/pkg/verdict"
)

var DefaultRequiredTables = []string{"stops", "routes", "trips", "stop_times"}

type StaticChecker struct {
	fetcher        Fetcher
	requiredTables []string
	references     ReferenceCache
}

// NewStaticChecker creates a checker for static GTFS feeds. references may be nil.
func NewStaticChecker(fetcher Fetcher, requiredTables []string, references ReferenceCache) *StaticChecker {
	requiredTables = util.RemoveDuplicateStrings(requiredTables, nil)
	if len(requiredTables) == 0 {
		requiredTables = DefaultRequiredTables
	}

	return &StaticChecker{
		fetcher:        fetcher,
		requiredTables: requiredTables,
		references:     references,
	}
}

func StaticEntryRef(feed catalog.StaticFeed) verdict.EntryRef {
	return verdict.EntryRef{
		Kind:   verdict.KindStatic,
		Index:  feed.Index,
		FeedID: feed.FeedID,
		Type:   string(feed.Type),
		URL:    feed.Source,
	}
}

func (c *StaticChecker) Check(ctx context.Context, feed catalog.StaticFeed) verdict.Record {
	builder := verdict.NewBuilder(StaticEntryRef(feed))

	result, err := c.fetcher.Fetch(ctx, feed.Source, probe.Archive)
	if err != nil {
		if recordFetchError(ctx, builder, verdict.CheckSourceReachability, err) {
			return c.finish(builder)
		}
		builder.
			Skip(verdict.CheckZipSignature, verdict.CodeNone, "source was not downloaded").
			Skip(verdict.CheckArchiveStructure, verdict.CodeNone, "source was not downloaded")
	} else {
		builder.Pass(verdict.CheckSourceReachability, fmt.Sprintf("HTTP %d, %d bytes", result.StatusCode, len(result.Body)))
		c.checkArchive(builder, result.Body)
	}

	c.checkReference(ctx, builder, feed.Reference)

	return c.finish(builder)
}

func (c *StaticChecker) finish(builder *verdict.Builder) verdict.Record {
	record := builder.Build()

	log.Debug().
		Str("feedId", record.Entry.FeedID).
		Str("url", record.Entry.URL).
		Str("status", string(record.Status)).
		Msg("Checked static feed")

	return record
}

func (c *StaticChecker) checkArchive(builder *verdict.Builder, body []byte) {
	if payload.ClassifyArchive(body) != payload.Zip {
		builder.
			Fail(verdict.CheckZipSignature, verdict.CodeInvalidFormat, fmt.Sprintf("source is not a zip archive (%s)", payload.DescribeContent(body))).
			Skip(verdict.CheckArchiveStructure, verdict.CodeNone, "source is not a zip archive")
		return
	}
	builder.Pass(verdict.CheckZipSignature, "")

	entries, err := payload.ListArchiveEntries(body)
	if err != nil {
		builder.Fail(verdict.CheckArchiveStructure, verdict.CodeInvalidFormat, err.Error())
		return
	}

	tables := payload.CheckTables(entries, c.requiredTables)
	if len(tables.Missing) > 0 {
		message := "missing " + strings.Join(tables.Missing, ", ")
		if len(tables.Nested) > 0 {
			message += fmt.Sprintf(" (%s only found inside a subdirectory)", strings.Join(tables.Nested, ", "))
		}
		builder.Fail(verdict.CheckArchiveStructure, verdict.CodeIncompleteStructure, message)
		return
	}

	builder.Pass(verdict.CheckArchiveStructure, fmt.Sprintf("%d entries", len(entries)))
}

func (c *StaticChecker) checkReference(ctx context.Context, builder *verdict.Builder, reference string) {
	if c.references != nil && c.references.Seen(ctx, reference) {
		builder.Advisory(verdict.CheckReferenceReachability, verdict.OutcomePass, verdict.CodeNone, "reachable (cached)")
		return
	}

	result, err := c.fetcher.Fetch(ctx, reference, probe.Document)
	if err != nil {
		advisoryFetchError(ctx, builder, verdict.CheckReferenceReachability, err)
		return
	}

	builder.Advisory(verdict.CheckReferenceReachability, verdict.OutcomePass, verdict.CodeNone, fmt.Sprintf("HTTP %d", result.StatusCode))

	if c.references != nil {
		c.references.Remember(ctx, reference)
	}
}
