package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/feedcheck/pkg/verdict"
)

func sampleReport() verdict.Report {
	passing := verdict.NewBuilder(verdict.EntryRef{Kind: verdict.KindStatic, Index: 0, FeedID: "gb-bus", Type: "gtfs", URL: "https://x/gtfs.zip"}).
		Pass(verdict.CheckSourceReachability, "HTTP 200").
		Pass(verdict.CheckZipSignature, "").
		Pass(verdict.CheckArchiveStructure, "4 entries").
		Advisory(verdict.CheckReferenceReachability, verdict.OutcomeFail, verdict.CodeHTTPError, "https://x/docs returned 404 Not Found").
		Build()

	failing := verdict.NewBuilder(verdict.EntryRef{Kind: verdict.KindStatic, Index: 1, FeedID: "fr-rail", Type: "gtfs", URL: "https://y/gtfs.zip"}).
		Pass(verdict.CheckSourceReachability, "HTTP 200").
		Fail(verdict.CheckZipSignature, verdict.CodeInvalidFormat, "source is not a zip archive (text/html | charset=utf-8)").
		Skip(verdict.CheckArchiveStructure, verdict.CodeNone, "source is not a zip archive").
		Build()

	skipped := verdict.NewBuilder(verdict.EntryRef{Kind: verdict.KindRealtime, Index: 0, FeedID: "gb-bus", Type: "vehicle_positions", URL: "https://x/vp"}).
		Skip(verdict.CheckEndpointReachability, verdict.CodeRateLimited, "still rate limited after 3 attempts").
		Inconclusive().
		Build()

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return verdict.NewReport([]verdict.Record{skipped, failing, passing}, started, started.Add(2*time.Second))
}

func TestParseFormat(t *testing.T) {
	for value, want := range map[string]Format{"json": FormatJSON, " TEXT ": FormatText, "markdown": FormatMarkdown, "md": FormatMarkdown} {
		format, err := ParseFormat(value)
		require.NoError(t, err)
		assert.Equal(t, want, format)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderJSON_Basic(t *testing.T) {
	output, err := RenderJSON(sampleReport(), false)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(output, &decoded))

	assert.Equal(t, false, decoded["allPassed"])
	assert.NotContains(t, decoded, "started")

	records := decoded["records"].([]any)
	require.Len(t, records, 3)

	first := records[0].(map[string]any)
	assert.Equal(t, "pass", first["status"])
	assert.NotContains(t, first, "checks")
	assert.Equal(t, "gb-bus", first["entry"].(map[string]any)["feedId"])

	counts := decoded["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["fail"])
}

func TestRenderJSON_Detailed(t *testing.T) {
	output, err := RenderJSON(sampleReport(), true)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(output, &decoded))
	assert.Contains(t, decoded, "started")

	second := decoded["records"].([]any)[1].(map[string]any)
	checks := second["checks"].([]any)
	require.Len(t, checks, 3)
	assert.Equal(t, "InvalidFormat", checks[1].(map[string]any)["code"])
}

func TestRenderText(t *testing.T) {
	output := RenderText(sampleReport(), false)

	assert.Contains(t, output, "FAILED")
	assert.Contains(t, output, "1 pass, 1 fail, 1 skip, 0 timeout")
	assert.Contains(t, output, "Static feeds")
	assert.Contains(t, output, "Realtime feeds")
	assert.Contains(t, output, "fr-rail")
	assert.Contains(t, output, "InvalidFormat")
	assert.Contains(t, output, "RateLimited")
	assert.NotContains(t, output, "4 entries")
	assert.Contains(t, output, "1 note")

	assert.Contains(t, RenderText(sampleReport(), true), "4 entries")
}

func TestRenderText_Empty(t *testing.T) {
	output := RenderText(verdict.NewReport(nil, time.Now(), time.Now()), false)

	assert.Contains(t, output, "PASSED")
	assert.NotContains(t, output, "Static feeds")
}

func TestRenderMarkdown(t *testing.T) {
	output := RenderMarkdown(sampleReport(), false)

	assert.Contains(t, output, "## ❌ Feed validation failed (1 of 3 entries)")
	assert.Contains(t, output, "| static | `fr-rail` | gtfs | ❌ fail |")
	assert.Contains(t, output, "note: `reference_reachability` fail HttpError")
	assert.Contains(t, output, `text/html \| charset=utf-8`)
	assert.Contains(t, output, "| realtime | `gb-bus` | vehicle_positions | ⚠️ skip |")
}

func TestWrite(t *testing.T) {
	var buffer bytes.Buffer
	require.NoError(t, Write(&buffer, sampleReport(), FormatMarkdown, false))
	assert.Contains(t, buffer.String(), "Feed validation failed")

	assert.Error(t, Write(&buffer, sampleReport(), Format("yaml"), false))
}

func TestRenderMarkdown_TrimsLongMessages(t *testing.T) {
	record := verdict.NewBuilder(verdict.EntryRef{Kind: verdict.KindStatic, FeedID: "long", Type: "gtfs"}).
		Fail(verdict.CheckSourceReachability, verdict.CodeUnreachable, strings.Repeat("x", 500)).
		Build()

	output := RenderMarkdown(verdict.NewReport([]verdict.Record{record}, time.Now(), time.Now()), false)

	assert.Contains(t, output, strings.Repeat("x", 199)+"…")
	assert.NotContains(t, output, strings.Repeat("x", 200))
}
