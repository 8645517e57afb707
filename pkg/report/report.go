package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/travigo/feedcheck/pkg/verdict"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

var Formats = []Format{FormatJSON, FormatText, FormatMarkdown}

func ParseFormat(value string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(value)))
	if format == "md" {
		return FormatMarkdown, nil
	}

	for _, known := range Formats {
		if format == known {
			return format, nil
		}
	}

	return "", fmt.Errorf("unknown report format %q (expected json, text or markdown)", value)
}

// Write renders the report. detailed adds every check of every record, otherwise
// only failing checks and advisory notes are shown.
func Write(w io.Writer, report verdict.Report, format Format, detailed bool) error {
	var (
		output []byte
		err    error
	)

	switch format {
	case FormatJSON:
		output, err = RenderJSON(report, detailed)
	case FormatText:
		output = []byte(RenderText(report, detailed))
	case FormatMarkdown:
		output = []byte(RenderMarkdown(report, detailed))
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(output)
	return err
}

func summaryLine(report verdict.Report) string {
	return fmt.Sprintf("%d pass, %d fail, %d skip, %d timeout",
		report.Counts.Pass,
		report.Counts.Fail,
		report.Counts.Skip,
		report.Counts.Timeout,
	)
}

// visibleChecks picks the checks shown for a record
func visibleChecks(record verdict.Record, detailed bool) []verdict.Check {
	if detailed {
		return record.Checks
	}

	var checks []verdict.Check
	for _, check := range record.Checks {
		if check.Outcome == verdict.OutcomeFail || (check.Outcome == verdict.OutcomeSkip && check.Code != verdict.CodeNone) {
			checks = append(checks, check)
		}
	}

	return checks
}
