package report

import (
	"fmt"
	"strings"

	"github.com/travigo/feedcheck/pkg/util"
	"github.com/travigo/feedcheck/pkg/verdict"
)

const maxMarkdownMessage = 200

var markdownStatus = map[verdict.Status]string{
	verdict.StatusPass:    "✅ pass",
	verdict.StatusFail:    "❌ fail",
	verdict.StatusSkip:    "⚠️ skip",
	verdict.StatusTimeout: "⏱️ timeout",
}

// RenderMarkdown renders a table suitable for a pull request comment
func RenderMarkdown(report verdict.Report, detailed bool) string {
	var b strings.Builder

	if report.AllPassed {
		b.WriteString("## ✅ Feed validation passed\n\n")
	} else {
		b.WriteString(fmt.Sprintf("## ❌ Feed validation failed (%d of %d entries)\n\n", len(report.Failed()), len(report.Records)))
	}
	b.WriteString(summaryLine(report) + "\n")

	if len(report.Records) == 0 {
		return b.String()
	}

	b.WriteString("\n| Kind | Feed | Type | Status | Details |\n")
	b.WriteString("|---|---|---|---|---|\n")

	for _, record := range report.Records {
		var details []string
		for _, check := range visibleChecks(record, detailed) {
			detail := fmt.Sprintf("`%s` %s", check.Name, check.Outcome)
			if check.Advisory {
				detail = "note: " + detail
			}
			if check.Code != verdict.CodeNone {
				detail += " " + string(check.Code)
			}
			if check.Message != "" {
				detail += ": " + util.TrimString(check.Message, maxMarkdownMessage)
			}
			details = append(details, escapeCell(detail))
		}

		b.WriteString(fmt.Sprintf("| %s | `%s` | %s | %s | %s |\n",
			record.Entry.Kind,
			escapeCell(record.Entry.FeedID),
			escapeCell(record.Entry.Type),
			markdownStatus[record.Status],
			strings.Join(details, "<br>"),
		))
	}

	return b.String()
}

func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
