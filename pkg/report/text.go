package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/travigo/feedcheck/pkg/verdict"
)

var (
	accent  = lipgloss.Color("#2563EB")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	feedStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dim)
	passStyle    = lipgloss.NewStyle().Foreground(success)
	failStyle    = lipgloss.NewStyle().Foreground(danger)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
)

func RenderText(report verdict.Report, detailed bool) string {
	var b strings.Builder

	result := passStyle.Bold(true).Render("PASSED")
	if !report.AllPassed {
		result = failStyle.Bold(true).Render("FAILED")
	}
	duration := report.Finished.Sub(report.Started).Round(10 * time.Millisecond)
	b.WriteString(boxStyle.Render(fmt.Sprintf("feedcheck %s\n%s", result, dimStyle.Render(summaryLine(report)+" in "+duration.String()))))
	b.WriteString("\n")

	renderTextSection(&b, "Static feeds", verdict.KindStatic, report.Records, detailed)
	renderTextSection(&b, "Realtime feeds", verdict.KindRealtime, report.Records, detailed)

	return b.String()
}

func renderTextSection(b *strings.Builder, title string, kind verdict.Kind, records []verdict.Record, detailed bool) {
	var section []verdict.Record
	for _, record := range records {
		if record.Entry.Kind == kind {
			section = append(section, record)
		}
	}
	if len(section) == 0 {
		return
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %s\n", sectionStyle.Render(title), dimStyle.Render(fmt.Sprintf("(%d)", len(section)))))

	for _, record := range section {
		line := fmt.Sprintf("    %s %s  %s  %s",
			statusMarker(record.Status),
			feedStyle.Render(record.Entry.FeedID),
			dimStyle.Render(record.Entry.Type),
			statusStyle(record.Status).Render(string(record.Status)),
		)
		if notes := len(record.Notes()); notes == 1 {
			line += "  " + warnStyle.Render("1 note")
		} else if notes > 1 {
			line += "  " + warnStyle.Render(fmt.Sprintf("%d notes", notes))
		}
		b.WriteString(line + "\n")

		for _, check := range visibleChecks(record, detailed) {
			line := fmt.Sprintf("        %s %s", outcomeMarker(check), check.Name)
			if check.Code != verdict.CodeNone {
				line += "  " + string(check.Code)
			}
			if check.Message != "" {
				line += "  " + dimStyle.Render(check.Message)
			}
			b.WriteString(line + "\n")
		}
	}
}

func statusStyle(status verdict.Status) lipgloss.Style {
	switch status {
	case verdict.StatusPass:
		return passStyle
	case verdict.StatusSkip:
		return warnStyle
	default:
		return failStyle
	}
}

func statusMarker(status verdict.Status) string {
	return statusStyle(status).Render("●")
}

func outcomeMarker(check verdict.Check) string {
	switch {
	case check.Outcome == verdict.OutcomePass:
		return passStyle.Render("✓")
	case check.Outcome == verdict.OutcomeSkip:
		return dimStyle.Render("-")
	case check.Advisory:
		return warnStyle.Render("!")
	default:
		return failStyle.Render("✗")
	}
}
