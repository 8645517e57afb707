package report

import (
	"encoding/json"
	"fmt"

	"github.com/liip/sheriff"
	"github.com/travigo/feedcheck/pkg/verdict"
)

// RenderJSON reduces the report to the "basic" group, or "basic" and "detailed"
func RenderJSON(report verdict.Report, detailed bool) ([]byte, error) {
	groups := []string{"basic"}
	if detailed {
		groups = append(groups, "detailed")
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, report)
	if err != nil {
		return nil, fmt.Errorf("reduce report: %w", err)
	}

	output, err := json.MarshalIndent(reduced, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	return append(output, '\n'), nil
}
