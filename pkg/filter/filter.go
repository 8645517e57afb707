// Package filter selects catalog entries with expr-lang expressions such as
//
//	Kind == "realtime" && Type == "vehicle_positions"
//	FeedID startsWith "gb-" || URL contains "example.com"
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/travigo/feedcheck/pkg/catalog"
)

// Entry is the environment an expression is evaluated against
type Entry struct {
	Kind      string
	FeedID    string
	Type      string
	URL       string
	Reference string
	// Frequency is zero when the entry does not declare one
	Frequency int
}

func StaticEntry(feed catalog.StaticFeed) Entry {
	return Entry{
		Kind:      string(catalog.DocumentStatic),
		FeedID:    feed.FeedID,
		Type:      string(feed.Type),
		URL:       feed.Source,
		Reference: feed.Reference,
	}
}

func RealtimeEntry(feed catalog.RealtimeFeed) Entry {
	entry := Entry{
		Kind:   string(catalog.DocumentRealtime),
		FeedID: feed.FeedID,
		Type:   string(feed.Type),
		URL:    feed.URL,
	}
	if feed.Frequency != nil {
		entry.Frequency = *feed.Frequency
	}

	return entry
}

// Filter is a compiled expression. A nil Filter matches every entry.
type Filter struct {
	expression string
	program    *vm.Program
}

// Compile returns nil for an empty expression
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return nil, nil
	}

	program, err := expr.Compile(expression, expr.Env(Entry{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}

	return &Filter{expression: expression, program: program}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}

func (f *Filter) Match(entry Entry) (bool, error) {
	if f == nil {
		return true, nil
	}

	output, err := expr.Run(f.program, entry)
	if err != nil {
		return false, fmt.Errorf("evaluate filter on %s: %w", entry.FeedID, err)
	}

	return output.(bool), nil
}

func (f *Filter) Static(feeds []catalog.StaticFeed) ([]catalog.StaticFeed, error) {
	return apply(f, feeds, StaticEntry)
}

func (f *Filter) Realtime(feeds []catalog.RealtimeFeed) ([]catalog.RealtimeFeed, error) {
	return apply(f, feeds, RealtimeEntry)
}

func apply[T any](f *Filter, feeds []T, toEntry func(T) Entry) ([]T, error) {
	if f == nil {
		return feeds, nil
	}

	selected := make([]T, 0, len(feeds))
	for _, feed := range feeds {
		matches, err := f.Match(toEntry(feed))
		if err != nil {
			return nil, err
		}
		if matches {
			selected = append(selected, feed)
		}
	}

	return selected, nil
}
