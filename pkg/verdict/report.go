package verdict

import (
	"time"

	"golang.org/x/exp/slices"
)

// Report aggregates the records of a validation run
type Report struct {
	Records   []Record  `json:"records" groups:"basic"`
	AllPassed bool      `json:"allPassed" groups:"basic"`
	Counts    Counts    `json:"counts" groups:"basic"`
	Started   time.Time `json:"started" groups:"detailed"`
	Finished  time.Time `json:"finished" groups:"detailed"`
}

// Counts is the number of records per status
type Counts struct {
	Pass    int `json:"pass" groups:"basic"`
	Fail    int `json:"fail" groups:"basic"`
	Skip    int `json:"skip" groups:"basic"`
	Timeout int `json:"timeout" groups:"basic"`
}

func (c *Counts) add(status Status) {
	switch status {
	case StatusPass:
		c.Pass++
	case StatusFail:
		c.Fail++
	case StatusSkip:
		c.Skip++
	case StatusTimeout:
		c.Timeout++
	}
}

var kindOrder = map[Kind]int{
	KindStatic:   0,
	KindRealtime: 1,
}

// NewReport sorts records into catalog order (static entries first) and
// computes the aggregate verdict. An empty run passes.
func NewReport(records []Record, started time.Time, finished time.Time) Report {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	slices.SortStableFunc(sorted, func(a, b Record) int {
		if kindOrder[a.Entry.Kind] != kindOrder[b.Entry.Kind] {
			return kindOrder[a.Entry.Kind] - kindOrder[b.Entry.Kind]
		}
		return a.Entry.Index - b.Entry.Index
	})

	report := Report{
		Records:   sorted,
		AllPassed: true,
		Started:   started,
		Finished:  finished,
	}

	for _, record := range sorted {
		report.Counts.add(record.Status)
		if record.Status.Failed() {
			report.AllPassed = false
		}
	}

	return report
}

// Failed returns the records that block deployment
func (r Report) Failed() []Record {
	var failed []Record
	for _, record := range r.Records {
		if record.Status.Failed() {
			failed = append(failed, record)
		}
	}

	return failed
}

// Lookup finds the first record of the given kind for feedID
func (r Report) Lookup(kind Kind, feedID string) (Record, bool) {
	for _, record := range r.Records {
		if record.Entry.Kind == kind && record.Entry.FeedID == feedID {
			return record, true
		}
	}

	return Record{}, false
}
