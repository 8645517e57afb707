package verdict

import "time"

// Builder accumulates checks for a single entry and produces the final Record
type Builder struct {
	entry   EntryRef
	checks  []Check
	started time.Time

	timedOut bool
	skipped  bool
}

func NewBuilder(entry EntryRef) *Builder {
	return &Builder{
		entry:   entry,
		started: time.Now(),
	}
}

func (b *Builder) Pass(name string, message string) *Builder {
	b.checks = append(b.checks, Check{Name: name, Outcome: OutcomePass, Message: message})
	return b
}

func (b *Builder) Fail(name string, code Code, message string) *Builder {
	b.checks = append(b.checks, Check{Name: name, Outcome: OutcomeFail, Code: code, Message: message})
	return b
}

func (b *Builder) Skip(name string, code Code, message string) *Builder {
	b.checks = append(b.checks, Check{Name: name, Outcome: OutcomeSkip, Code: code, Message: message})
	return b
}

// Advisory records a check that never influences the overall status
func (b *Builder) Advisory(name string, outcome Outcome, code Code, message string) *Builder {
	b.checks = append(b.checks, Check{Name: name, Outcome: outcome, Advisory: true, Code: code, Message: message})
	return b
}

// Inconclusive marks the whole entry as skipped unless a required check failed
func (b *Builder) Inconclusive() *Builder {
	b.skipped = true
	return b
}

// TimedOut marks the entry as unfinished when the run deadline expired
func (b *Builder) TimedOut(name string, message string) *Builder {
	b.timedOut = true
	b.checks = append(b.checks, Check{Name: name, Outcome: OutcomeFail, Code: CodeTimeout, Message: message})
	return b
}

// Build derives the overall status: timeout wins, then any required failure,
// then an inconclusive marker, otherwise pass
func (b *Builder) Build() Record {
	checks := make([]Check, len(b.checks))
	copy(checks, b.checks)

	record := Record{
		Entry:    b.entry,
		Checks:   checks,
		Duration: time.Since(b.started),
	}

	switch {
	case b.timedOut:
		record.Status = StatusTimeout
	case len(record.FailingChecks()) > 0:
		record.Status = StatusFail
	case b.skipped:
		record.Status = StatusSkip
	default:
		record.Status = StatusPass
	}

	return record
}

// TimeoutRecord is the record of an entry that never started before the deadline
func TimeoutRecord(entry EntryRef) Record {
	return NewBuilder(entry).TimedOut("deadline", "validation deadline expired before the entry was checked").Build()
}
