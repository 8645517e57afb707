package verdict

import (
	"time"
)

// Outcome is the result of a single check
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	OutcomeSkip Outcome = "skip"
)

// Status is the overall verdict of an entry
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkip    Status = "skip"
	StatusTimeout Status = "timeout"
)

// Failed reports whether the status blocks deployment
func (s Status) Failed() bool {
	return s == StatusFail || s == StatusTimeout
}

// Code identifies why a check did not pass
type Code string

const (
	CodeNone                Code = ""
	CodeUnreachable         Code = "Unreachable"
	CodeHTTPError           Code = "HttpError"
	CodeRateLimited         Code = "RateLimited"
	CodeTimeout             Code = "Timeout"
	CodeNoContent           Code = "NoContent"
	CodeInvalidFormat       Code = "InvalidFormat"
	CodeIncompleteStructure Code = "IncompleteStructure"
	CodeUnknownFormat       Code = "UnknownFormat"
	CodeInvalidUpdaterType  Code = "InvalidUpdaterType"
	CodeStaleReference      Code = "StaleReference"
	CodeSchemaMismatch      Code = "SchemaMismatch"
)

// Kind distinguishes the two catalogs an entry comes from
type Kind string

const (
	KindStatic   Kind = "static"
	KindRealtime Kind = "realtime"
)

// Check names
const (
	CheckSourceReachability    = "source_reachability"
	CheckZipSignature          = "zip_signature"
	CheckArchiveStructure      = "archive_structure"
	CheckReferenceReachability = "reference_reachability"

	CheckEndpointReachability = "endpoint_reachability"
	CheckPayloadFormat        = "payload_format"
	CheckUpdaterType          = "updater_type"
	CheckStaticReference      = "static_reference"
	CheckFeedSchema           = "feed_schema"
)

type Check struct {
	Name     string  `json:"name" groups:"detailed"`
	Outcome  Outcome `json:"outcome" groups:"detailed"`
	Advisory bool    `json:"advisory,omitempty" groups:"detailed"`
	Code     Code    `json:"code,omitempty" groups:"detailed"`
	Message  string  `json:"message,omitempty" groups:"detailed"`
}

// EntryRef identifies the catalog entry a record belongs to
type EntryRef struct {
	Kind   Kind   `json:"kind" groups:"basic"`
	Index  int    `json:"index" groups:"basic"`
	FeedID string `json:"feedId" groups:"basic"`
	Type   string `json:"type" groups:"basic"`
	URL    string `json:"url" groups:"basic"`
}

// Record is the verdict for one entry in one run. Build it with a Builder; it is
// not modified once built.
type Record struct {
	Entry    EntryRef      `json:"entry" groups:"basic"`
	Checks   []Check       `json:"checks" groups:"detailed"`
	Status   Status        `json:"status" groups:"basic"`
	Duration time.Duration `json:"duration" groups:"detailed"`
}

// Check returns the named check and whether it was recorded
func (r Record) Check(name string) (Check, bool) {
	for _, check := range r.Checks {
		if check.Name == name {
			return check, true
		}
	}

	return Check{}, false
}

// FailingChecks returns the non advisory checks that failed
func (r Record) FailingChecks() []Check {
	var failing []Check
	for _, check := range r.Checks {
		if check.Outcome == OutcomeFail && !check.Advisory {
			failing = append(failing, check)
		}
	}

	return failing
}

// Notes returns the advisory checks that did not pass
func (r Record) Notes() []Check {
	var notes []Check
	for _, check := range r.Checks {
		if check.Advisory && check.Outcome == OutcomeFail {
			notes = append(notes, check)
		}
	}

	return notes
}
