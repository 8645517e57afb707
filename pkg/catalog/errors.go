package catalog

import "fmt"

// MalformedCatalogError is returned when a document is not well-formed structured
// data or does not hold a list of entries
type MalformedCatalogError struct {
	Document Document
	Cause    error
}

func (e *MalformedCatalogError) Error() string {
	return fmt.Sprintf("malformed %s catalog: %v", e.Document, e.Cause)
}

func (e *MalformedCatalogError) Unwrap() error {
	return e.Cause
}

// SchemaViolationError points at the entry and field that broke the catalog schema
type SchemaViolationError struct {
	Document   Document
	EntryIndex int
	Field      string
	Reason     string
}

func (e *SchemaViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s catalog entry %d: %s", e.Document, e.EntryIndex, e.Reason)
	}

	return fmt.Sprintf("%s catalog entry %d: field %q %s", e.Document, e.EntryIndex, e.Field, e.Reason)
}

// DanglingReferenceError is returned when a realtime updater names a feedId the
// static catalog does not define
type DanglingReferenceError struct {
	EntryIndex int
	FeedID     string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("realtime catalog entry %d: feedId %q does not match any static feed", e.EntryIndex, e.FeedID)
}
