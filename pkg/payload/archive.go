package payload

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"golang.org/x/exp/slices"
)

type ArchiveKind int

const (
	NotZip ArchiveKind = iota
	Zip
)

func (k ArchiveKind) String() string {
	if k == Zip {
		return "zip"
	}
	return "not-zip"
}

var (
	zipLocalFileHeader = []byte("PK\x03\x04")
	zipEmptyArchive    = []byte("PK\x05\x06")
)

// ClassifyArchive looks only at the first four bytes of body
func ClassifyArchive(body []byte) ArchiveKind {
	if bytes.HasPrefix(body, zipLocalFileHeader) || bytes.HasPrefix(body, zipEmptyArchive) {
		return Zip
	}

	return NotZip
}

// ListArchiveEntries returns the member names recorded in the central directory
func ListArchiveEntries(body []byte) ([]string, error) {
	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("read zip central directory: %w", err)
	}

	names := make([]string, 0, len(archive.File))
	for _, file := range archive.File {
		names = append(names, file.Name)
	}

	return names, nil
}

// TableCheck is the outcome of comparing archive members with the required GTFS tables
type TableCheck struct {
	Present []string
	Missing []string
	// Nested holds required tables that only exist inside a subdirectory
	Nested []string
}

// CheckTables matches required table names (without .txt) against root level
// members, case-insensitively. Results are sorted.
func CheckTables(entries []string, required []string) TableCheck {
	root := map[string]bool{}
	nested := map[string]bool{}

	for _, entry := range entries {
		name := strings.ToLower(strings.TrimPrefix(entry, "/"))
		if strings.HasSuffix(name, "/") || !strings.HasSuffix(name, ".txt") {
			continue
		}

		table := strings.TrimSuffix(path.Base(name), ".txt")
		if strings.Contains(name, "/") {
			nested[table] = true
		} else {
			root[table] = true
		}
	}

	var result TableCheck
	for _, table := range required {
		table = strings.ToLower(strings.TrimSuffix(table, ".txt"))
		switch {
		case root[table]:
			result.Present = append(result.Present, table)
		case nested[table]:
			result.Missing = append(result.Missing, table)
			result.Nested = append(result.Nested, table)
		default:
			result.Missing = append(result.Missing, table)
		}
	}

	slices.Sort(result.Present)
	slices.Sort(result.Missing)
	slices.Sort(result.Nested)

	return result
}

// DescribeContent names the detected MIME type of body, for error messages
func DescribeContent(body []byte) string {
	if len(body) == 0 {
		return "empty body"
	}

	return mimetype.Detect(body).String()
}
