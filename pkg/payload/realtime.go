package payload

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
	"unicode/utf8"
)

type Format string

const (
	FormatProtobuf Format = "protobuf"
	FormatJSON     Format = "json"
	FormatUnknown  Format = "unknown"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ClassifyRealtime sniffs a realtime payload. A valid JSON object or array is
// JSON, binary content that does not open a JSON structure is Protobuf, anything
// else (HTML error pages, XML, plain text) is Unknown. A bare JSON scalar such as
// 123 or "ok" only counts as JSON when the Content-Type declares application/json;
// that is the one place the header is consulted.
func ClassifyRealtime(contentType string, body []byte) Format {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(body, utf8BOM), " \t\r\n")
	if len(trimmed) == 0 {
		return FormatUnknown
	}

	if opensJSON(trimmed) {
		if json.Valid(trimmed) {
			return FormatJSON
		}
		if !isBinary(body) {
			return FormatUnknown
		}
	}

	if isBinary(body) {
		return FormatProtobuf
	}

	if mediaType(contentType) == "application/json" && json.Valid(trimmed) {
		return FormatJSON
	}

	return FormatUnknown
}

func opensJSON(trimmed []byte) bool {
	return trimmed[0] == '{' || trimmed[0] == '['
}

// isBinary treats invalid UTF-8 or control characters other than common
// whitespace as binary
func isBinary(body []byte) bool {
	if !utf8.Valid(body) {
		return true
	}

	for _, b := range body {
		if b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			return true
		}
	}

	return false
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}

	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}

	return parsed
}
