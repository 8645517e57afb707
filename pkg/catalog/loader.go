package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/senseyeio/duration"
	"github.com/travigo/feedcheck/pkg/util"
	"gopkg.in/yaml.v3"
)

// Keys that may wrap the entry list when a document is a mapping rather than a bare list
var (
	staticListKeys   = []string{"transitFeeds", "feeds"}
	realtimeListKeys = []string{"updaters", "feeds"}
)

const (
	tagString = "!!str"
	tagInt    = "!!int"
	tagNull   = "!!null"
)

var validate = newValidator()

var placeholderPattern = regexp.MustCompile(`\{\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}\}`)

func newValidator() *validator.Validate {
	v := validator.New()

	// Report document field names (feedId) rather than Go field names (FeedID)
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return v
}

// LoadFiles reads both catalog documents from disk, expands {{{NAME}}}
// placeholders from the environment and loads them
func LoadFiles(staticPath string, realtimePath string) ([]StaticFeed, []RealtimeFeed, error) {
	staticDocument, err := os.ReadFile(staticPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read static catalog: %w", err)
	}

	realtimeDocument, err := os.ReadFile(realtimePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read realtime catalog: %w", err)
	}

	env := util.GetEnvironmentVariables()

	return Load(ExpandPlaceholders(staticDocument, env), ExpandPlaceholders(realtimeDocument, env))
}

// ExpandPlaceholders replaces every {{{NAME}}} in document with env[NAME].
// Unset variables expand to an empty string and are logged by name only.
func ExpandPlaceholders(document []byte, env map[string]string) []byte {
	warned := map[string]bool{}

	return placeholderPattern.ReplaceAllFunc(document, func(match []byte) []byte {
		name := string(placeholderPattern.FindSubmatch(match)[1])

		value, exists := env[name]
		if !exists && !warned[name] {
			warned[name] = true
			log.Warn().Str("variable", name).Msg("Catalog placeholder has no environment variable, expanding to empty")
		}

		return []byte(value)
	})
}

// Load parses both catalog documents. Either both catalogs load completely or an
// error describing the first problem is returned. No network access happens here.
func Load(staticDocument []byte, realtimeDocument []byte) ([]StaticFeed, []RealtimeFeed, error) {
	staticFeeds, err := LoadStatic(staticDocument)
	if err != nil {
		return nil, nil, err
	}

	realtimeFeeds, err := LoadRealtime(realtimeDocument)
	if err != nil {
		return nil, nil, err
	}

	knownFeeds := FeedIDs(staticFeeds)
	for _, feed := range realtimeFeeds {
		if _, exists := knownFeeds[feed.FeedID]; !exists {
			return nil, nil, &DanglingReferenceError{EntryIndex: feed.Index, FeedID: feed.FeedID}
		}
	}

	log.Debug().
		Int("static", len(staticFeeds)).
		Int("realtime", len(realtimeFeeds)).
		Msg("Loaded catalogs")

	return staticFeeds, realtimeFeeds, nil
}

// LoadStatic parses the static GTFS catalog on its own
func LoadStatic(document []byte) ([]StaticFeed, error) {
	entries, err := entryNodes(DocumentStatic, document, staticListKeys)
	if err != nil {
		return nil, err
	}

	feeds := make([]StaticFeed, 0, len(entries))
	seen := map[string]int{}

	for index, entry := range entries {
		if err := checkFields(DocumentStatic, index, entry, []string{"type", "source", "feedId", "reference"}); err != nil {
			return nil, err
		}

		var feed StaticFeed
		if err := entry.Decode(&feed); err != nil {
			return nil, &SchemaViolationError{Document: DocumentStatic, EntryIndex: index, Reason: err.Error()}
		}
		feed.Index = index
		feed.Type = StaticFeedType(strings.ToLower(strings.TrimSpace(string(feed.Type))))
		feed.FeedID = strings.TrimSpace(feed.FeedID)

		if err := validateEntry(DocumentStatic, index, feed); err != nil {
			return nil, err
		}

		if previous, exists := seen[feed.FeedID]; exists {
			return nil, &SchemaViolationError{
				Document:   DocumentStatic,
				EntryIndex: index,
				Field:      "feedId",
				Reason:     fmt.Sprintf("duplicates entry %d", previous),
			}
		}
		seen[feed.FeedID] = index

		feeds = append(feeds, feed)
	}

	return feeds, nil
}

// LoadRealtime parses the realtime updater catalog on its own. Referential
// integrity against the static catalog is checked by Load.
func LoadRealtime(document []byte) ([]RealtimeFeed, error) {
	entries, err := entryNodes(DocumentRealtime, document, realtimeListKeys)
	if err != nil {
		return nil, err
	}

	feeds := make([]RealtimeFeed, 0, len(entries))

	for index, entry := range entries {
		if err := checkFields(DocumentRealtime, index, entry, []string{"type", "url", "feedId"}); err != nil {
			return nil, err
		}

		var feed RealtimeFeed
		if err := entry.Decode(&feed); err != nil {
			return nil, &SchemaViolationError{Document: DocumentRealtime, EntryIndex: index, Reason: err.Error()}
		}
		feed.Index = index
		feed.Type = UpdaterType(util.NormaliseIdentifier(string(feed.Type)))
		feed.FeedID = strings.TrimSpace(feed.FeedID)

		if frequencyNode := mappingValue(entry, "frequency"); frequencyNode != nil && frequencyNode.Tag != tagNull {
			frequency, err := parseFrequency(frequencyNode)
			if err != nil {
				return nil, &SchemaViolationError{Document: DocumentRealtime, EntryIndex: index, Field: "frequency", Reason: err.Error()}
			}
			feed.Frequency = &frequency
		}

		if err := validateEntry(DocumentRealtime, index, feed); err != nil {
			return nil, err
		}

		feeds = append(feeds, feed)
	}

	return feeds, nil
}

func entryNodes(document Document, raw []byte, listKeys []string) ([]*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &MalformedCatalogError{Document: document, Cause: err}
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &MalformedCatalogError{Document: document, Cause: errors.New("document is empty")}
	}

	list := root.Content[0]
	if list.Kind == yaml.MappingNode {
		var wrapped *yaml.Node
		for _, key := range listKeys {
			if wrapped = mappingValue(list, key); wrapped != nil {
				break
			}
		}
		if wrapped == nil {
			return nil, &MalformedCatalogError{
				Document: document,
				Cause:    fmt.Errorf("expected a list of entries or a mapping with one of %s", strings.Join(listKeys, ", ")),
			}
		}
		list = wrapped
	}

	if list.Kind != yaml.SequenceNode {
		return nil, &MalformedCatalogError{Document: document, Cause: errors.New("expected a list of entries")}
	}

	return list.Content, nil
}

// checkFields enforces presence and scalar string type of the required fields
// before the entry is decoded, so type errors can name the offending field
func checkFields(document Document, index int, entry *yaml.Node, required []string) error {
	if entry.Kind != yaml.MappingNode {
		return &SchemaViolationError{Document: document, EntryIndex: index, Reason: "entry is not an object"}
	}

	for _, field := range required {
		value := mappingValue(entry, field)
		if value == nil || value.Tag == tagNull {
			return &SchemaViolationError{Document: document, EntryIndex: index, Field: field, Reason: "is required"}
		}
		if value.Kind != yaml.ScalarNode || value.Tag != tagString {
			return &SchemaViolationError{Document: document, EntryIndex: index, Field: field, Reason: "must be a string"}
		}
	}

	return nil
}

func validateEntry(document Document, index int, entry any) error {
	err := validate.Struct(entry)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return &SchemaViolationError{Document: document, EntryIndex: index, Reason: err.Error()}
	}

	fieldError := validationErrors[0]

	return &SchemaViolationError{
		Document:   document,
		EntryIndex: index,
		Field:      fieldError.Field(),
		Reason:     describeValidationTag(fieldError),
	}
}

func describeValidationTag(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "http_url":
		return "must be an absolute http(s) URL"
	case "eq":
		return fmt.Sprintf("must be %q", fieldError.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fieldError.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("must be greater than %s", fieldError.Param())
	default:
		return fmt.Sprintf("failed %s validation", fieldError.Tag())
	}
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}

	return nil
}

// parseFrequency accepts whole seconds or an ISO-8601 duration such as PT30S
func parseFrequency(node *yaml.Node) (int, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, errors.New("must be a number of seconds")
	}

	switch node.Tag {
	case tagInt:
		seconds, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil || seconds > math.MaxInt32 {
			return 0, errors.New("must be a number of seconds")
		}
		return int(seconds), nil
	case tagString:
		isoDuration, err := duration.ParseISO8601(node.Value)
		if err != nil {
			return 0, errors.New("must be a number of seconds or an ISO-8601 duration")
		}
		epoch := time.Unix(0, 0).UTC()
		seconds := int64(isoDuration.Shift(epoch).Sub(epoch) / time.Second)
		if seconds > math.MaxInt32 {
			return 0, errors.New("must be a duration of at most 2147483647 seconds")
		}
		return int(seconds), nil
	default:
		return 0, errors.New("must be a number of seconds")
	}
}
