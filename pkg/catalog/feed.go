package catalog

// Document names one of the two catalog documents
type Document string

const (
	DocumentStatic   Document = "static"
	DocumentRealtime Document = "realtime"
)

type StaticFeedType string

const (
	StaticFeedTypeGTFS StaticFeedType = "gtfs"
)

type UpdaterType string

const (
	UpdaterTypeStopTimeUpdater  UpdaterType = "stop_time_updater"
	UpdaterTypeVehiclePositions UpdaterType = "vehicle_positions"
	UpdaterTypeRealTimeAlerts   UpdaterType = "real_time_alerts"
)

// UpdaterTypes lists every recognised realtime updater kind
var UpdaterTypes = []UpdaterType{
	UpdaterTypeStopTimeUpdater,
	UpdaterTypeVehiclePositions,
	UpdaterTypeRealTimeAlerts,
}

func (u UpdaterType) Valid() bool {
	for _, known := range UpdaterTypes {
		if u == known {
			return true
		}
	}

	return false
}

type StaticFeed struct {
	Index int `yaml:"-" json:"-"`

	Type      StaticFeedType `yaml:"type" json:"type" validate:"required,eq=gtfs"`
	Source    string         `yaml:"source" json:"source" validate:"required,http_url"`
	FeedID    string         `yaml:"feedId" json:"feedId" validate:"required"`
	Reference string         `yaml:"reference" json:"reference" validate:"required,http_url"`
}

type RealtimeFeed struct {
	Index int `yaml:"-" json:"-"`

	Type   UpdaterType `yaml:"type" json:"type" validate:"required,oneof=stop_time_updater vehicle_positions real_time_alerts"`
	URL    string      `yaml:"url" json:"url" validate:"required,http_url"`
	FeedID string      `yaml:"feedId" json:"feedId" validate:"required"`

	// Frequency is the polling interval in seconds, nil when the updater does not declare one
	Frequency *int `yaml:"-" json:"frequency,omitempty" validate:"omitempty,gt=0"`
}

// FeedIDs returns the set of static feed identifiers
func FeedIDs(feeds []StaticFeed) map[string]struct{} {
	ids := make(map[string]struct{}, len(feeds))
	for _, feed := range feeds {
		ids[feed.FeedID] = struct{}{}
	}

	return ids
}
