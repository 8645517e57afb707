package payload

import (
	"errors"
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// FeedSummary is what the minimal GTFS-Realtime schema check learns about a feed
type FeedSummary struct {
	Version   string
	Timestamp uint64

	Entities         int
	TripUpdates      int
	VehiclePositions int
	Alerts           int
}

var ErrMissingHeader = errors.New("feed message has no header")

// DecodeFeed unmarshals a GTFS-Realtime FeedMessage and counts its entities by kind.
// Only the header is required; entity contents are not validated.
func DecodeFeed(body []byte) (FeedSummary, error) {
	feed := gtfs.FeedMessage{}
	if err := (proto.UnmarshalOptions{AllowPartial: true}).Unmarshal(body, &feed); err != nil {
		return FeedSummary{}, fmt.Errorf("decode gtfs-realtime feed: %w", err)
	}

	header := feed.GetHeader()
	if header == nil {
		return FeedSummary{}, ErrMissingHeader
	}
	if header.GetGtfsRealtimeVersion() == "" {
		return FeedSummary{}, errors.New("feed header has no gtfs_realtime_version")
	}

	summary := FeedSummary{
		Version:   header.GetGtfsRealtimeVersion(),
		Timestamp: header.GetTimestamp(),
		Entities:  len(feed.Entity),
	}

	for _, entity := range feed.Entity {
		if entity.GetTripUpdate() != nil {
			summary.TripUpdates++
		}
		if entity.GetVehicle() != nil {
			summary.VehiclePositions++
		}
		if entity.GetAlert() != nil {
			summary.Alerts++
		}
	}

	return summary, nil
}
