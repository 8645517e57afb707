// Package feedtest builds feed fixtures for tests.
package feedtest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/klauspost/compress/zip"
	"google.golang.org/protobuf/proto"
)

// RequiredTables are the member names of a minimal valid GTFS archive
var RequiredTables = []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"}

// ZipArchive builds an in-memory archive holding the named members, each with a CSV header line
func ZipArchive(t testing.TB, names ...string) []byte {
	t.Helper()

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, name := range names {
		file, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create zip member %s: %v", name, err)
		}
		if _, err := file.Write([]byte("id,name\n")); err != nil {
			t.Fatalf("write zip member %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	return buffer.Bytes()
}

// FeedMessage marshals a GTFS-Realtime feed with the given number of vehicle
// position, trip update and alert entities
func FeedMessage(t testing.TB, vehicles int, tripUpdates int, alerts int) []byte {
	t.Helper()

	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1700000000),
		},
	}

	id := 0
	nextID := func() *string {
		id++
		return proto.String(fmt.Sprintf("entity-%d", id))
	}

	for i := 0; i < vehicles; i++ {
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id: nextID(),
			Vehicle: &gtfs.VehiclePosition{
				Trip: &gtfs.TripDescriptor{TripId: proto.String("trip")},
			},
		})
	}
	for i := 0; i < tripUpdates; i++ {
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id: nextID(),
			TripUpdate: &gtfs.TripUpdate{
				Trip: &gtfs.TripDescriptor{TripId: proto.String("trip")},
			},
		})
	}
	for i := 0; i < alerts; i++ {
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id:    nextID(),
			Alert: &gtfs.Alert{},
		})
	}

	body, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("marshal feed message: %v", err)
	}

	return body
}
