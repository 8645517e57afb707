// Package payload classifies downloaded feed bodies without fully decoding them.
//
// Static GTFS bodies are checked against the ZIP magic numbers and the archive
// central directory is listed by name only; no member is decompressed.
// Realtime bodies are sniffed as Protobuf or JSON, and Protobuf bodies can be
// given a minimal GTFS-Realtime schema check.
package payload
