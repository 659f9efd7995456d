// Package gtfsrt is the ingestion boundary of the disruption detector.
//
// It decodes GTFS-Realtime FeedMessage payloads (TripUpdates and
// VehiclePositions) into the flat record types the core consumes, one
// snapshot minute at a time. The core never touches protobuf itself; all
// raw-feed concerns stop here.
//
// A Minute bundles everything observed for one snapshot timestamp:
//
//	client := gtfsrt.NewClient(30 * time.Second)
//	tu, _ := client.Fetch(tripUpdatesURL)
//	vp, _ := client.Fetch(vehiclePositionsURL)
//	minute, err := gtfsrt.DecodeMinute(tu, vp)
package gtfsrt
