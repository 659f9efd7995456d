package gtfsrt

import (
	"fmt"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// DecodeTripUpdates parses a GTFS-RT TripUpdates feed into forecast
// records. Returns the records and the feed header timestamp.
// Entities without a trip or without stop time updates are skipped.
func DecodeTripUpdates(b []byte) ([]TripForecastRecord, int64, error) {
	if len(b) == 0 {
		return nil, 0, nil
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, 0, fmt.Errorf("trip updates: %w", err)
	}
	headerTS := headerTimestamp(&fm)

	var recs []TripForecastRecord
	for _, e := range fm.Entity {
		tu := e.TripUpdate
		if tu == nil || tu.Trip == nil || tu.Trip.TripId == nil {
			continue
		}
		tripID := *tu.Trip.TripId
		routeID := ""
		if tu.Trip.RouteId != nil {
			routeID = *tu.Trip.RouteId
		}
		direction := 0
		if tu.Trip.DirectionId != nil {
			direction = int(*tu.Trip.DirectionId)
		}
		snapshotTS := headerTS
		if tu.Timestamp != nil && *tu.Timestamp > 0 {
			snapshotTS = int64(*tu.Timestamp)
		}
		for _, stu := range tu.StopTimeUpdate {
			if stu.StopId == nil || stu.Arrival == nil || stu.Arrival.Time == nil {
				continue
			}
			rec := TripForecastRecord{
				TripID:            tripID,
				RouteID:           routeID,
				StopID:            *stu.StopId,
				DirectionID:       direction,
				ArrivalTime:       *stu.Arrival.Time,
				SnapshotTimestamp: snapshotTS,
			}
			if stu.StopSequence != nil {
				rec.StopSequence = int(*stu.StopSequence)
			}
			if stu.Arrival.Delay != nil {
				rec.ArrivalDelay = float64(*stu.Arrival.Delay)
			}
			if stu.Departure != nil && stu.Departure.Time != nil {
				rec.DepartureTime = *stu.Departure.Time
				if stu.Departure.Delay != nil {
					rec.DepartureDelay = float64(*stu.Departure.Delay)
				}
			} else {
				// No departure forecast: treat the call as arrive-and-go.
				rec.DepartureTime = rec.ArrivalTime
				rec.DepartureDelay = rec.ArrivalDelay
			}
			recs = append(recs, rec)
		}
	}
	return recs, headerTS, nil
}

// DecodeVehiclePositions parses a GTFS-RT VehiclePositions feed into
// position records. Entities without a stop reference are skipped; the
// joiner matches positions to stations by stop, not by coordinates.
func DecodeVehiclePositions(b []byte) ([]VehiclePositionRecord, int64, error) {
	if len(b) == 0 {
		return nil, 0, nil
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, 0, fmt.Errorf("vehicle positions: %w", err)
	}
	headerTS := headerTimestamp(&fm)

	var recs []VehiclePositionRecord
	for _, e := range fm.Entity {
		vp := e.Vehicle
		if vp == nil || vp.StopId == nil {
			continue
		}
		rec := VehiclePositionRecord{
			StopID:    *vp.StopId,
			Timestamp: headerTS,
		}
		if vp.Trip != nil && vp.Trip.DirectionId != nil {
			rec.DirectionID = int(*vp.Trip.DirectionId)
		}
		if vp.Timestamp != nil && *vp.Timestamp > 0 {
			rec.Timestamp = int64(*vp.Timestamp)
		}
		recs = append(recs, rec)
	}
	return recs, headerTS, nil
}

// DecodeMinute decodes both feeds into one snapshot minute. The minute
// timestamp is the latest header timestamp across the two feeds.
func DecodeMinute(tuBytes, vpBytes []byte) (Minute, error) {
	tu, tuTS, err := DecodeTripUpdates(tuBytes)
	if err != nil {
		return Minute{}, err
	}
	vp, vpTS, err := DecodeVehiclePositions(vpBytes)
	if err != nil {
		return Minute{}, err
	}
	ts := tuTS
	if vpTS > ts {
		ts = vpTS
	}
	return Minute{Timestamp: ts, TripUpdates: tu, VehiclePositions: vp}, nil
}

func headerTimestamp(fm *gtfsrtpb.FeedMessage) int64 {
	if fm.Header != nil && fm.Header.Timestamp != nil {
		return int64(*fm.Header.Timestamp)
	}
	return 0
}
