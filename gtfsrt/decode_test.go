package gtfsrt

import (
	"testing"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

func strPtr(s string) *string { return &s }
func u32Ptr(v uint32) *uint32 { return &v }
func u64Ptr(v uint64) *uint64 { return &v }
func i32Ptr(v int32) *int32   { return &v }
func i64Ptr(v int64) *int64   { return &v }

func marshalFeed(t *testing.T, fm *gtfsrtpb.FeedMessage) []byte {
	t.Helper()
	b, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("proto.Marshal: %v", err)
	}
	return b
}

func tripUpdateFeed(headerTS uint64) *gtfsrtpb.FeedMessage {
	return &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: strPtr("2.0"),
			Timestamp:           u64Ptr(headerTS),
		},
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: strPtr("1"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					Trip: &gtfsrtpb.TripDescriptor{
						TripId:      strPtr("trip-1"),
						RouteId:     strPtr("T1"),
						DirectionId: u32Ptr(1),
					},
					StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{
						{
							StopSequence: u32Ptr(3),
							StopId:       strPtr("S1"),
							Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{
								Time:  i64Ptr(1700000100),
								Delay: i32Ptr(45),
							},
							Departure: &gtfsrtpb.TripUpdate_StopTimeEvent{
								Time:  i64Ptr(1700000130),
								Delay: i32Ptr(50),
							},
						},
						{
							// No departure forecast.
							StopSequence: u32Ptr(4),
							StopId:       strPtr("S2"),
							Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{
								Time:  i64Ptr(1700000400),
								Delay: i32Ptr(60),
							},
						},
						{
							// No arrival forecast: skipped.
							StopId: strPtr("S3"),
						},
					},
				},
			},
			{
				// Entity without a trip update: skipped.
				Id: strPtr("2"),
			},
		},
	}
}

func TestDecodeTripUpdates(t *testing.T) {
	b := marshalFeed(t, tripUpdateFeed(1700000040))

	recs, headerTS, err := DecodeTripUpdates(b)
	if err != nil {
		t.Fatalf("DecodeTripUpdates: %v", err)
	}
	if headerTS != 1700000040 {
		t.Errorf("header ts = %d", headerTS)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}

	first := recs[0]
	if first.TripID != "trip-1" || first.RouteID != "T1" || first.DirectionID != 1 {
		t.Errorf("trip fields = %+v", first)
	}
	if first.StopID != "S1" || first.StopSequence != 3 {
		t.Errorf("stop fields = %+v", first)
	}
	if first.ArrivalTime != 1700000100 || first.ArrivalDelay != 45 {
		t.Errorf("arrival = %d/%v", first.ArrivalTime, first.ArrivalDelay)
	}
	if first.DepartureTime != 1700000130 || first.DepartureDelay != 50 {
		t.Errorf("departure = %d/%v", first.DepartureTime, first.DepartureDelay)
	}
	if first.SnapshotTimestamp != 1700000040 {
		t.Errorf("snapshot ts = %d", first.SnapshotTimestamp)
	}

	// Arrive-and-go: missing departure copies the arrival forecast.
	second := recs[1]
	if second.DepartureTime != second.ArrivalTime || second.DepartureDelay != second.ArrivalDelay {
		t.Errorf("arrive-and-go record = %+v", second)
	}
}

func TestDecodeTripUpdatesScheduledTimes(t *testing.T) {
	b := marshalFeed(t, tripUpdateFeed(1700000040))
	recs, _, err := DecodeTripUpdates(b)
	if err != nil {
		t.Fatal(err)
	}
	// Scheduled times are implied by predicted minus delay.
	if got := recs[0].ScheduledArrival(); got != 1700000055 {
		t.Errorf("ScheduledArrival = %v", got)
	}
	if got := recs[0].ScheduledDeparture(); got != 1700000080 {
		t.Errorf("ScheduledDeparture = %v", got)
	}
}

func TestDecodeTripUpdatesEntityTimestampWins(t *testing.T) {
	fm := tripUpdateFeed(1700000040)
	fm.Entity[0].TripUpdate.Timestamp = u64Ptr(1700000010)
	recs, _, err := DecodeTripUpdates(marshalFeed(t, fm))
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].SnapshotTimestamp != 1700000010 {
		t.Errorf("snapshot ts = %d, want entity-level 1700000010", recs[0].SnapshotTimestamp)
	}
}

func TestDecodeVehiclePositions(t *testing.T) {
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: strPtr("2.0"),
			Timestamp:           u64Ptr(1700000040),
		},
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: strPtr("1"),
				Vehicle: &gtfsrtpb.VehiclePosition{
					Trip:      &gtfsrtpb.TripDescriptor{DirectionId: u32Ptr(1)},
					StopId:    strPtr("S1"),
					Timestamp: u64Ptr(1700000030),
				},
			},
			{
				// No stop reference: skipped.
				Id:      strPtr("2"),
				Vehicle: &gtfsrtpb.VehiclePosition{},
			},
			{
				// No own timestamp: header timestamp applies.
				Id: strPtr("3"),
				Vehicle: &gtfsrtpb.VehiclePosition{
					StopId: strPtr("S2"),
				},
			},
		},
	}

	recs, headerTS, err := DecodeVehiclePositions(marshalFeed(t, fm))
	if err != nil {
		t.Fatalf("DecodeVehiclePositions: %v", err)
	}
	if headerTS != 1700000040 {
		t.Errorf("header ts = %d", headerTS)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].StopID != "S1" || recs[0].DirectionID != 1 || recs[0].Timestamp != 1700000030 {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].StopID != "S2" || recs[1].Timestamp != 1700000040 {
		t.Errorf("second record = %+v", recs[1])
	}
}

func TestDecodeMinute(t *testing.T) {
	tu := marshalFeed(t, tripUpdateFeed(1700000040))
	vp := marshalFeed(t, &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: strPtr("2.0"),
			Timestamp:           u64Ptr(1700000055),
		},
	})

	minute, err := DecodeMinute(tu, vp)
	if err != nil {
		t.Fatalf("DecodeMinute: %v", err)
	}
	// The later of the two header timestamps becomes the minute.
	if minute.Timestamp != 1700000055 {
		t.Errorf("minute ts = %d", minute.Timestamp)
	}
	if len(minute.TripUpdates) != 2 || len(minute.VehiclePositions) != 0 {
		t.Errorf("records = %d/%d", len(minute.TripUpdates), len(minute.VehiclePositions))
	}
}

func TestDecodeEmptyAndGarbage(t *testing.T) {
	if recs, ts, err := DecodeTripUpdates(nil); err != nil || recs != nil || ts != 0 {
		t.Errorf("empty input: %v/%d/%v", recs, ts, err)
	}
	if _, _, err := DecodeTripUpdates([]byte("not a protobuf payload")); err == nil {
		t.Error("garbage input decoded without error")
	}
}
