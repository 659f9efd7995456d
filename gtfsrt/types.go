package gtfsrt

// TripForecastRecord is one predicted stop call taken from a TripUpdate
// entity. Times are epoch seconds; delays are seconds (negative = early).
type TripForecastRecord struct {
	TripID         string
	RouteID        string
	StopID         string
	DirectionID    int
	StopSequence   int
	ArrivalTime    int64
	DepartureTime  int64
	ArrivalDelay   float64
	DepartureDelay float64
	// SnapshotTimestamp is the feed header timestamp under which the
	// record was observed, i.e. when the forecast was current.
	SnapshotTimestamp int64
}

// ScheduledArrival returns the scheduled arrival implied by the predicted
// arrival and its delay.
func (r *TripForecastRecord) ScheduledArrival() float64 {
	return float64(r.ArrivalTime) - r.ArrivalDelay
}

// ScheduledDeparture returns the scheduled departure implied by the
// predicted departure and its delay.
func (r *TripForecastRecord) ScheduledDeparture() float64 {
	return float64(r.DepartureTime) - r.DepartureDelay
}

// VehiclePositionRecord is one vehicle observation mapped to its stop.
type VehiclePositionRecord struct {
	StopID      string
	DirectionID int
	// Timestamp is the feed header timestamp under which the position was
	// observed.
	Timestamp int64
}

// Minute is one snapshot minute of parsed realtime records, the unit of
// processing for the whole pipeline.
type Minute struct {
	// Timestamp is the snapshot minute epoch, second-aligned.
	Timestamp        int64
	TripUpdates      []TripForecastRecord
	VehiclePositions []VehiclePositionRecord
}
