package features

import (
	"sort"

	"mta/metro-disruptions/gtfsrt"
	"mta/metro-disruptions/state"
	"mta/metro-disruptions/topology"
)

// MaxFutureSecs rejects forecasts more than two hours out regardless of
// staleness.
const MaxFutureSecs = 2 * 60 * 60

// JoinedRecord pairs the selected forecast and freshest vehicle
// observation for one station key in one snapshot minute. Forecast is nil
// for an absent marker, which carries only timing metadata.
type JoinedRecord struct {
	Key      state.Key
	RouteID  string
	TripID   string
	Forecast *gtfsrt.TripForecastRecord
	// VehicleTS is the freshest qualifying position timestamp, 0 when no
	// position was fresh this minute.
	VehicleTS int64
}

// Joiner matches forecast and position records to station keys under the
// configured tolerances.
type Joiner struct {
	topo        *topology.Index
	forecastTol int64
	vehicleTol  int64
	latency     *LatencyWindow
}

// NewJoiner creates a joiner. forecastStaleness and vehicleStaleness are
// the base bounds in seconds; the forecast bound adapts upward with
// observed latency via the LatencyWindow.
func NewJoiner(topo *topology.Index, forecastStaleness, vehicleStaleness int64, latency *LatencyWindow) *Joiner {
	if latency == nil {
		latency = NewLatencyWindow(0, 0)
	}
	return &Joiner{
		topo:        topo,
		forecastTol: forecastStaleness,
		vehicleTol:  vehicleStaleness,
		latency:     latency,
	}
}

// Join selects at most one forecast and one position per key for the
// snapshot minute ts. When no forecast at all qualifies, it emits absent
// markers for every station key in the topology so downstream still sees
// the gap. Output order is deterministic (sorted by key).
func (j *Joiner) Join(minute gtfsrt.Minute) []JoinedRecord {
	ts := minute.Timestamp
	tolerance := j.latency.Tolerance(j.forecastTol)

	type candidate struct {
		rec   gtfsrt.TripForecastRecord
		order int
	}
	best := map[state.Key]candidate{}
	for i, rec := range minute.TripUpdates {
		staleness := ts - rec.SnapshotTimestamp
		j.latency.Observe(staleness)
		if staleness < 0 || staleness > tolerance {
			continue
		}
		ahead := rec.ArrivalTime - ts
		if ahead < 0 || ahead > MaxFutureSecs {
			continue
		}
		key := state.Key{StopID: rec.StopID, DirectionID: rec.DirectionID}
		cur, ok := best[key]
		if !ok || closerForecast(rec, i, cur.rec, cur.order, ts) {
			best[key] = candidate{rec: rec, order: i}
		}
	}

	// Freshest qualifying position per key.
	freshVP := map[state.Key]int64{}
	for _, vp := range minute.VehiclePositions {
		age := ts - vp.Timestamp
		if age < 0 || age > j.vehicleTol {
			continue
		}
		key := state.Key{StopID: vp.StopID, DirectionID: vp.DirectionID}
		if vp.Timestamp > freshVP[key] {
			freshVP[key] = vp.Timestamp
		}
	}

	if len(best) == 0 {
		return j.gapRecords(freshVP)
	}

	out := make([]JoinedRecord, 0, len(best))
	for key, c := range best {
		rec := c.rec
		out = append(out, JoinedRecord{
			Key:       key,
			RouteID:   rec.RouteID,
			TripID:    rec.TripID,
			Forecast:  &rec,
			VehicleTS: freshVP[key],
		})
	}
	sortJoined(out)
	return out
}

// closerForecast reports whether a beats b for the same key: smaller
// |arrival − ts| wins; exact ties break by later-received record, then by
// later input position.
func closerForecast(a gtfsrt.TripForecastRecord, aOrder int, b gtfsrt.TripForecastRecord, bOrder int, ts int64) bool {
	da := absInt64(a.ArrivalTime - ts)
	db := absInt64(b.ArrivalTime - ts)
	if da != db {
		return da < db
	}
	if a.SnapshotTimestamp != b.SnapshotTimestamp {
		return a.SnapshotTimestamp > b.SnapshotTimestamp
	}
	return aOrder > bOrder
}

// gapRecords emits an absent marker for every station key known to the
// topology, so an empty minute still produces timing-only rows.
func (j *Joiner) gapRecords(freshVP map[state.Key]int64) []JoinedRecord {
	seen := map[state.Key]struct{}{}
	var out []JoinedRecord
	for _, rd := range j.topo.RouteDirections() {
		for _, stopID := range j.topo.StopsFor(rd.RouteID, rd.DirectionID) {
			key := state.Key{StopID: stopID, DirectionID: rd.DirectionID}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, JoinedRecord{
				Key:       key,
				RouteID:   rd.RouteID,
				VehicleTS: freshVP[key],
			})
		}
	}
	sortJoined(out)
	return out
}

func sortJoined(recs []JoinedRecord) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].Key, recs[j].Key
		if a.StopID != b.StopID {
			return a.StopID < b.StopID
		}
		return a.DirectionID < b.DirectionID
	})
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
