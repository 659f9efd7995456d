package features

import (
	"math"
	"time"

	"mta/metro-disruptions/state"
	"mta/metro-disruptions/topology"
	"mta/metro-disruptions/utils"
)

// MaxDataFreshSecs caps the vehicle-freshness feature at 24 hours; older
// positions are absent, not stale-but-present.
const MaxDataFreshSecs = 24 * 3600

// ResetAtHour is the local hour at which a new service day begins.
const ResetAtHour = 3

const neighborSpan = 2

// Computer derives feature rows from joined records and prior committed
// station state. It never mutates the store itself; it stages an Update
// for the pass commit.
type Computer struct {
	topo *topology.Index
	loc  *time.Location
}

// NewComputer creates a feature computer for the given topology and local
// timezone.
func NewComputer(topo *topology.Index, loc *time.Location) *Computer {
	return &Computer{topo: topo, loc: loc}
}

// Compute derives the feature row for one joined record at snapshot minute
// ts, reading prior committed state from store. The returned Update is nil
// for absent markers, which leave state untouched.
//
// All state reads here see the previous minute's values; headway and
// gradient features therefore reflect the prior observation, never the one
// being committed.
func (c *Computer) Compute(store *state.Store, rec JoinedRecord, ts int64, multiRoute bool) (Vector, *state.Update) {
	sinHour, cosHour, dayType := c.timeFeatures(ts)

	v := Vector{
		StopID:            rec.Key.StopID,
		DirectionID:       rec.Key.DirectionID,
		SnapshotTimestamp: ts,
		SinHour:           sinHour,
		CosHour:           cosHour,
		DayType:           dayType,
		NodeDegree:        c.topo.NodeDegree(rec.Key.StopID),
		HubFlag:           c.topo.HubFlag(rec.Key.StopID),
	}
	if multiRoute {
		v.RouteID = rec.RouteID
	}

	st := store.Lookup(rec.Key)
	v.IsTrainPresent, v.DataFreshSecs = presence(st, rec.VehicleTS, ts)

	if rec.Forecast == nil {
		// Absent marker: timing metadata only, no state mutation.
		nan := math.NaN()
		v.ArrivalDelay, v.DepartureDelay = nan, nan
		v.Headway, v.RelHeadway = nan, nan
		v.DwellDelta = nan
		v.DelayArrivalGrad, v.DelayDepartureGrad = nan, nan
		v.UpstreamDelayMean2, v.DownstreamDelayMax2 = nan, nan
		v.DelayMean5, v.DelayStd5, v.DelayMean15, v.HeadwayP9060 = nan, nan, nan, nan
		return v, nil
	}

	f := rec.Forecast
	arrival := float64(f.ArrivalTime)
	depart := float64(f.DepartureTime)
	schedArr := f.ScheduledArrival()
	schedDep := f.ScheduledDeparture()

	reset := false
	if st != nil && !math.IsNaN(st.LastActualArrival) {
		reset = utils.IsNewServiceDay(int64(st.LastActualArrival), f.ArrivalTime, ResetAtHour, c.loc)
	}

	v.ArrivalDelay = f.ArrivalDelay
	v.DepartureDelay = f.DepartureDelay

	// Headway against the previous actual arrival; implausible differences
	// are discarded, leaving state untouched.
	headway := math.NaN()
	schedHW := math.NaN()
	if st != nil && !math.IsNaN(st.LastActualArrival) {
		if h := arrival - st.LastActualArrival; h > 0 && h <= state.MaxHeadwaySecs {
			headway = h
		}
		if !math.IsNaN(st.LastSchedArrival) {
			if h := schedArr - st.LastSchedArrival; h > 0 && h <= state.MaxHeadwaySecs {
				schedHW = h
			}
		}
	}
	v.Headway = headway
	if math.IsNaN(headway) && !math.IsNaN(schedHW) {
		v.Headway = schedHW
	}
	v.RelHeadway = relHeadway(headway, schedHW, st, reset)

	// Dwell delta; negative dwell is implausible and rejected.
	dwell := depart - arrival
	schedDwell := schedDep - schedArr
	if dwell >= 0 && schedDwell >= 0 {
		v.DwellDelta = dwell - schedDwell
	} else {
		v.DwellDelta = math.NaN()
	}

	// First differences of the delay series; last delays default to zero
	// at stream start, so the gradients start from a zero baseline.
	lastArrDelay, lastDepDelay := 0.0, 0.0
	if st != nil {
		lastArrDelay = st.LastArrDelay
		lastDepDelay = st.LastDepDelay
	}
	v.DelayArrivalGrad = f.ArrivalDelay - lastArrDelay
	v.DelayDepartureGrad = f.DepartureDelay - lastDepDelay

	v.UpstreamDelayMean2, v.DownstreamDelayMax2 = c.neighborDelays(store, rec)

	v.DelayMean5, v.DelayStd5, v.DelayMean15, v.HeadwayP9060 = rollingStats(st, reset)

	u := &state.Update{
		Key:            rec.Key,
		ResetBuffers:   reset,
		ActualArrival:  arrival,
		ActualDepart:   depart,
		SchedArrival:   schedArr,
		ArrDelay:       f.ArrivalDelay,
		DepDelay:       f.DepartureDelay,
		Headway:        headway,
		VehicleTS:      rec.VehicleTS,
		HasObservation: true,
	}
	return v, u
}

// timeFeatures returns the cyclic clock encoding and weekend flag for the
// local time of ts.
func (c *Computer) timeFeatures(ts int64) (sinHour, cosHour float64, dayType int) {
	t := utils.LocalTime(ts, c.loc)
	angle := 2 * math.Pi * float64(t.Hour()) / 24
	sinHour = math.Sin(angle)
	cosHour = math.Cos(angle)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		dayType = 1
	}
	return sinHour, cosHour, dayType
}

// presence derives the train-present flag and capped data freshness from
// the fresh vehicle timestamp of the minute, falling back to the last
// committed vehicle observation.
func presence(st *state.StationState, vehicleTS, ts int64) (int, int64) {
	if vehicleTS > 0 {
		fresh := ts - vehicleTS
		if fresh > MaxDataFreshSecs {
			return 0, MaxDataFreshSecs
		}
		return 1, fresh
	}
	if st != nil && st.LastVehicleTS > 0 {
		fresh := ts - st.LastVehicleTS
		if fresh > MaxDataFreshSecs {
			fresh = MaxDataFreshSecs
		}
		return 0, fresh
	}
	return 0, MaxDataFreshSecs
}

// relHeadway normalizes headway by the scheduled headway when known, else
// by the rolling window mean, else reports parity.
func relHeadway(headway, schedHW float64, st *state.StationState, reset bool) float64 {
	if math.IsNaN(headway) {
		return 1.0
	}
	if !math.IsNaN(schedHW) && schedHW != 0 {
		return headway / schedHW
	}
	if st != nil && !reset && st.Headway60.Len() > 0 {
		if mean := utils.Mean(st.Headway60.Values()); mean > 0 {
			return headway / mean
		}
	}
	return 1.0
}

// rollingStats reads the bounded windows; short/long delay stats require a
// full window, the headway percentile only a non-empty one. A pending
// service-day reset makes all windows read as empty.
func rollingStats(st *state.StationState, reset bool) (mean5, std5, mean15, hwP90 float64) {
	nan := math.NaN()
	mean5, std5, mean15, hwP90 = nan, nan, nan, nan
	if st == nil || reset {
		return
	}
	if st.Delay5.Full() {
		vals := st.Delay5.Values()
		mean5 = utils.Mean(vals)
		std5 = utils.SampleStd(vals)
	}
	if st.Delay15.Full() {
		mean15 = utils.Mean(st.Delay15.Values())
	}
	if st.Headway60.Len() > 0 {
		hwP90 = utils.Percentile(st.Headway60.Values(), 90)
	}
	return
}

// neighborDelays aggregates the prior committed delays of the two stops
// before (mean) and after (max) the record's stop on its route direction.
// Reads other keys' last-known state only; never writes, never re-derives
// from raw records.
func (c *Computer) neighborDelays(store *state.Store, rec JoinedRecord) (upMean, downMax float64) {
	upMean, downMax = math.NaN(), math.NaN()

	var up []float64
	for _, stopID := range c.topo.Upstream(rec.RouteID, rec.Key.DirectionID, rec.Key.StopID, neighborSpan) {
		if st := store.Lookup(state.Key{StopID: stopID, DirectionID: rec.Key.DirectionID}); st != nil {
			up = append(up, st.LastArrDelay)
		}
	}
	if len(up) > 0 {
		upMean = utils.Mean(up)
	}

	for _, stopID := range c.topo.Downstream(rec.RouteID, rec.Key.DirectionID, rec.Key.StopID, neighborSpan) {
		if st := store.Lookup(state.Key{StopID: stopID, DirectionID: rec.Key.DirectionID}); st != nil {
			if math.IsNaN(downMax) || st.LastArrDelay > downMax {
				downMax = st.LastArrDelay
			}
		}
	}
	return upMean, downMax
}
