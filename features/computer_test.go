package features

import (
	"math"
	"testing"
	"time"

	"mta/metro-disruptions/gtfsrt"
	"mta/metro-disruptions/state"
	"mta/metro-disruptions/topology"
)

func computerTopology() *topology.Index {
	return topology.New(map[topology.RouteDirection][]string{
		{RouteID: "T1", DirectionID: 0}: {"S1", "S2", "S3", "S4"},
	})
}

func newTestComputer(t *testing.T) *Computer {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return NewComputer(computerTopology(), loc)
}

func joined(stopID string, f *gtfsrt.TripForecastRecord, vehicleTS int64) JoinedRecord {
	return JoinedRecord{
		Key:       state.Key{StopID: stopID, DirectionID: 0},
		RouteID:   "T1",
		TripID:    "trip-1",
		Forecast:  f,
		VehicleTS: vehicleTS,
	}
}

// commitObservation runs one full pass for a single record so the next
// Compute sees it as prior committed state.
func commitObservation(t *testing.T, s *state.Store, c *Computer, rec JoinedRecord, ts int64) Vector {
	t.Helper()
	if err := s.BeginPass(ts); err != nil {
		t.Fatalf("BeginPass(%d): %v", ts, err)
	}
	v, u := c.Compute(s, rec, ts, false)
	if u != nil {
		if err := s.Apply(*u); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}
	s.Commit()
	return v
}

func TestComputeFirstObservation(t *testing.T) {
	c := newTestComputer(t)
	s := state.NewStore()
	ts := int64(1700000040)

	f := forecast("S2", ts+60, ts-10)
	f.ArrivalDelay, f.DepartureDelay = 45, 50
	v := commitObservation(t, s, c, joined("S2", &f, 0), ts)

	if v.ArrivalDelay != 45 || v.DepartureDelay != 50 {
		t.Errorf("delays = %v/%v", v.ArrivalDelay, v.DepartureDelay)
	}
	// No prior arrival, no headway.
	if !math.IsNaN(v.Headway) {
		t.Errorf("Headway = %v, want NaN", v.Headway)
	}
	if v.RelHeadway != 1.0 {
		t.Errorf("RelHeadway = %v, want parity fallback", v.RelHeadway)
	}
	// Gradients start from a zero baseline.
	if v.DelayArrivalGrad != 45 || v.DelayDepartureGrad != 50 {
		t.Errorf("gradients = %v/%v", v.DelayArrivalGrad, v.DelayDepartureGrad)
	}
	// Rolling windows are not full yet.
	if !math.IsNaN(v.DelayMean5) || !math.IsNaN(v.DelayStd5) || !math.IsNaN(v.DelayMean15) {
		t.Errorf("rolling stats = %v/%v/%v, want NaN", v.DelayMean5, v.DelayStd5, v.DelayMean15)
	}
}

func TestComputeHeadwayFromPriorArrival(t *testing.T) {
	c := newTestComputer(t)
	s := state.NewStore()
	ts := int64(1700000040)

	first := forecast("S2", ts+60, ts-10)
	commitObservation(t, s, c, joined("S2", &first, 0), ts)

	// Next train arrives 240s after the previous actual arrival.
	second := forecast("S2", ts+300, ts+50)
	v := commitObservation(t, s, c, joined("S2", &second, 0), ts+60)

	if v.Headway != 240 {
		t.Errorf("Headway = %v, want 240", v.Headway)
	}
	// The rolling percentile reads prior committed state, so the first
	// recorded headway shows up one row later.
	if !math.IsNaN(v.HeadwayP9060) {
		t.Errorf("HeadwayP9060 = %v, want NaN", v.HeadwayP9060)
	}

	third := forecast("S2", ts+540, ts+110)
	v = commitObservation(t, s, c, joined("S2", &third, 0), ts+120)
	if v.HeadwayP9060 != 240 {
		t.Errorf("HeadwayP9060 = %v, want 240", v.HeadwayP9060)
	}
}

func TestComputeHeadwayBoundDiscards(t *testing.T) {
	c := newTestComputer(t)
	s := state.NewStore()
	ts := int64(1700000040)

	first := forecast("S2", ts+60, ts-10)
	commitObservation(t, s, c, joined("S2", &first, 0), ts)

	// Next arrival is more than an hour after the previous one; the
	// difference is discarded, not clamped. A large delay means the
	// scheduled gap was a plausible 200s, so the emitted feature falls
	// back to the schedule.
	far := forecast("S2", ts+60+3700, ts+3600)
	far.ArrivalDelay = 3500
	v := commitObservation(t, s, c, joined("S2", &far, 0), ts+3660)

	st := s.Lookup(state.Key{StopID: "S2", DirectionID: 0})
	if st.Headway60.Len() != 0 {
		t.Errorf("discarded headway entered the window: len=%d", st.Headway60.Len())
	}
	if !math.IsNaN(st.LastHeadway) {
		t.Errorf("discarded headway mutated LastHeadway: %v", st.LastHeadway)
	}
	if v.Headway != 200 {
		t.Errorf("emitted Headway = %v, want scheduled fallback 200", v.Headway)
	}
}

func TestComputeGradients(t *testing.T) {
	c := newTestComputer(t)
	s := state.NewStore()
	ts := int64(1700000040)

	first := forecast("S2", ts+60, ts-10)
	first.ArrivalDelay, first.DepartureDelay = 30, 35
	commitObservation(t, s, c, joined("S2", &first, 0), ts)

	second := forecast("S2", ts+300, ts+50)
	second.ArrivalDelay, second.DepartureDelay = 80, 90
	v := commitObservation(t, s, c, joined("S2", &second, 0), ts+60)

	if v.DelayArrivalGrad != 50 {
		t.Errorf("DelayArrivalGrad = %v, want 50", v.DelayArrivalGrad)
	}
	if v.DelayDepartureGrad != 55 {
		t.Errorf("DelayDepartureGrad = %v, want 55", v.DelayDepartureGrad)
	}
}

func TestComputeNeighborDelays(t *testing.T) {
	c := newTestComputer(t)
	s := state.NewStore()
	ts := int64(1700000040)

	// Commit delays at the stops around S3 in one pass.
	if err := s.BeginPass(ts); err != nil {
		t.Fatal(err)
	}
	for stop, delay := range map[string]float64{"S1": 10, "S2": 20, "S4": 70} {
		f := forecast(stop, ts+60, ts-10)
		f.ArrivalDelay = delay
		_, u := c.Compute(s, joined(stop, &f, 0), ts, false)
		if err := s.Apply(*u); err != nil {
			t.Fatal(err)
		}
	}
	s.Commit()

	f := forecast("S3", ts+120, ts+40)
	if err := s.BeginPass(ts + 60); err != nil {
		t.Fatal(err)
	}
	v, _ := c.Compute(s, joined("S3", &f, 0), ts+60, false)
	s.Abort()

	// Upstream of S3 on T1: S1 and S2, mean of 10 and 20.
	if v.UpstreamDelayMean2 != 15 {
		t.Errorf("UpstreamDelayMean2 = %v, want 15", v.UpstreamDelayMean2)
	}
	// Downstream: S4 only.
	if v.DownstreamDelayMax2 != 70 {
		t.Errorf("DownstreamDelayMax2 = %v, want 70", v.DownstreamDelayMax2)
	}
}

func TestComputePresence(t *testing.T) {
	c := newTestComputer(t)
	ts := int64(1700000040)

	tests := []struct {
		name        string
		vehicleTS   int64
		priorVTS    int64
		wantPresent int
		wantFresh   int64
	}{
		{"fresh position", ts - 20, 0, 1, 20},
		{"no position ever", 0, 0, 0, MaxDataFreshSecs},
		{"stale prior position", 0, ts - 3600, 0, 3600},
		// A day-old observation caps freshness and cannot mean present.
		{"ancient prior position", 0, ts - 90000, 0, MaxDataFreshSecs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := state.NewStore()
			if tt.priorVTS > 0 {
				if err := s.BeginPass(ts - 60); err != nil {
					t.Fatal(err)
				}
				if err := s.Apply(state.Update{
					Key:           state.Key{StopID: "S2", DirectionID: 0},
					ActualArrival: math.NaN(), ActualDepart: math.NaN(),
					SchedArrival: math.NaN(), Headway: math.NaN(),
					VehicleTS: tt.priorVTS,
				}); err != nil {
					t.Fatal(err)
				}
				s.Commit()
			}

			if err := s.BeginPass(ts); err != nil {
				t.Fatal(err)
			}
			defer s.Abort()
			v, _ := c.Compute(s, joined("S2", nil, tt.vehicleTS), ts, false)
			if v.IsTrainPresent != tt.wantPresent || v.DataFreshSecs != tt.wantFresh {
				t.Errorf("presence = %d/%d, want %d/%d",
					v.IsTrainPresent, v.DataFreshSecs, tt.wantPresent, tt.wantFresh)
			}
		})
	}
}

func TestComputeAbsentMarker(t *testing.T) {
	c := newTestComputer(t)
	s := state.NewStore()
	ts := int64(1700000040)

	if err := s.BeginPass(ts); err != nil {
		t.Fatal(err)
	}
	defer s.Abort()
	v, u := c.Compute(s, joined("S2", nil, 0), ts, false)

	if u != nil {
		t.Error("absent marker produced a state update")
	}
	for _, val := range []float64{
		v.ArrivalDelay, v.Headway, v.RelHeadway, v.DwellDelta,
		v.DelayArrivalGrad, v.DelayMean5, v.HeadwayP9060,
	} {
		if !math.IsNaN(val) {
			t.Errorf("absent marker carries a value: %v", v)
			break
		}
	}
	// Timing metadata is still populated.
	if v.SinHour == 0 && v.CosHour == 0 {
		t.Error("clock features missing on absent marker")
	}
	if v.NodeDegree != c.topo.NodeDegree("S2") {
		t.Errorf("NodeDegree = %d", v.NodeDegree)
	}
}

func TestComputeServiceDayReset(t *testing.T) {
	c := newTestComputer(t)
	s := state.NewStore()
	loc := c.loc

	evening, err := time.ParseInLocation("2006-01-02 15:04:05", "2024-05-20 23:50:00", loc)
	if err != nil {
		t.Fatal(err)
	}
	morning, err := time.ParseInLocation("2006-01-02 15:04:05", "2024-05-21 05:10:00", loc)
	if err != nil {
		t.Fatal(err)
	}

	f1 := forecast("S2", evening.Unix()+60, evening.Unix()-10)
	commitObservation(t, s, c, joined("S2", &f1, 0), evening.Unix())

	// First arrival after the 03:00 boundary clears the rolling windows;
	// the scalar continuity (gradients) still spans the boundary.
	f2 := forecast("S2", morning.Unix()+60, morning.Unix()-10)
	f2.ArrivalDelay = 25
	v := commitObservation(t, s, c, joined("S2", &f2, 0), morning.Unix())

	if !math.IsNaN(v.HeadwayP9060) {
		t.Errorf("HeadwayP9060 across reset = %v, want NaN", v.HeadwayP9060)
	}
	if v.DelayArrivalGrad != 25 {
		t.Errorf("DelayArrivalGrad across reset = %v, want 25", v.DelayArrivalGrad)
	}

	st := s.Lookup(state.Key{StopID: "S2", DirectionID: 0})
	if st.Delay5.Len() != 1 {
		t.Errorf("Delay5 after reset = %d entries, want 1", st.Delay5.Len())
	}
}
