package state

import (
	"errors"
	"fmt"
	"math"
)

// Rolling buffer capacities: 5- and 15-slot delay windows, 60-slot headway
// window (one slot per observed minute).
const (
	DelayWindowShort = 5
	DelayWindowLong  = 15
	HeadwayWindow    = 60
)

// MaxHeadwaySecs caps plausible headways; differences outside (0, MaxHeadwaySecs]
// are discarded, never clamped into state.
const MaxHeadwaySecs = 3600

var (
	// ErrOutOfOrder is returned when a pass is opened for a snapshot minute
	// at or before the last committed one.
	ErrOutOfOrder = errors.New("state: snapshot minute out of order")
	// ErrPassInFlight is returned when a pass is opened while another is
	// still uncommitted.
	ErrPassInFlight = errors.New("state: pass already in flight")
	// ErrNoPass is returned when updates are staged outside an open pass.
	ErrNoPass = errors.New("state: no pass in flight")
	// ErrDoubleUpdate is returned when one key is updated twice in a pass.
	ErrDoubleUpdate = errors.New("state: key already updated in this pass")
)

// Key identifies one monitored station direction.
type Key struct {
	StopID      string
	DirectionID int
}

// StationState is the per-key rolling state. Unknown time scalars are NaN;
// delay scalars start at zero so gradient features are zero-filled at
// stream start.
type StationState struct {
	LastActualArrival float64
	LastSchedArrival  float64
	LastActualDepart  float64
	LastArrDelay      float64
	LastDepDelay      float64
	LastHeadway       float64
	LastVehicleTS     int64
	Delay5            *Ring
	Delay15           *Ring
	Headway60         *Ring
	LastSnapshotTS    int64
}

func newStationState() *StationState {
	return &StationState{
		LastActualArrival: math.NaN(),
		LastSchedArrival:  math.NaN(),
		LastActualDepart:  math.NaN(),
		LastHeadway:       math.NaN(),
		Delay5:            NewRing(DelayWindowShort),
		Delay15:           NewRing(DelayWindowLong),
		Headway60:         NewRing(HeadwayWindow),
	}
}

// ResetBuffers clears the rolling windows at a service-day boundary. The
// scalar continuity fields stay so the next row still gets headway and
// gradient features across the boundary.
func (st *StationState) ResetBuffers() {
	st.Delay5.Clear()
	st.Delay15.Clear()
	st.Headway60.Clear()
}

// Update stages one observation for a key within a pass.
type Update struct {
	Key          Key
	ResetBuffers bool
	// Observation scalars; NaN fields leave the current value untouched.
	ActualArrival float64
	ActualDepart  float64
	SchedArrival  float64
	ArrDelay      float64
	DepDelay      float64
	// Headway is appended to the rolling window and becomes LastHeadway
	// only when it passed the (0, MaxHeadwaySecs] sanity bound; NaN means
	// the difference was discarded.
	Headway float64
	// VehicleTS is the latest fresh vehicle observation, 0 when none.
	VehicleTS int64
	// HasObservation marks a real forecast-backed row; absent rows carry
	// no observation and must not touch the delay windows.
	HasObservation bool
}

// Store is the key-partitioned rolling state store. It is the sole mutable
// shared resource of the pipeline; partition by key for concurrent access.
type Store struct {
	entries map[Key]*StationState

	lastPassTS int64
	passTS     int64
	updated    map[Key]struct{}
	staged     []Update
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: map[Key]*StationState{}}
}

// Lookup returns the committed state for a key, or nil when the key has
// never been observed. Callers must treat the result as read-only; all
// mutation goes through Apply/Commit.
func (s *Store) Lookup(key Key) *StationState {
	return s.entries[key]
}

// Len returns the number of live entries (one per observed key).
func (s *Store) Len() int { return len(s.entries) }

// LastPassTimestamp returns the snapshot minute of the last committed pass.
func (s *Store) LastPassTimestamp() int64 { return s.lastPassTS }

// BeginPass opens a pass for a snapshot minute. Minutes must strictly
// increase and passes must not overlap; both violations fail loudly.
func (s *Store) BeginPass(ts int64) error {
	if s.passTS != 0 {
		return fmt.Errorf("%w: minute %d while %d is open", ErrPassInFlight, ts, s.passTS)
	}
	if ts <= s.lastPassTS {
		return fmt.Errorf("%w: got %d after %d", ErrOutOfOrder, ts, s.lastPassTS)
	}
	s.passTS = ts
	s.updated = map[Key]struct{}{}
	s.staged = s.staged[:0]
	return nil
}

// Apply stages an update inside the open pass. Each key may be updated at
// most once per pass; a second update is a contract violation.
// Nothing becomes visible until Commit.
func (s *Store) Apply(u Update) error {
	if s.passTS == 0 {
		return ErrNoPass
	}
	if _, dup := s.updated[u.Key]; dup {
		return fmt.Errorf("%w: %s/%d", ErrDoubleUpdate, u.Key.StopID, u.Key.DirectionID)
	}
	s.updated[u.Key] = struct{}{}
	s.staged = append(s.staged, u)
	return nil
}

// Commit applies every staged update and closes the pass. All-or-none per
// pass: until Commit runs, Lookup still serves the prior minute's state.
func (s *Store) Commit() {
	for _, u := range s.staged {
		st := s.entries[u.Key]
		if st == nil {
			st = newStationState()
			s.entries[u.Key] = st
		}
		if u.ResetBuffers {
			st.ResetBuffers()
		}
		if !math.IsNaN(u.ActualArrival) {
			st.LastActualArrival = u.ActualArrival
		}
		if !math.IsNaN(u.ActualDepart) {
			st.LastActualDepart = u.ActualDepart
		}
		if !math.IsNaN(u.SchedArrival) {
			st.LastSchedArrival = u.SchedArrival
		}
		if u.HasObservation {
			st.LastArrDelay = u.ArrDelay
			st.LastDepDelay = u.DepDelay
			st.Delay5.Push(u.ArrDelay)
			st.Delay15.Push(u.ArrDelay)
		}
		if !math.IsNaN(u.Headway) && u.Headway > 0 && u.Headway <= MaxHeadwaySecs {
			st.LastHeadway = u.Headway
			st.Headway60.Push(u.Headway)
		}
		if u.VehicleTS > 0 {
			st.LastVehicleTS = u.VehicleTS
		}
		st.LastSnapshotTS = s.passTS
	}
	s.lastPassTS = s.passTS
	s.passTS = 0
	s.updated = nil
	s.staged = s.staged[:0]
}

// Abort discards the staged updates and closes the pass without advancing
// the minute clock; the same minute may then be retried.
func (s *Store) Abort() {
	s.passTS = 0
	s.updated = nil
	s.staged = s.staged[:0]
}
