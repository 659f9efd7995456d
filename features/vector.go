package features

import (
	"math"

	"mta/metro-disruptions/state"
)

// Vector is one emitted feature row, keyed by (stop, direction, snapshot
// minute). Absent feature values are NaN. Immutable once emitted.
type Vector struct {
	StopID            string
	DirectionID       int
	RouteID           string
	SnapshotTimestamp int64

	ArrivalDelay        float64
	DepartureDelay      float64
	Headway             float64
	RelHeadway          float64
	DwellDelta          float64
	DelayArrivalGrad    float64
	DelayDepartureGrad  float64
	UpstreamDelayMean2  float64
	DownstreamDelayMax2 float64
	DelayMean5          float64
	DelayStd5           float64
	DelayMean15         float64
	HeadwayP9060        float64
	SinHour             float64
	CosHour             float64
	DayType             int
	NodeDegree          int
	HubFlag             int
	IsTrainPresent      int
	DataFreshSecs       int64
}

// Key returns the station key of the row.
func (v *Vector) Key() state.Key {
	return state.Key{StopID: v.StopID, DirectionID: v.DirectionID}
}

// Columns lists the numeric feature columns in emission order. This is the
// stable persisted schema; downstream writers must honor it.
func Columns() []string {
	return []string{
		"arrival_delay_t",
		"departure_delay_t",
		"headway_t",
		"rel_headway_t",
		"dwell_delta_t",
		"delay_arrival_grad_t",
		"delay_departure_grad_t",
		"upstream_delay_mean_2",
		"downstream_delay_max_2",
		"delay_mean_5",
		"delay_std_5",
		"delay_mean_15",
		"headway_p90_60",
		"sin_hour",
		"cos_hour",
		"day_type",
		"node_degree",
		"hub_flag",
		"is_train_present",
		"data_fresh_secs",
	}
}

// Values returns the numeric features in Columns order, NaNs included.
func (v *Vector) Values() []float64 {
	return []float64{
		v.ArrivalDelay,
		v.DepartureDelay,
		v.Headway,
		v.RelHeadway,
		v.DwellDelta,
		v.DelayArrivalGrad,
		v.DelayDepartureGrad,
		v.UpstreamDelayMean2,
		v.DownstreamDelayMax2,
		v.DelayMean5,
		v.DelayStd5,
		v.DelayMean15,
		v.HeadwayP9060,
		v.SinHour,
		v.CosHour,
		float64(v.DayType),
		float64(v.NodeDegree),
		float64(v.HubFlag),
		float64(v.IsTrainPresent),
		float64(v.DataFreshSecs),
	}
}

// IsZero reports whether every feature is zero once NaNs are filled with
// zero; such rows carry no signal and are skipped by the scorer.
func (v *Vector) IsZero() bool {
	for _, f := range v.Values() {
		if !math.IsNaN(f) && f != 0 {
			return false
		}
	}
	return true
}
