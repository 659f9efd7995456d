package topology

import (
	"sort"

	"mta/metro-disruptions/gtfsrt"
	"mta/metro-disruptions/utils"
)

// RouteDirection keys one directed service pattern.
type RouteDirection struct {
	RouteID     string
	DirectionID int
}

// Index stores the stop topology in memory for fast lookups.
type Index struct {
	routeDirStops map[RouteDirection][]string
	stopIdx       map[RouteDirection]map[string]int
	nodeDegree    map[string]int
	hubFlag       map[string]int
	routeDirs     []RouteDirection // sorted for deterministic iteration
}

// New builds an index from a precomputed route map. The stop slices are
// copied; callers may reuse their input.
func New(routeDirToStops map[RouteDirection][]string) *Index {
	idx := &Index{
		routeDirStops: map[RouteDirection][]string{},
		stopIdx:       map[RouteDirection]map[string]int{},
		nodeDegree:    map[string]int{},
		hubFlag:       map[string]int{},
	}
	for rd, stops := range routeDirToStops {
		seq := make([]string, len(stops))
		copy(seq, stops)
		idx.routeDirStops[rd] = seq
		pos := make(map[string]int, len(seq))
		for i, s := range seq {
			pos[s] = i
		}
		idx.stopIdx[rd] = pos
		idx.routeDirs = append(idx.routeDirs, rd)
	}
	sort.Slice(idx.routeDirs, func(i, j int) bool {
		a, b := idx.routeDirs[i], idx.routeDirs[j]
		if a.RouteID != b.RouteID {
			return a.RouteID < b.RouteID
		}
		return a.DirectionID < b.DirectionID
	})
	idx.buildGraph()
	return idx
}

// FromForecasts bootstraps the index from trip forecasts observed during a
// startup window: stops are ordered by stop_sequence within each
// (route, direction). Deterministic given the same input set.
func FromForecasts(recs []gtfsrt.TripForecastRecord) *Index {
	type stopSeq struct {
		stopID string
		seq    int
	}
	byRouteDir := map[RouteDirection]map[string]int{}
	for _, r := range recs {
		rd := RouteDirection{RouteID: r.RouteID, DirectionID: r.DirectionID}
		m := byRouteDir[rd]
		if m == nil {
			m = map[string]int{}
			byRouteDir[rd] = m
		}
		if prev, ok := m[r.StopID]; !ok || r.StopSequence < prev {
			m[r.StopID] = r.StopSequence
		}
	}
	routeMap := map[RouteDirection][]string{}
	for rd, m := range byRouteDir {
		seqs := make([]stopSeq, 0, len(m))
		for stopID, seq := range m {
			seqs = append(seqs, stopSeq{stopID: stopID, seq: seq})
		}
		sort.Slice(seqs, func(i, j int) bool {
			if seqs[i].seq != seqs[j].seq {
				return seqs[i].seq < seqs[j].seq
			}
			return seqs[i].stopID < seqs[j].stopID
		})
		stops := make([]string, len(seqs))
		for i, s := range seqs {
			stops[i] = s.stopID
		}
		routeMap[rd] = stops
	}
	return New(routeMap)
}

// buildGraph derives node degree (distinct neighbor stops across all stop
// sequences) and flags hubs at or above the 90th percentile of degrees.
func (idx *Index) buildGraph() {
	adj := map[string]map[string]struct{}{}
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = map[string]struct{}{}
		}
		adj[a][b] = struct{}{}
	}
	for _, stops := range idx.routeDirStops {
		for i, stop := range stops {
			if adj[stop] == nil {
				adj[stop] = map[string]struct{}{}
			}
			if i > 0 {
				link(stop, stops[i-1])
			}
			if i < len(stops)-1 {
				link(stop, stops[i+1])
			}
		}
	}
	degrees := make([]float64, 0, len(adj))
	for stop, neighbors := range adj {
		idx.nodeDegree[stop] = len(neighbors)
		degrees = append(degrees, float64(len(neighbors)))
	}
	p90 := 0.0
	if len(degrees) > 0 {
		p90 = utils.Percentile(degrees, 90)
	}
	for stop, deg := range idx.nodeDegree {
		if float64(deg) >= p90 {
			idx.hubFlag[stop] = 1
		} else {
			idx.hubFlag[stop] = 0
		}
	}
}

// StopsFor returns the ordered stop sequence for a route direction, or nil.
func (idx *Index) StopsFor(routeID string, directionID int) []string {
	return idx.routeDirStops[RouteDirection{RouteID: routeID, DirectionID: directionID}]
}

// StopIndex returns the position of stopID on the route direction, or -1.
func (idx *Index) StopIndex(routeID string, directionID int, stopID string) int {
	if pos, ok := idx.stopIdx[RouteDirection{RouteID: routeID, DirectionID: directionID}]; ok {
		if i, ok2 := pos[stopID]; ok2 {
			return i
		}
	}
	return -1
}

// Upstream returns up to n stops immediately preceding stopID on the route
// direction, nearest last.
func (idx *Index) Upstream(routeID string, directionID int, stopID string, n int) []string {
	stops := idx.StopsFor(routeID, directionID)
	i := idx.StopIndex(routeID, directionID, stopID)
	if i < 0 {
		return nil
	}
	lo := i - n
	if lo < 0 {
		lo = 0
	}
	return stops[lo:i]
}

// Downstream returns up to n stops immediately following stopID on the
// route direction, nearest first.
func (idx *Index) Downstream(routeID string, directionID int, stopID string, n int) []string {
	stops := idx.StopsFor(routeID, directionID)
	i := idx.StopIndex(routeID, directionID, stopID)
	if i < 0 {
		return nil
	}
	hi := i + 1 + n
	if hi > len(stops) {
		hi = len(stops)
	}
	return stops[i+1 : hi]
}

// NodeDegree returns the connectivity degree of a stop (0 when unknown).
func (idx *Index) NodeDegree(stopID string) int { return idx.nodeDegree[stopID] }

// HubFlag returns 1 when the stop's degree is in the top decile.
func (idx *Index) HubFlag(stopID string) int { return idx.hubFlag[stopID] }

// RouteDirections returns all known route directions in deterministic order.
func (idx *Index) RouteDirections() []RouteDirection { return idx.routeDirs }

// NumStops returns the number of distinct stops in the graph.
func (idx *Index) NumStops() int { return len(idx.nodeDegree) }
