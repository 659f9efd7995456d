package detect

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"mta/metro-disruptions/config"
)

// scorerSnapshot is the serialized form of a Scorer for restart
// continuity. Tree structure is not serialized; it is rebuilt from the
// seed and only the node masses are restored.
type scorerSnapshot struct {
	Config  config.DetectConfig `json:"config"`
	FirstTS int64               `json:"first_ts"`
	Scored  int                 `json:"scored"`
	Window  []float64           `json:"window"`
	Model   *hstSnapshot        `json:"model,omitempty"`
}

type hstSnapshot struct {
	// Mins/Maxs are the running normalization bounds; nil marks a
	// dimension that has seen no data yet (infinite bound, which JSON
	// cannot carry).
	Mins    []*float64 `json:"mins"`
	Maxs    []*float64 `json:"maxs"`
	Seen    int        `json:"seen"`
	Total   int        `json:"total"`
	Swapped bool       `json:"swapped"`
	// MassRef/MassCur hold the node masses of every tree concatenated in
	// pre-order.
	MassRef []float64 `json:"mass_ref"`
	MassCur []float64 `json:"mass_cur"`
}

// Save persists the scorer state to path as JSON.
func (s *Scorer) Save(path string) error {
	snap := scorerSnapshot{
		Config:  s.cfg,
		FirstTS: s.firstTS,
		Scored:  s.scored,
		Window:  s.window.Values(),
	}
	if hst, ok := s.model.(*HalfSpaceTrees); ok {
		snap.Model = hst.snapshot()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal scorer snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadScorer restores a scorer persisted with Save. The model structure
// is rebuilt deterministically from the persisted seed.
func LoadScorer(path string) (*Scorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap scorerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal scorer snapshot: %w", err)
	}
	s := NewScorer(snap.Config)
	s.firstTS = snap.FirstTS
	s.scored = snap.Scored
	for _, score := range snap.Window {
		s.window.Push(score)
	}
	if snap.Model != nil {
		if hst, ok := s.model.(*HalfSpaceTrees); ok {
			if err := hst.restore(snap.Model); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (h *HalfSpaceTrees) snapshot() *hstSnapshot {
	snap := &hstSnapshot{
		Mins:    finiteOrNil(h.mins),
		Maxs:    finiteOrNil(h.maxs),
		Seen:    h.seen,
		Total:   h.total,
		Swapped: h.swapped,
	}
	for _, root := range h.trees {
		walkNodes(root, func(n *hsNode) {
			snap.MassRef = append(snap.MassRef, n.massRef)
			snap.MassCur = append(snap.MassCur, n.massCur)
		})
	}
	return snap
}

func (h *HalfSpaceTrees) restore(snap *hstSnapshot) error {
	if len(snap.Mins) != h.dims || len(snap.Maxs) != h.dims {
		return fmt.Errorf("snapshot dims %d do not match model dims %d", len(snap.Mins), h.dims)
	}
	for d := 0; d < h.dims; d++ {
		if snap.Mins[d] != nil {
			h.mins[d] = *snap.Mins[d]
		}
		if snap.Maxs[d] != nil {
			h.maxs[d] = *snap.Maxs[d]
		}
	}
	h.seen = snap.Seen
	h.total = snap.Total
	h.swapped = snap.Swapped
	i := 0
	for _, root := range h.trees {
		walkNodes(root, func(n *hsNode) {
			if i < len(snap.MassRef) {
				n.massRef = snap.MassRef[i]
			}
			if i < len(snap.MassCur) {
				n.massCur = snap.MassCur[i]
			}
			i++
		})
	}
	if i != len(snap.MassRef) {
		return fmt.Errorf("snapshot has %d node masses, model has %d nodes", len(snap.MassRef), i)
	}
	return nil
}

func finiteOrNil(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i, v := range vals {
		if !math.IsInf(v, 0) {
			w := v
			out[i] = &w
		}
	}
	return out
}

func walkNodes(n *hsNode, fn func(*hsNode)) {
	if n == nil {
		return
	}
	fn(n)
	walkNodes(n.left, fn)
	walkNodes(n.right, fn)
}
