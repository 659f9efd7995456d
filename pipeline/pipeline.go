package pipeline

import (
	"fmt"
	"sync"
	"time"

	"mta/metro-disruptions/config"
	"mta/metro-disruptions/detect"
	"mta/metro-disruptions/features"
	"mta/metro-disruptions/gtfsrt"
	"mta/metro-disruptions/state"
	"mta/metro-disruptions/topology"
)

// Result is the output of one snapshot-minute pass.
type Result struct {
	Timestamp int64
	// Rows are the emitted feature vectors, one per observed station key.
	Rows []features.Vector
	// MultiRoute marks batches spanning more than one route; only then is
	// the route identifier part of the persisted row set.
	MultiRoute bool
	// Scores holds one entry per row that passed the scorer's filters.
	Scores []detect.Result
	// Discarded counts rows dropped by defensive filtering.
	Discarded int
}

// Pipeline wires the joiner, feature computer, state store and scorer
// into the one-pass-per-minute contract. Not safe for concurrent use;
// minutes are processed strictly one at a time, in order.
type Pipeline struct {
	topo     *topology.Index
	store    *state.Store
	joiner   *features.Joiner
	computer *features.Computer
	scorer   *detect.Scorer
	workers  int
}

// New assembles a pipeline from the configured tolerances and model.
func New(cfg config.AppConfig, topo *topology.Index, loc *time.Location, scorer *detect.Scorer) *Pipeline {
	latency := features.NewLatencyWindow(cfg.Join.LatencyWindowSize, cfg.Join.LatencyRecomputeEvery)
	return &Pipeline{
		topo:     topo,
		store:    state.NewStore(),
		joiner:   features.NewJoiner(topo, cfg.Join.ForecastStalenessSecs, cfg.Join.VehicleStalenessSecs, latency),
		computer: features.NewComputer(topo, loc),
		scorer:   scorer,
		workers:  cfg.Pipeline.Workers,
	}
}

// Store exposes the rolling state store (read-only use by callers).
func (p *Pipeline) Store() *state.Store { return p.store }

// ProcessMinute runs one full pass. A minute at or before the last
// processed one violates the ordering contract and returns an error
// without touching state; within the pass, either every staged update
// commits or none does.
func (p *Pipeline) ProcessMinute(minute gtfsrt.Minute) (Result, error) {
	if minute.Timestamp <= 0 {
		return Result{}, fmt.Errorf("pipeline: snapshot minute without timestamp")
	}
	if err := p.store.BeginPass(minute.Timestamp); err != nil {
		return Result{}, err
	}

	joined := p.joiner.Join(minute)
	multiRoute := spansMultipleRoutes(joined)

	rows := make([]features.Vector, len(joined))
	updates := make([]*state.Update, len(joined))
	p.computeAll(joined, minute.Timestamp, multiRoute, rows, updates)

	for _, u := range updates {
		if u == nil {
			continue
		}
		if err := p.store.Apply(*u); err != nil {
			p.store.Abort()
			return Result{}, err
		}
	}
	p.store.Commit()

	res := Result{
		Timestamp:  minute.Timestamp,
		Rows:       rows,
		MultiRoute: multiRoute,
	}
	for i := range rows {
		if score, ok := p.scorer.ScoreRow(&rows[i]); ok {
			res.Scores = append(res.Scores, score)
		} else {
			res.Discarded++
		}
	}
	return res, nil
}

// computeAll runs the read-only compute phase, sharded across workers
// when configured. Every worker reads prior committed state only, so the
// outcome is identical to the sequential order.
func (p *Pipeline) computeAll(joined []features.JoinedRecord, ts int64, multiRoute bool, rows []features.Vector, updates []*state.Update) {
	workers := p.workers
	if workers <= 1 || len(joined) < 2 {
		for i, rec := range joined {
			rows[i], updates[i] = p.computer.Compute(p.store, rec, ts, multiRoute)
		}
		return
	}
	if workers > len(joined) {
		workers = len(joined)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(shard int) {
			defer wg.Done()
			for i := shard; i < len(joined); i += workers {
				rows[i], updates[i] = p.computer.Compute(p.store, joined[i], ts, multiRoute)
			}
		}(w)
	}
	wg.Wait()
}

// spansMultipleRoutes decides, per batch, whether the route column is
// meaningful for this minute's rows.
func spansMultipleRoutes(joined []features.JoinedRecord) bool {
	first := ""
	for _, rec := range joined {
		if rec.Forecast == nil {
			continue
		}
		if first == "" {
			first = rec.RouteID
			continue
		}
		if rec.RouteID != first {
			return true
		}
	}
	return false
}
