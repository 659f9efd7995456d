package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"mta/metro-disruptions/config"
	"mta/metro-disruptions/detect"
	"mta/metro-disruptions/gtfsrt"
	"mta/metro-disruptions/internal"
	"mta/metro-disruptions/metrics"
	"mta/metro-disruptions/pipeline"
	"mta/metro-disruptions/server"
	"mta/metro-disruptions/state"
	"mta/metro-disruptions/store"
	"mta/metro-disruptions/topology"
)

const recentAlertCap = 256

// runner owns the pipeline and serves status and recent alerts to the
// operational API. All access goes through the mutex; passes run one at
// a time.
type runner struct {
	mu     sync.Mutex
	pipe   *pipeline.Pipeline
	scorer *detect.Scorer
	sink   *store.Store
	recent []detect.Result
}

func (r *runner) processMinute(ctx context.Context, minute gtfsrt.Minute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	res, err := r.pipe.ProcessMinute(minute)
	if err != nil {
		if errors.Is(err, state.ErrOutOfOrder) && metrics.IsEnabled() {
			metrics.PassesRejected.Add(ctx, 1)
		}
		return err
	}

	alerts := 0
	for _, sc := range res.Scores {
		if sc.Alert {
			alerts++
			r.recent = append(r.recent, sc)
		}
	}
	if n := len(r.recent) - recentAlertCap; n > 0 {
		r.recent = r.recent[n:]
	}

	if metrics.IsEnabled() {
		metrics.PassesTotal.Add(ctx, 1)
		metrics.PassDuration.Record(ctx, time.Since(start).Seconds())
		metrics.RowsEmitted.Add(ctx, int64(len(res.Rows)))
		metrics.RowsDiscarded.Add(ctx, int64(res.Discarded))
		metrics.AlertsTotal.Add(ctx, int64(alerts))
		metrics.RecordLastPassTimestamp(res.Timestamp)
	}
	if alerts > 0 {
		log.Printf("minute %d: %d rows, %d alerts", res.Timestamp, len(res.Rows), alerts)
	}

	if r.sink != nil {
		sinkStart := time.Now()
		if err := r.sink.WriteMinute(ctx, res.Rows, res.Scores); err != nil {
			log.Printf("ERROR: sink write for minute %d: %v", res.Timestamp, err)
			if metrics.IsEnabled() {
				metrics.SinkWriteErrors.Add(ctx, 1)
			}
		} else if metrics.IsEnabled() {
			metrics.SinkWriteDuration.Record(ctx, time.Since(sinkStart).Seconds())
		}
	}
	return nil
}

// Status implements server.StatusProvider.
func (r *runner) Status() server.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := r.pipe.Store().LastPassTimestamp()
	return server.Status{
		LastPassTimestamp: last,
		TrackedKeys:       r.pipe.Store().Len(),
		RowsScored:        r.scorer.Scored(),
		ScoreWindowLen:    r.scorer.WindowLen(),
		Warmup:            r.scorer.Warmup(last),
	}
}

// RecentAlerts implements server.AlertSource, newest first.
func (r *runner) RecentAlerts(limit int) []detect.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.recent) {
		limit = len(r.recent)
	}
	out := make([]detect.Result, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.recent[len(r.recent)-1-i]
	}
	return out
}

func main() {
	mode := flag.String("mode", "poll", "poll|replay")
	replayDir := flag.String("replayDir", "", "directory of captured protobuf minutes for replay")
	scorerState := flag.String("scorerState", "", "path for persisted scorer state (load at start, save at exit)")
	bootstrapMinutes := flag.Int("bootstrapMinutes", 5, "minutes of forecasts used to bootstrap the network topology")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	internal.InitLogging(*verbose)
	if err := config.LoadAppConfig(); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.Config

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := metrics.InitMetrics(cfg.Metrics)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}
	defer shutdownMetrics()

	scorer, err := loadScorer(cfg, *scorerState)
	if err != nil {
		log.Fatalf("scorer state: %v", err)
	}

	var sink *store.Store
	if cfg.Store.DatabaseURL != "" {
		sink, err = store.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer sink.Close()
		log.Printf("postgres sink enabled")
	}

	switch *mode {
	case "poll":
		runPoll(ctx, cfg, loc, scorer, sink, *bootstrapMinutes)
	case "replay":
		if *replayDir == "" {
			log.Fatal("replay mode requires -replayDir")
		}
		runReplay(ctx, cfg, loc, scorer, sink, *replayDir)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	if *scorerState != "" {
		if err := scorer.Save(*scorerState); err != nil {
			log.Printf("ERROR: saving scorer state: %v", err)
		} else {
			log.Printf("scorer state saved to %s", *scorerState)
		}
	}
}

func loadScorer(cfg config.AppConfig, path string) (*detect.Scorer, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			log.Printf("resuming scorer state from %s", path)
			return detect.LoadScorer(path)
		}
	}
	return detect.NewScorer(cfg.Detect), nil
}

// runPoll fetches the realtime feeds once per interval. The first
// bootstrapMinutes snapshots only feed the topology index; scoring starts
// once the network shape is known.
func runPoll(ctx context.Context, cfg config.AppConfig, loc *time.Location, scorer *detect.Scorer, sink *store.Store, bootstrapMinutes int) {
	client := gtfsrt.NewClient(time.Duration(cfg.Feed.TimeoutMS) * time.Millisecond)

	var (
		bootstrap []gtfsrt.TripForecastRecord
		seen      int
		r         *runner
		lastTS    int64
	)

	ticker := time.NewTicker(time.Duration(cfg.Feed.PollIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		fetchStart := time.Now()
		minute, err := client.FetchMinute(cfg.Feed.TripUpdatesURL, cfg.Feed.VehiclePositionsURL)
		if err != nil {
			log.Printf("ERROR: feed fetch: %v", err)
			if metrics.IsEnabled() {
				metrics.FeedFetchErrors.Add(ctx, 1)
			}
		} else {
			if metrics.IsEnabled() {
				metrics.FeedFetchDuration.Record(ctx, time.Since(fetchStart).Seconds())
				metrics.FeedRecordsDecoded.Add(ctx,
					int64(len(minute.TripUpdates)+len(minute.VehiclePositions)))
			}
			switch {
			case minute.Timestamp <= lastTS:
				internal.Debugf("feed unchanged at %d, skipping", minute.Timestamp)
			case r == nil:
				lastTS = minute.Timestamp
				bootstrap = append(bootstrap, minute.TripUpdates...)
				seen++
				if seen >= bootstrapMinutes {
					topo := topology.FromForecasts(bootstrap)
					log.Printf("topology bootstrapped: %d stops across %d route directions",
						topo.NumStops(), len(topo.RouteDirections()))
					r = startRunner(ctx, cfg, topo, loc, scorer, sink)
					bootstrap = nil
				}
			default:
				lastTS = minute.Timestamp
				if err := r.processMinute(ctx, minute); err != nil {
					log.Printf("ERROR: minute %d: %v", minute.Timestamp, err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runReplay feeds captured protobuf snapshots through a fresh pipeline in
// filename order. Captures are pairs <name>.tu.pb / <name>.vp.pb, one pair
// per snapshot minute.
func runReplay(ctx context.Context, cfg config.AppConfig, loc *time.Location, scorer *detect.Scorer, sink *store.Store, dir string) {
	names, err := replayNames(dir)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
	if len(names) == 0 {
		log.Fatalf("replay: no .tu.pb captures under %s", dir)
	}
	log.Printf("replaying %d captured minutes from %s", len(names), dir)

	var r *runner
	var bootstrap []gtfsrt.TripForecastRecord
	for i, name := range names {
		if ctx.Err() != nil {
			return
		}
		minute, err := readCapture(dir, name)
		if err != nil {
			log.Printf("ERROR: capture %s: %v", name, err)
			continue
		}
		if r == nil {
			bootstrap = append(bootstrap, minute.TripUpdates...)
			if len(bootstrap) == 0 {
				continue
			}
			topo := topology.FromForecasts(bootstrap)
			log.Printf("topology bootstrapped from capture %d/%d: %d stops",
				i+1, len(names), topo.NumStops())
			r = startRunner(ctx, cfg, topo, loc, scorer, sink)
			bootstrap = nil
		}
		if err := r.processMinute(ctx, minute); err != nil {
			log.Printf("ERROR: minute %d: %v", minute.Timestamp, err)
		}
	}
	log.Printf("replay complete: %d rows scored", scorer.Scored())
}

func replayNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".tu.pb") {
			names = append(names, strings.TrimSuffix(e.Name(), ".tu.pb"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func readCapture(dir, name string) (gtfsrt.Minute, error) {
	tu, err := os.ReadFile(filepath.Join(dir, name+".tu.pb"))
	if err != nil {
		return gtfsrt.Minute{}, err
	}
	// Vehicle positions are optional per capture.
	vp, err := os.ReadFile(filepath.Join(dir, name+".vp.pb"))
	if err != nil {
		vp = nil
	}
	return gtfsrt.DecodeMinute(tu, vp)
}

func startRunner(ctx context.Context, cfg config.AppConfig, topo *topology.Index, loc *time.Location, scorer *detect.Scorer, sink *store.Store) *runner {
	r := &runner{
		pipe:   pipeline.New(cfg, topo, loc, scorer),
		scorer: scorer,
		sink:   sink,
	}
	srv := server.New(cfg.Server, r, r, sink)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Printf("ERROR: server: %v", err)
		}
	}()
	log.Printf("server listening on :%d", cfg.Server.Port)
	return r
}
