package discover

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/croftlabs/agripulse/internal/discover/cooccur"
	"github.com/croftlabs/agripulse/internal/discover/correlate"
	"github.com/croftlabs/agripulse/internal/discover/events"
	"github.com/croftlabs/agripulse/internal/discover/rank"
	"github.com/croftlabs/agripulse/pkg/series"
)

// RunRequest describes one discovery run: a focus series, a candidate
// pool, and a strategy selection. Series are caller-owned and already
// bucketed at Interval; the engine never fetches data itself.
type RunRequest struct {
	Focus      *series.TimeSeries
	Candidates []*series.TimeSeries
	Strategies []string
	Interval   time.Duration

	// Embedding carries externally computed similarity payloads; the
	// engine only normalizes and ranks them.
	Embedding []rank.EmbeddingCandidate
}

// RunResult is the merged, ranked output of one discovery run.
type RunResult struct {
	Candidates []series.NormalizedCandidate `json:"candidates"`
	Evaluated  int                          `json:"evaluated"`
}

// Runner executes discovery runs. All strategy components are pure and
// CPU-bound; the runner owns parallelism across candidates and propagates
// the caller's cancellation.
type Runner struct {
	cfg DiscoverConfig
}

// NewRunner creates a Runner with the given configuration.
func NewRunner(cfg DiscoverConfig) *Runner {
	return &Runner{cfg: cfg}
}

// Run evaluates each selected strategy against the candidate pool and
// merges the per-strategy rankings. On cancellation partial results are
// discarded and ctx.Err() is returned. An empty strategy selection runs
// correlation, events, and co-occurrence.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Focus == nil {
		return &RunResult{}, nil
	}
	interval := req.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	strategies := req.Strategies
	if len(strategies) == 0 {
		strategies = []string{series.StrategyCorrelation, series.StrategyEvents, series.StrategyCooccurrence}
	}

	res := &RunResult{}
	var lists [][]series.NormalizedCandidate
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			list []series.NormalizedCandidate
			err  error
		)
		switch strategy {
		case series.StrategyCorrelation:
			list, err = r.runCorrelation(ctx, req, interval)
		case series.StrategyEvents:
			list, err = r.runEvents(ctx, req, interval)
		case series.StrategyCooccurrence:
			list, err = r.runCooccurrence(ctx, req, interval)
		case series.StrategyEmbedding:
			list = rank.Embedding(req.Focus.SeriesID, req.Embedding)
		default:
			continue // Unknown strategies are skipped, not rejected.
		}
		if err != nil {
			return nil, err
		}
		res.Evaluated += len(list)
		lists = append(lists, list)
	}

	res.Candidates = rank.Merge(lists...)
	return res, nil
}

// runCorrelation lag-sweeps every candidate against the focus in parallel.
// Candidates whose coefficient is not computable at any lag are excluded
// from the ranking ("not computable" is not a zero).
func (r *Runner) runCorrelation(ctx context.Context, req RunRequest, interval time.Duration) ([]series.NormalizedCandidate, error) {
	method := correlate.Method(r.cfg.Method).Normalize()

	var mu sync.Mutex
	cands := make([]rank.CorrelationCandidate, 0, len(req.Candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, cand := range req.Candidates {
		if cand == nil || cand.SeriesID == req.Focus.SeriesID {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sweep := correlate.LagSweep(req.Focus, cand, method, interval, r.cfg.MaxLagBuckets)
			if sweep.Best == nil {
				return nil
			}
			mu.Lock()
			cands = append(cands, rank.CorrelationCandidate{
				SensorID:   cand.SeriesID,
				R:          sweep.Best.R,
				N:          sweep.Best.N,
				LagBuckets: sweep.Best.LagBuckets,
				LagSwept:   r.cfg.MaxLagBuckets > 0,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Parallel completion order is nondeterministic; restore a stable
	// input order before ranking.
	sort.Slice(cands, func(i, j int) bool { return cands[i].SensorID < cands[j].SensorID })
	candidatesEvaluated.Add(float64(len(cands)))
	return rank.Correlation(req.Focus.SeriesID, cands, interval), nil
}

func (r *Runner) runEvents(ctx context.Context, req RunRequest, interval time.Duration) ([]series.NormalizedCandidate, error) {
	sugs, err := events.Match(ctx, req.Focus, req.Candidates, events.MatchParams{
		Interval:             interval,
		ZThreshold:           r.cfg.ZThreshold,
		MinSeparationBuckets: r.cfg.MinSeparationBuckets,
		Polarity:             r.cfg.Polarity,
		MaxLagBuckets:        r.cfg.MaxLagBuckets,
		LagRefineTopK:        r.cfg.LagRefineTopK,
	})
	if err != nil {
		return nil, err
	}
	candidatesEvaluated.Add(float64(len(sugs)))
	return rank.Events(sugs, interval), nil
}

func (r *Runner) runCooccurrence(ctx context.Context, req RunRequest, interval time.Duration) ([]series.NormalizedCandidate, error) {
	set := make([]*series.TimeSeries, 0, len(req.Candidates)+1)
	set = append(set, req.Focus)
	set = append(set, req.Candidates...)

	found, err := cooccur.Find(ctx, set, cooccur.Params{
		Interval:             interval,
		ZThreshold:           r.cfg.ZThreshold,
		MinSeparationBuckets: r.cfg.MinSeparationBuckets,
		Polarity:             r.cfg.Polarity,
		MinSensors:           r.cfg.MinSensors,
		ToleranceBuckets:     r.cfg.ToleranceBuckets,
		FocusSensorID:        req.Focus.SeriesID,
		MaxResults:           r.cfg.MaxResults,
	})
	if err != nil {
		return nil, err
	}
	list := rank.Cooccurrence(req.Focus.SeriesID, found)
	candidatesEvaluated.Add(float64(len(list)))
	return list, nil
}

func (r *Runner) workers() int {
	if r.cfg.Workers < 1 {
		return 1
	}
	return r.cfg.Workers
}
