// Package discover implements the sensor relationship/pattern-discovery
// plugin: given a focus sensor and a pool of candidate series, it scores
// how related each candidate is (correlation, event overlap,
// co-occurrence, externally supplied embedding similarity) and merges the
// strategies into one ranked, explainable candidate list.
package discover

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/croftlabs/agripulse/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module implements the Discover analytics plugin.
type Module struct {
	logger *zap.Logger
	cfg    DiscoverConfig
	store  *DiscoverStore
	bus    plugin.EventBus
	runner *Runner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Discover plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "discover",
		Version:     "0.1.0",
		Description: "Sensor relationship and pattern discovery",
		Required:    false,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal discover config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "discover", migrations()); err != nil {
			return fmt.Errorf("discover migrations: %w", err)
		}
		m.store = NewDiscoverStore(deps.Store.DB())
	}

	m.bus = deps.Bus
	m.runner = NewRunner(m.cfg)

	m.logger.Info("discover module initialized",
		zap.String("method", m.cfg.Method),
		zap.Float64("z_threshold", m.cfg.ZThreshold),
		zap.Int("max_lag_buckets", m.cfg.MaxLagBuckets),
		zap.Int("lag_refine_top_k", m.cfg.LagRefineTopK),
		zap.Int("workers", m.cfg.Workers),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startMaintenance()
	m.logger.Info("discover module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("discover module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	details := map[string]string{
		"method":  m.cfg.Method,
		"workers": strconv.Itoa(m.cfg.Workers),
	}
	if m.store != nil {
		if runs, err := m.store.ListRuns(ctx, "", 1); err == nil {
			details["persisted_runs_visible"] = strconv.Itoa(len(runs))
		}
	}
	return plugin.HealthStatus{Status: "healthy", Details: details}
}

// ExecuteRun performs one discovery run end to end: evaluation, metrics,
// persistence, and a completion event. The caller's context carries the
// cancellation/timeout; a cancelled run is recorded as failed and no
// partial candidates are stored.
func (m *Module) ExecuteRun(ctx context.Context, req RunRequest) (*Run, *RunResult, error) {
	runsStarted.WithLabelValues(strings.Join(req.Strategies, ",")).Inc()
	started := time.Now()

	run := &Run{
		ID:            uuid.NewString(),
		FocusSensorID: req.Focus.SeriesID,
		Strategies:    req.Strategies,
		Status:        RunStatusCompleted,
		CreatedAt:     started.UTC(),
	}

	result, err := m.runner.Run(ctx, req)
	run.DurationMS = time.Since(started).Milliseconds()
	runDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		runsFailed.Inc()
		run.Status = RunStatusFailed
		run.Error = err.Error()
		m.logger.Warn("discovery run failed",
			zap.String("run_id", run.ID),
			zap.String("focus", run.FocusSensorID),
			zap.Error(err),
		)
		if m.store != nil {
			if storeErr := m.store.InsertRun(ctx, run); storeErr != nil {
				m.logger.Warn("failed to store failed run", zap.Error(storeErr))
			}
		}
		return run, nil, err
	}

	run.Evaluated = result.Evaluated
	if m.store != nil {
		if err := m.store.InsertRun(ctx, run); err != nil {
			m.logger.Warn("failed to store run", zap.Error(err))
		} else if err := m.store.InsertCandidates(ctx, run.ID, result.Candidates); err != nil {
			m.logger.Warn("failed to store candidates", zap.Error(err))
		}
	}

	m.logger.Info("discovery run completed",
		zap.String("run_id", run.ID),
		zap.String("focus", run.FocusSensorID),
		zap.Int("evaluated", run.Evaluated),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int64("duration_ms", run.DurationMS),
	)

	if m.bus != nil {
		m.bus.PublishAsync(m.ctx, plugin.Event{
			Topic:     TopicRunCompleted,
			Source:    "discover",
			Timestamp: time.Now(),
			Payload:   run,
		})
	}
	return run, result, nil
}

// startMaintenance launches a background goroutine that periodically
// deletes runs past the retention window.
func (m *Module) startMaintenance() {
	if m.store == nil || m.cfg.MaintenanceInterval <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.MaintenanceInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.runMaintenance()
			}
		}
	}()
}

func (m *Module) runMaintenance() {
	ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-m.cfg.RunRetention)
	deleted, err := m.store.DeleteOldRuns(ctx, cutoff)
	if err != nil {
		m.logger.Warn("failed to delete old runs", zap.Error(err))
	} else if deleted > 0 {
		m.logger.Info("purged old runs", zap.Int64("count", deleted))
	}
}
