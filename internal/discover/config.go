package discover

import "time"

// DiscoverConfig holds configuration for the Discover analytics plugin.
// Individual algorithm components clamp out-of-range values to the nearest
// valid value, so a bad setting degrades to best effort instead of failing.
type DiscoverConfig struct {
	Method               string        `mapstructure:"method"`                 // "pearson" or "spearman"
	ZThreshold           float64       `mapstructure:"z_threshold"`            // Robust z-score event threshold
	MinSeparationBuckets int           `mapstructure:"min_separation_buckets"` // Event merge window
	Polarity             string        `mapstructure:"polarity"`               // "both", "up", "down"
	MaxLagBuckets        int           `mapstructure:"max_lag_buckets"`        // Lag sweep half-width
	LagRefineTopK        int           `mapstructure:"lag_refine_top_k"`       // Candidates that get a lag sweep
	ToleranceBuckets     int           `mapstructure:"tolerance_buckets"`      // Co-occurrence smear width
	MinSensors           int           `mapstructure:"min_sensors"`            // Minimum sensors per bucket
	MaxResults           int           `mapstructure:"max_results"`            // Co-occurrence bucket cap
	Workers              int           `mapstructure:"workers"`                // Parallel candidate evaluations
	RunRetention         time.Duration `mapstructure:"run_retention"`
	MaintenanceInterval  time.Duration `mapstructure:"maintenance_interval"`
}

// DefaultConfig returns sensible defaults for the Discover module.
func DefaultConfig() DiscoverConfig {
	return DiscoverConfig{
		Method:               "pearson",
		ZThreshold:           3.0,
		MinSeparationBuckets: 3,
		Polarity:             "both",
		MaxLagBuckets:        12,
		LagRefineTopK:        10,
		ToleranceBuckets:     1,
		MinSensors:           2,
		MaxResults:           20,
		Workers:              4,
		RunRetention:         30 * 24 * time.Hour,
		MaintenanceInterval:  1 * time.Hour,
	}
}
