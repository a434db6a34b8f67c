package correlate

import (
	"time"

	"github.com/croftlabs/agripulse/pkg/series"
)

// LagPoint is the correlation of a pair at one integer lag. LagBuckets is
// the shift applied to the candidate in whole buckets; positive means the
// candidate occurs later than the focus.
type LagPoint struct {
	LagBuckets int     `json:"lag_buckets"`
	R          float64 `json:"r"`
	OK         bool    `json:"ok"`
	N          int     `json:"n"`
}

// SweepResult holds one LagPoint per evaluated lag plus the best point.
// Best is nil when no lag produced a computable coefficient on at least
// 3 aligned samples.
type SweepResult struct {
	Points []LagPoint `json:"points"`
	Best   *LagPoint  `json:"best,omitempty"`
}

// LagSweep evaluates the pair correlation at every integer lag in
// [-maxLagBuckets, +maxLagBuckets]. Best is the computable point with
// n >= 3 maximizing |r|; on equal |r| the lowest lag bucket wins (the
// sweep scans lags in ascending order and only a strictly greater |r|
// replaces the incumbent).
func LagSweep(a, b *series.TimeSeries, method Method, interval time.Duration, maxLagBuckets int) SweepResult {
	if maxLagBuckets < 0 {
		maxLagBuckets = 0
	}
	if interval <= 0 {
		interval = time.Minute
	}

	res := SweepResult{Points: make([]LagPoint, 0, 2*maxLagBuckets+1)}
	bestAbs := -1.0
	for lag := -maxLagBuckets; lag <= maxLagBuckets; lag++ {
		pr := Pair(a, b, method, time.Duration(lag)*interval)
		pt := LagPoint{LagBuckets: lag, R: pr.R, OK: pr.OK, N: pr.N}
		res.Points = append(res.Points, pt)

		if !pt.OK || pt.N < 3 {
			continue
		}
		if abs := absFloat(pt.R); abs > bestAbs {
			bestAbs = abs
			best := pt
			res.Best = &best
		}
	}
	return res
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
