package correlate

import (
	"math"
	"time"

	"github.com/croftlabs/agripulse/internal/discover/align"
)

// RollingPoint is the windowed correlation at one window position, keyed
// by the window's last timestamp.
type RollingPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Rolling computes Pearson over a sliding window of fixed point count,
// maintained with incremental sum updates for O(n) total cost. The window
// is clamped to at least 3 points; if the pair has fewer aligned samples
// than the window, the result is empty. Window positions where either
// side has zero variance are skipped (the coefficient is not computable
// there, which is not the same as zero).
func Rolling(pair *align.AlignedPair, window int) []RollingPoint {
	if window < 3 {
		window = 3
	}
	n := pair.N()
	if n < window {
		return nil
	}

	var sumX, sumY, sumXX, sumYY, sumXY float64
	out := make([]RollingPoint, 0, n-window+1)

	for i := 0; i < n; i++ {
		sumX += pair.X[i]
		sumY += pair.Y[i]
		sumXX += pair.X[i] * pair.X[i]
		sumYY += pair.Y[i] * pair.Y[i]
		sumXY += pair.X[i] * pair.Y[i]

		if i >= window {
			j := i - window
			sumX -= pair.X[j]
			sumY -= pair.Y[j]
			sumXX -= pair.X[j] * pair.X[j]
			sumYY -= pair.Y[j] * pair.Y[j]
			sumXY -= pair.X[j] * pair.Y[j]
		}
		if i < window-1 {
			continue
		}

		w := float64(window)
		cov := sumXY - sumX*sumY/w
		varX := sumXX - sumX*sumX/w
		varY := sumYY - sumY*sumY/w
		denom := varX * varY
		if denom <= 0 {
			continue
		}
		out = append(out, RollingPoint{
			Timestamp: pair.Timestamps[i],
			Value:     clamp(cov/math.Sqrt(denom), -1, 1),
		})
	}
	return out
}
