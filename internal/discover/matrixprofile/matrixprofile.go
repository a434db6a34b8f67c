// Package matrixprofile computes the self-join matrix profile of a single
// series: for each subsequence of a fixed window length, the z-normalized
// Euclidean distance to its nearest non-trivial match elsewhere in the
// same series. Used for motif and anomaly discovery. This is the
// straightforward O(k^2 * window) reference algorithm, not an
// FFT-accelerated variant.
package matrixprofile

import (
	"context"
	"math"

	"github.com/croftlabs/agripulse/pkg/series"
)

// degenerateVar is the variance at or below which a window is treated as
// constant for normalization purposes.
const degenerateVar = 1e-12

// Compute returns the matrix profile of values for the given window.
// The window is clamped into [4, len(values)]; an exclusionZone < 0 asks
// for the default of window/2. Values are assumed finite (callers extract
// present samples before calling). When fewer than 2 valid subsequences
// exist the profile arrays are empty. Subsequences with no admissible
// neighbor keep a +Inf profile entry and index -1.
//
// Cancellation is checked between outer-loop iterations (the inner loop is
// a tight numeric kernel); on cancellation the partial profile is
// discarded and ctx.Err() is returned.
func Compute(ctx context.Context, values []float64, window, exclusionZone int) (series.MatrixProfileResult, error) {
	n := len(values)
	if window < 4 {
		window = 4
	}
	if window > n {
		window = n
	}
	if exclusionZone < 0 {
		exclusionZone = window / 2
	}

	res := series.MatrixProfileResult{Window: window, ExclusionZone: exclusionZone}
	k := n - window + 1
	if k < 2 {
		return res, nil
	}

	// Prefix sums give O(1) per-window mean and variance.
	cum := make([]float64, n+1)
	cumSq := make([]float64, n+1)
	for i, v := range values {
		cum[i+1] = cum[i] + v
		cumSq[i+1] = cumSq[i] + v*v
	}

	w := float64(window)
	mean := make([]float64, k)
	sigma := make([]float64, k)
	degenerate := make([]bool, k)
	for i := 0; i < k; i++ {
		m := (cum[i+window] - cum[i]) / w
		variance := (cumSq[i+window]-cumSq[i])/w - m*m
		mean[i] = m
		if variance <= degenerateVar {
			degenerate[i] = true
		} else {
			sigma[i] = math.Sqrt(variance)
		}
	}

	res.Profile = make([]float64, k)
	res.ProfileIndex = make([]int, k)
	for i := range res.Profile {
		res.Profile[i] = math.Inf(1)
		res.ProfileIndex[i] = -1
	}

	for i := 0; i < k; i++ {
		if err := ctx.Err(); err != nil {
			return series.MatrixProfileResult{}, err
		}
		for j := i + exclusionZone + 1; j < k; j++ {
			var dist float64
			switch {
			case degenerate[i] && degenerate[j]:
				dist = 0
			case degenerate[i] || degenerate[j]:
				dist = math.Sqrt(w)
			default:
				var dot float64
				for t := 0; t < window; t++ {
					dot += values[i+t] * values[j+t]
				}
				corr := (dot - w*mean[i]*mean[j]) / (w * sigma[i] * sigma[j])
				dist = math.Sqrt(math.Max(0, 2*w*(1-corr)))
			}

			if dist < res.Profile[i] {
				res.Profile[i] = dist
				res.ProfileIndex[i] = j
			}
			if dist < res.Profile[j] {
				res.Profile[j] = dist
				res.ProfileIndex[j] = i
			}
		}
	}
	return res, nil
}

// FromSeries extracts the present values of s and computes their profile.
// Gaps are dropped, so callers should prefer gap-free extracts when index
// positions must map back to timestamps.
func FromSeries(ctx context.Context, s *series.TimeSeries, window, exclusionZone int) (series.MatrixProfileResult, error) {
	if s == nil {
		return series.MatrixProfileResult{Window: window, ExclusionZone: exclusionZone}, nil
	}
	values := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Present() {
			values = append(values, *p.Value)
		}
	}
	return Compute(ctx, values, window, exclusionZone)
}
