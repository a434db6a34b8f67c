// Package correlate quantifies how related two sensor series are:
// Pearson/Spearman coefficients, ordinary least squares regression, lag
// sweeps, and rolling-window correlation. Insufficient data is reported
// via ok=false or empty results, never an error -- callers must treat
// "not computable" as distinct from zero correlation.
package correlate

import (
	"math"
	"sort"
	"time"

	"github.com/croftlabs/agripulse/internal/discover/align"
	"github.com/croftlabs/agripulse/pkg/series"
)

// Method selects the correlation coefficient.
type Method string

const (
	MethodPearson  Method = "pearson"
	MethodSpearman Method = "spearman"
)

// Normalize maps unknown method strings to Pearson.
func (m Method) Normalize() Method {
	if m == MethodSpearman {
		return MethodSpearman
	}
	return MethodPearson
}

// Pearson computes the Pearson correlation coefficient of two parallel
// vectors. ok is false when fewer than 3 samples are given or either
// vector has zero variance. The result is clamped to [-1, 1].
func Pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n < 3 || len(y) != n {
		return 0, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var ssXY, ssXX, ssYY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}

	denom := ssXX * ssYY
	if denom <= 0 {
		return 0, false
	}
	return clamp(ssXY/math.Sqrt(denom), -1, 1), true
}

// Spearman computes the Spearman rank correlation: both vectors are
// rank-transformed (average rank for ties) and Pearson is applied to the
// ranks. Same insufficiency conditions as Pearson.
func Spearman(x, y []float64) (float64, bool) {
	if len(x) != len(y) {
		return 0, false
	}
	return Pearson(ranks(x), ranks(y))
}

// ranks returns average ranks (1-based) with ties sharing their mean rank.
func ranks(v []float64) []float64 {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	r := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		// Positions i..j hold equal values; all receive the mean rank.
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

// PairResult is the correlation of one series pair at a fixed lag.
type PairResult struct {
	R  float64 `json:"r"`
	OK bool    `json:"ok"`
	N  int     `json:"n"`
}

// Pair aligns two series at the given lag and applies the chosen method.
func Pair(a, b *series.TimeSeries, method Method, lag time.Duration) PairResult {
	pair := align.Align(a, b, lag)
	return fromAligned(pair, method)
}

func fromAligned(pair *align.AlignedPair, method Method) PairResult {
	var r float64
	var ok bool
	switch method.Normalize() {
	case MethodSpearman:
		r, ok = Spearman(pair.X, pair.Y)
	default:
		r, ok = Pearson(pair.X, pair.Y)
	}
	return PairResult{R: r, OK: ok, N: pair.N()}
}

// Regression is the result of an ordinary least squares fit.
type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
}

// LinearRegression fits y = slope*x + intercept by least squares. ok is
// false for fewer than 2 samples or a degenerate design matrix (zero
// x-variance). R2 is clamped to [0, 1].
func LinearRegression(x, y []float64) (Regression, bool) {
	n := len(x)
	if n < 2 || len(y) != n {
		return Regression{}, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var ssXY, ssXX, ssYY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}

	if ssXX <= 0 {
		return Regression{}, false
	}

	slope := ssXY / ssXX
	reg := Regression{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
	}
	if ssYY > 0 {
		reg.R2 = clamp((ssXY*ssXY)/(ssXX*ssYY), 0, 1)
	}
	return reg, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
