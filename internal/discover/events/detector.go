// Package events extracts abrupt changes ("events") from single sensor
// series via robust z-scores over first differences, and matches event
// sets across sensors with F1 overlap scoring.
package events

import (
	"math"
	"sort"
	"time"

	"github.com/croftlabs/agripulse/pkg/series"
)

// scaleEpsilon is the smallest usable robust scale; anything at or below
// it means the tier could not separate signal from quantization noise.
const scaleEpsilon = 1e-12

// madToSigma converts a median absolute deviation to a standard-deviation
// equivalent under a normal assumption.
const madToSigma = 1.4826

// DetectParams tunes event extraction. Out-of-range values are clamped to
// the nearest valid value rather than rejected.
type DetectParams struct {
	Interval             time.Duration
	ZThreshold           float64
	MinSeparationBuckets int
	Polarity             string
}

func (p DetectParams) normalized() DetectParams {
	if p.Interval <= 0 {
		p.Interval = time.Minute
	}
	if p.ZThreshold <= 0 {
		p.ZThreshold = 3.0
	}
	if p.MinSeparationBuckets < 0 {
		p.MinSeparationBuckets = 0
	}
	switch p.Polarity {
	case series.PolarityUp, series.PolarityDown:
	default:
		p.Polarity = series.PolarityBoth
	}
	return p
}

type delta struct {
	timestamp time.Time
	value     float64
}

// Detect flags abrupt changes in s without absolute thresholds: first
// differences over consecutive present points are standardized by a robust
// center/scale, and buckets where |z| crosses the threshold become events.
// Events closer together than the minimum separation are merged, keeping
// the one with the larger |z|. A degenerate series (no usable robust
// scale) produces no events.
func Detect(s *series.TimeSeries, p DetectParams) []series.DetectedEvent {
	p = p.normalized()
	if s == nil || len(s.Points) < 2 {
		return nil
	}

	// First differences over adjacent present points; a gap breaks the
	// pair rather than being treated as zero.
	deltas := make([]delta, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		prev, cur := s.Points[i-1], s.Points[i]
		if !prev.Present() || !cur.Present() {
			continue
		}
		deltas = append(deltas, delta{timestamp: cur.Timestamp, value: *cur.Value - *prev.Value})
	}
	if len(deltas) == 0 {
		return nil
	}

	values := make([]float64, len(deltas))
	for i, d := range deltas {
		values[i] = d.value
	}
	center, scale, ok := robustScale(values)
	if !ok {
		return nil
	}

	var out []series.DetectedEvent
	minSep := time.Duration(p.MinSeparationBuckets) * p.Interval
	for _, d := range deltas {
		z := (d.value - center) / scale
		if math.Abs(z) < p.ZThreshold {
			continue
		}
		direction := series.DirectionUp
		if z < 0 {
			direction = series.DirectionDown
		}
		if p.Polarity == series.PolarityUp && direction != series.DirectionUp {
			continue
		}
		if p.Polarity == series.PolarityDown && direction != series.DirectionDown {
			continue
		}

		ev := series.DetectedEvent{
			Timestamp: d.timestamp,
			ZScore:    z,
			Direction: direction,
			Delta:     d.value,
		}

		// Greedy left-to-right merge: within the separation window the
		// larger |z| replaces the last kept event, the smaller is dropped.
		if n := len(out); n > 0 && minSep > 0 && ev.Timestamp.Sub(out[n-1].Timestamp) < minSep {
			if math.Abs(ev.ZScore) > math.Abs(out[n-1].ZScore) {
				out[n-1] = ev
			}
			continue
		}
		out = append(out, ev)
	}
	return out
}

// robustScale derives a center and scale for standardizing deltas using a
// three-tier fallback:
//  1. median + 1.4826*MAD when the MAD is usable;
//  2. the median of only the non-zero absolute deviations (needs at least
//     10 of them), for quantized signals where most deltas are exactly zero;
//  3. mean absolute deviation converted to a sigma equivalent via sqrt(pi/2).
//
// ok is false when every tier fails (constant or near-constant series).
func robustScale(values []float64) (center, scale float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	center = median(values)

	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - center)
	}

	if mad := median(devs); mad > scaleEpsilon {
		return center, madToSigma * mad, true
	}

	nonzero := devs[:0:0]
	for _, d := range devs {
		if d > scaleEpsilon {
			nonzero = append(nonzero, d)
		}
	}
	if len(nonzero) >= 10 {
		if mad := median(nonzero); mad > scaleEpsilon {
			return center, madToSigma * mad, true
		}
	}

	var sum float64
	for _, d := range devs {
		sum += d
	}
	meanAbs := sum / float64(len(devs))
	if s := meanAbs * math.Sqrt(math.Pi/2); s > scaleEpsilon {
		return center, s, true
	}
	return 0, 0, false
}

// median returns the middle value (mean of the two middle values for even
// lengths). The input is not modified.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
