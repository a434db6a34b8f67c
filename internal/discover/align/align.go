// Package align pairs two bucketed time series point-for-point under an
// optional lag shift. Timestamps must match exactly after the shift; there
// is no interpolation or nearest-neighbor snapping.
package align

import (
	"time"

	"github.com/croftlabs/agripulse/pkg/series"
)

// AlignedPair holds parallel value arrays, one entry per timestamp where
// both series have a present value after the lag shift. Ephemeral;
// recomputed per call.
type AlignedPair struct {
	Timestamps []time.Time
	X          []float64
	Y          []float64
}

// N returns the number of aligned samples.
func (p *AlignedPair) N() int {
	return len(p.X)
}

// Align joins a against b at exact timestamps shifted by lag. A positive
// lag compares a(t) to b(t+lag), i.e. "b occurs later than a". Timestamps
// are keyed by epoch milliseconds so equal instants always join regardless
// of wall-clock representation.
func Align(a, b *series.TimeSeries, lag time.Duration) *AlignedPair {
	pair := &AlignedPair{}
	if a == nil || b == nil || len(a.Points) == 0 || len(b.Points) == 0 {
		return pair
	}

	lookup := make(map[int64]float64, len(b.Points))
	for _, p := range b.Points {
		if p.Present() {
			lookup[p.Timestamp.UnixMilli()] = *p.Value
		}
	}

	shift := lag.Milliseconds()
	for _, p := range a.Points {
		if !p.Present() {
			continue
		}
		y, ok := lookup[p.Timestamp.UnixMilli()+shift]
		if !ok {
			continue
		}
		pair.Timestamps = append(pair.Timestamps, p.Timestamp)
		pair.X = append(pair.X, *p.Value)
		pair.Y = append(pair.Y, y)
	}
	return pair
}
