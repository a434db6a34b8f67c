package align

import (
	"math"
	"testing"
	"time"

	"github.com/croftlabs/agripulse/pkg/series"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// mkSeries builds a bucketed series on a fixed grid. NaN marks a gap.
func mkSeries(id string, step time.Duration, vals []float64) *series.TimeSeries {
	s := &series.TimeSeries{SeriesID: id}
	for i, v := range vals {
		p := series.Point{Timestamp: t0.Add(time.Duration(i) * step), SampleCount: 1}
		if !math.IsNaN(v) {
			val := v
			p.Value = &val
		}
		s.Points = append(s.Points, p)
	}
	return s
}

func TestAlign_ExactTimestamps(t *testing.T) {
	t.Parallel()

	a := mkSeries("a", time.Minute, []float64{1, 2, 3, 4})
	b := mkSeries("b", time.Minute, []float64{10, 20, 30, 40})

	pair := Align(a, b, 0)

	if pair.N() != 4 {
		t.Fatalf("N() = %d, want 4", pair.N())
	}
	for i := range pair.X {
		if pair.Y[i] != pair.X[i]*10 {
			t.Errorf("pair[%d] = (%v, %v), want y = 10x", i, pair.X[i], pair.Y[i])
		}
	}
}

func TestAlign_GapsDropped(t *testing.T) {
	t.Parallel()

	gap := math.NaN()
	a := mkSeries("a", time.Minute, []float64{1, gap, 3, 4})
	b := mkSeries("b", time.Minute, []float64{10, 20, gap, 40})

	pair := Align(a, b, 0)

	// Only indices 0 and 3 have both values present.
	if pair.N() != 2 {
		t.Fatalf("N() = %d, want 2", pair.N())
	}
	if pair.X[0] != 1 || pair.Y[0] != 10 {
		t.Errorf("first pair = (%v, %v), want (1, 10)", pair.X[0], pair.Y[0])
	}
	if pair.X[1] != 4 || pair.Y[1] != 40 {
		t.Errorf("second pair = (%v, %v), want (4, 40)", pair.X[1], pair.Y[1])
	}
}

func TestAlign_PositiveLagShiftsCandidateLater(t *testing.T) {
	t.Parallel()

	a := mkSeries("a", time.Minute, []float64{1, 2, 3, 4})
	b := mkSeries("b", time.Minute, []float64{10, 20, 30, 40})

	// a(t) is compared against b(t + 1 bucket).
	pair := Align(a, b, time.Minute)

	if pair.N() != 3 {
		t.Fatalf("N() = %d, want 3", pair.N())
	}
	want := [][2]float64{{1, 20}, {2, 30}, {3, 40}}
	for i, w := range want {
		if pair.X[i] != w[0] || pair.Y[i] != w[1] {
			t.Errorf("pair[%d] = (%v, %v), want (%v, %v)", i, pair.X[i], pair.Y[i], w[0], w[1])
		}
	}
	// Timestamps are the focus side's.
	if !pair.Timestamps[0].Equal(t0) {
		t.Errorf("Timestamps[0] = %v, want %v", pair.Timestamps[0], t0)
	}
}

func TestAlign_NegativeLag(t *testing.T) {
	t.Parallel()

	a := mkSeries("a", time.Minute, []float64{1, 2, 3, 4})
	b := mkSeries("b", time.Minute, []float64{10, 20, 30, 40})

	pair := Align(a, b, -time.Minute)

	if pair.N() != 3 {
		t.Fatalf("N() = %d, want 3", pair.N())
	}
	if pair.X[0] != 2 || pair.Y[0] != 10 {
		t.Errorf("first pair = (%v, %v), want (2, 10)", pair.X[0], pair.Y[0])
	}
}

func TestAlign_EmptyInputs(t *testing.T) {
	t.Parallel()

	a := mkSeries("a", time.Minute, []float64{1, 2, 3})

	if got := Align(nil, a, 0); got.N() != 0 {
		t.Errorf("Align(nil, a) N() = %d, want 0", got.N())
	}
	if got := Align(a, &series.TimeSeries{SeriesID: "b"}, 0); got.N() != 0 {
		t.Errorf("Align(a, empty) N() = %d, want 0", got.N())
	}
}

func TestAlign_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	a := mkSeries("a", time.Minute, []float64{1, 2, 3})
	b := mkSeries("b", time.Minute, []float64{4, 5, 6})
	Align(a, b, time.Minute)

	if *a.Points[0].Value != 1 || *b.Points[0].Value != 4 {
		t.Error("Align mutated its inputs")
	}
	if len(a.Points) != 3 || len(b.Points) != 3 {
		t.Error("Align changed input lengths")
	}
}
