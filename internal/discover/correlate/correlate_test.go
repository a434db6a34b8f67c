package correlate

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

func TestPearson_SelfCorrelationIsOne(t *testing.T) {
	t.Parallel()

	x := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	r, ok := Pearson(x, x)
	if !ok {
		t.Fatal("Pearson(x, x) not computable")
	}
	if math.Abs(r-1.0) > 1e-12 {
		t.Errorf("Pearson(x, x) = %v, want 1.0", r)
	}
}

func TestPearson_Symmetric(t *testing.T) {
	t.Parallel()

	x := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	y := []float64{2, 7, 1, 8, 2, 8, 1, 8}

	rxy, ok1 := Pearson(x, y)
	ryx, ok2 := Pearson(y, x)
	if !ok1 || !ok2 {
		t.Fatal("Pearson not computable")
	}
	if rxy != ryx {
		t.Errorf("Pearson(x,y) = %v, Pearson(y,x) = %v; want equal", rxy, ryx)
	}
}

func TestPearson_InsufficientData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x, y []float64
	}{
		{"empty", nil, nil},
		{"two points", []float64{1, 2}, []float64{3, 4}},
		{"zero x variance", []float64{5, 5, 5, 5}, []float64{1, 2, 3, 4}},
		{"zero y variance", []float64{1, 2, 3, 4}, []float64{7, 7, 7, 7}},
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Pearson(tt.x, tt.y); ok {
				t.Error("Pearson() ok = true, want false")
			}
		})
	}
}

func TestPearson_PerfectNegative(t *testing.T) {
	t.Parallel()

	x := []float64{1, 2, 3, 4, 5}
	y := []float64{10, 8, 6, 4, 2}
	r, ok := Pearson(x, y)
	if !ok {
		t.Fatal("not computable")
	}
	if math.Abs(r+1.0) > 1e-12 {
		t.Errorf("Pearson = %v, want -1.0", r)
	}
}

func TestSpearman_MonotoneTransformInvariance(t *testing.T) {
	t.Parallel()

	x := []float64{3, 1, 4, 1.5, 5, 9, 2, 6}
	y := []float64{2, 7, 1, 8, 2.5, 8.5, 1.1, 8.2}

	base, ok := Spearman(x, y)
	if !ok {
		t.Fatal("Spearman not computable")
	}

	// Strictly increasing transform of y must not change the coefficient.
	expY := make([]float64, len(y))
	for i, v := range y {
		expY[i] = math.Exp(v)
	}
	transformed, ok := Spearman(x, expY)
	if !ok {
		t.Fatal("Spearman(transformed) not computable")
	}
	if math.Abs(base-transformed) > 1e-12 {
		t.Errorf("Spearman changed under monotone transform: %v vs %v", base, transformed)
	}
}

func TestRanks_TiesGetAverageRank(t *testing.T) {
	t.Parallel()

	got := ranks([]float64{10, 20, 20, 30})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ranks[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPair_AppliesLag(t *testing.T) {
	t.Parallel()

	vals := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3}
	a := mkSeries("a", time.Minute, vals)

	// b is a shifted one bucket later.
	b := &series.TimeSeries{SeriesID: "b"}
	for i, v := range vals {
		val := v
		b.Points = append(b.Points, series.Point{
			Timestamp: t0.Add(time.Duration(i+1) * time.Minute),
			Value:     &val,
		})
	}

	res := Pair(a, b, MethodPearson, time.Minute)
	if !res.OK {
		t.Fatal("Pair not computable")
	}
	if res.N != len(vals) {
		t.Errorf("N = %d, want %d", res.N, len(vals))
	}
	if math.Abs(res.R-1.0) > 1e-12 {
		t.Errorf("R = %v, want 1.0", res.R)
	}
}

func TestLinearRegression_ExactLine(t *testing.T) {
	t.Parallel()

	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 5, 7, 9} // y = 2x + 1

	reg, ok := LinearRegression(x, y)
	if !ok {
		t.Fatal("regression not computable")
	}
	if math.Abs(reg.Slope-2) > 1e-12 {
		t.Errorf("Slope = %v, want 2", reg.Slope)
	}
	if math.Abs(reg.Intercept-1) > 1e-12 {
		t.Errorf("Intercept = %v, want 1", reg.Intercept)
	}
	if math.Abs(reg.R2-1) > 1e-12 {
		t.Errorf("R2 = %v, want 1", reg.R2)
	}
}

func TestLinearRegression_Degenerate(t *testing.T) {
	t.Parallel()

	if _, ok := LinearRegression([]float64{1}, []float64{2}); ok {
		t.Error("single point: ok = true, want false")
	}
	if _, ok := LinearRegression([]float64{5, 5, 5}, []float64{1, 2, 3}); ok {
		t.Error("zero x-variance: ok = true, want false")
	}
}

func TestLinearRegression_ConstantY(t *testing.T) {
	t.Parallel()

	reg, ok := LinearRegression([]float64{1, 2, 3, 4}, []float64{7, 7, 7, 7})
	if !ok {
		t.Fatal("constant y should still fit")
	}
	if reg.Slope != 0 || reg.Intercept != 7 || reg.R2 != 0 {
		t.Errorf("got slope=%v intercept=%v r2=%v, want 0/7/0", reg.Slope, reg.Intercept, reg.R2)
	}
}

func TestMethodNormalize(t *testing.T) {
	t.Parallel()

	if MethodSpearman.Normalize() != MethodSpearman {
		t.Error("spearman should stay spearman")
	}
	if Method("unknown").Normalize() != MethodPearson {
		t.Error("unknown method should fall back to pearson")
	}
}
