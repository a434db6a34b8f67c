package series

import (
	"math"
	"testing"
	"time"
)

func TestPoint_Present(t *testing.T) {
	t.Parallel()

	val := func(v float64) *float64 { return &v }
	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"value", Point{Value: val(21.5)}, true},
		{"zero value", Point{Value: val(0)}, true},
		{"nil", Point{}, false},
		{"NaN", Point{Value: val(math.NaN())}, false},
		{"+Inf", Point{Value: val(math.Inf(1))}, false},
		{"-Inf", Point{Value: val(math.Inf(-1))}, false},
	}
	for _, tc := range cases {
		if got := tc.p.Present(); got != tc.want {
			t.Errorf("%s: Present() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTimeSeries_PresentCount(t *testing.T) {
	t.Parallel()

	v := 7.0
	nan := math.NaN()
	s := TimeSeries{
		SeriesID: "soil-1",
		Points: []Point{
			{Timestamp: time.Now(), Value: &v},
			{Timestamp: time.Now()},
			{Timestamp: time.Now(), Value: &nan},
			{Timestamp: time.Now(), Value: &v},
		},
	}
	if got := s.PresentCount(); got != 2 {
		t.Errorf("PresentCount() = %d, want 2", got)
	}
	var empty TimeSeries
	if got := empty.PresentCount(); got != 0 {
		t.Errorf("empty PresentCount() = %d, want 0", got)
	}
}
