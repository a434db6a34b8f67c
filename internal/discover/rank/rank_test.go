package rank

import (
	"testing"
	"time"

	"github.com/croftlabs/agripulse/internal/discover/cooccur"
	"github.com/croftlabs/agripulse/internal/discover/events"
	"github.com/croftlabs/agripulse/pkg/series"
)

func TestCorrelation_RanksByAbsoluteR(t *testing.T) {
	t.Parallel()

	cands := []CorrelationCandidate{
		{SensorID: "focus", R: 1.0, N: 100},
		{SensorID: "weak", R: 0.2, N: 50},
		{SensorID: "neg", R: -0.9, N: 80},
		{SensorID: "pos", R: 0.6, N: 70},
	}
	got := Correlation("focus", cands, time.Minute)

	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3 (focus excluded)", len(got))
	}
	wantOrder := []string{"neg", "pos", "weak"}
	for i, id := range wantOrder {
		if got[i].SensorID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].SensorID, id)
		}
		if got[i].Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", id, got[i].Rank, i+1)
		}
		if got[i].Strategy != series.StrategyCorrelation {
			t.Errorf("%s strategy = %s", id, got[i].Strategy)
		}
	}

	if got[0].Status != series.StatusStrong {
		t.Errorf("|r|=0.9 status = %s, want strong", got[0].Status)
	}
	if got[1].Status != series.StatusPossible {
		t.Errorf("|r|=0.6 status = %s, want possible", got[1].Status)
	}
	if got[2].Status != series.StatusWeak {
		t.Errorf("|r|=0.2 status = %s, want weak", got[2].Status)
	}
	if got[0].ScoreLabel != "r = -0.90" {
		t.Errorf("score label = %q", got[0].ScoreLabel)
	}
	if got[0].EvidenceBadges[0].Label != "Correlation r=-0.90" {
		t.Errorf("badge = %q", got[0].EvidenceBadges[0].Label)
	}
}

func TestCorrelation_TieBreaksBySensorID(t *testing.T) {
	t.Parallel()

	cands := []CorrelationCandidate{
		{SensorID: "zeta", R: 0.5, N: 10},
		{SensorID: "alpha", R: -0.5, N: 10},
	}
	got := Correlation("focus", cands, time.Minute)
	if got[0].SensorID != "alpha" || got[1].SensorID != "zeta" {
		t.Errorf("order = %s, %s; want alpha, zeta", got[0].SensorID, got[1].SensorID)
	}
}

func TestCorrelation_LagBadges(t *testing.T) {
	t.Parallel()

	// Hourly buckets: lag 24 is a day, lag 23 is within one bucket of it,
	// lag 12 is not.
	cases := []struct {
		lag        int
		wantCaveat bool
	}{
		{24, true},
		{23, true},
		{-24, true},
		{12, false},
		{2, false},
		{48, true},
	}
	for _, tc := range cases {
		cands := []CorrelationCandidate{{SensorID: "a", R: 0.8, N: 48, LagBuckets: tc.lag, LagSwept: true}}
		got := Correlation("focus", cands, time.Hour)
		hasCaveat := false
		for _, b := range got[0].EvidenceBadges {
			if b.Tone == series.ToneCaveat {
				hasCaveat = true
			}
		}
		if hasCaveat != tc.wantCaveat {
			t.Errorf("lag %d: caveat = %v, want %v", tc.lag, hasCaveat, tc.wantCaveat)
		}
	}

	// Lag zero never earns a lag badge even when swept.
	cands := []CorrelationCandidate{{SensorID: "a", R: 0.8, N: 48, LagBuckets: 0, LagSwept: true}}
	got := Correlation("focus", cands, time.Hour)
	if len(got[0].EvidenceBadges) != 2 {
		t.Errorf("badges = %d, want 2 for lag 0", len(got[0].EvidenceBadges))
	}
}

func TestIsDiurnalLag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		lag      int
		interval time.Duration
		want     bool
	}{
		{0, time.Hour, false},
		{24, time.Hour, true},
		{25, time.Hour, true},
		{22, time.Hour, false},
		{1440, time.Minute, true},
		{720, time.Minute, false},
		{5, 0, false},
	}
	for _, tc := range cases {
		if got := isDiurnalLag(tc.lag, tc.interval); got != tc.want {
			t.Errorf("isDiurnalLag(%d, %v) = %v, want %v", tc.lag, tc.interval, got, tc.want)
		}
	}
}

func TestEvents_RanksByF1(t *testing.T) {
	t.Parallel()

	sugs := []events.Suggestion{
		{SensorID: "low", F1: 0.2, Overlap: 1},
		{SensorID: "high", F1: 0.8, Overlap: 4, LagBuckets: 2},
		{SensorID: "mid", F1: 0.5, Overlap: 2},
	}
	got := Events(sugs, time.Minute)

	wantOrder := []string{"high", "mid", "low"}
	for i, id := range wantOrder {
		if got[i].SensorID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].SensorID, id)
		}
	}
	if got[0].Status != series.StatusStrong || got[1].Status != series.StatusPossible || got[2].Status != series.StatusWeak {
		t.Errorf("statuses = %s, %s, %s", got[0].Status, got[1].Status, got[2].Status)
	}
	// Input order must be preserved.
	if sugs[0].SensorID != "low" {
		t.Error("input slice mutated")
	}
	// The shifted leader carries a lag badge.
	found := false
	for _, b := range got[0].EvidenceBadges {
		if b.Label == "Lag +2 buckets" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing lag badge in %+v", got[0].EvidenceBadges)
	}
}

func TestCooccurrence_AccumulatesAcrossBuckets(t *testing.T) {
	t.Parallel()

	ev := func(z float64) series.DetectedEvent { return series.DetectedEvent{ZScore: z} }
	res := cooccur.Result{
		Buckets: []series.CooccurrenceBucket{
			{SensorEvents: []series.SensorEvent{
				{SensorID: "focus", Event: ev(9)},
				{SensorID: "pump", Event: ev(4)},
				{SensorID: "valve", Event: ev(-6)},
			}},
			{SensorEvents: []series.SensorEvent{
				{SensorID: "focus", Event: ev(8)},
				{SensorID: "pump", Event: ev(-5)},
			}},
			{SensorEvents: []series.SensorEvent{
				{SensorID: "pump", Event: ev(3)},
			}},
		},
	}
	got := Cooccurrence("focus", res)

	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	// pump: severity 12 over 3 buckets; valve: severity 6 over 1.
	if got[0].SensorID != "pump" || got[0].Score != 12 {
		t.Errorf("top = %s score %v, want pump 12", got[0].SensorID, got[0].Score)
	}
	if got[0].Status != series.StatusStrong {
		t.Errorf("pump status = %s, want strong (3 buckets)", got[0].Status)
	}
	if got[1].SensorID != "valve" || got[1].Status != series.StatusWeak {
		t.Errorf("second = %s status %s, want valve weak", got[1].SensorID, got[1].Status)
	}
}

func TestEmbedding_RanksBySimilarity(t *testing.T) {
	t.Parallel()

	got := Embedding("focus", []EmbeddingCandidate{
		{SensorID: "focus", Similarity: 1.0},
		{SensorID: "b", Similarity: 0.5},
		{SensorID: "a", Similarity: 0.9},
	})
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].SensorID != "a" || got[1].SensorID != "b" {
		t.Errorf("order = %s, %s; want a, b", got[0].SensorID, got[1].SensorID)
	}
	if got[0].Status != series.StatusStrong || got[1].Status != series.StatusPossible {
		t.Errorf("statuses = %s, %s", got[0].Status, got[1].Status)
	}
}

func TestMerge_FixedStrategyOrder(t *testing.T) {
	t.Parallel()

	co := []series.NormalizedCandidate{{SensorID: "c1", Rank: 1, Strategy: series.StrategyCooccurrence}}
	corr := []series.NormalizedCandidate{
		{SensorID: "r1", Rank: 1, Strategy: series.StrategyCorrelation},
		{SensorID: "r2", Rank: 2, Strategy: series.StrategyCorrelation},
	}
	evl := []series.NormalizedCandidate{{SensorID: "e1", Rank: 1, Strategy: series.StrategyEvents}}

	got := Merge(co, evl, corr)
	wantOrder := []string{"r1", "r2", "e1", "c1"}
	if len(got) != len(wantOrder) {
		t.Fatalf("merged = %d, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].SensorID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].SensorID, id)
		}
	}
}
