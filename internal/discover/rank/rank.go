// Package rank normalizes heterogeneous strategy outputs into one ranked,
// explainable candidate list. Each strategy has its own score semantics
// and sort policy; ties always break by sensor ID ascending so repeated
// runs over the same inputs produce identical output. All numeric
// rounding happens in label helpers here, never in the numeric core.
package rank

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/croftlabs/agripulse/internal/discover/cooccur"
	"github.com/croftlabs/agripulse/internal/discover/events"
	"github.com/croftlabs/agripulse/pkg/series"
)

// Score thresholds for badge tone and candidate status.
const (
	strongCorrelation   = 0.7
	moderateCorrelation = 0.4
	strongF1            = 0.75
	moderateF1          = 0.4
)

// CorrelationCandidate is the raw correlation-strategy output for one
// candidate sensor: the coefficient at the best lag plus sweep metadata.
type CorrelationCandidate struct {
	SensorID   string
	R          float64
	N          int
	LagBuckets int
	LagSwept   bool
}

// Correlation ranks candidates by |r| descending, excluding the focus
// sensor itself. Candidates whose coefficient was not computable must be
// filtered out by the caller (there is no valid rank for "unknown").
func Correlation(focusID string, cands []CorrelationCandidate, interval time.Duration) []series.NormalizedCandidate {
	kept := cands[:0:0]
	for _, c := range cands {
		if c.SensorID == focusID {
			continue
		}
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ai, aj := math.Abs(kept[i].R), math.Abs(kept[j].R)
		if ai != aj {
			return ai > aj
		}
		return kept[i].SensorID < kept[j].SensorID
	})

	out := make([]series.NormalizedCandidate, 0, len(kept))
	for i, c := range kept {
		absR := math.Abs(c.R)
		badges := []series.EvidenceBadge{
			{Label: fmt.Sprintf("Correlation r=%.2f", c.R), Tone: correlationTone(absR)},
			{Label: fmt.Sprintf("Samples n=%d", c.N), Tone: series.ToneModerate},
		}
		badges = appendLagBadges(badges, c.LagBuckets, c.LagSwept, interval)

		out = append(out, series.NormalizedCandidate{
			SensorID:       c.SensorID,
			Score:          absR,
			ScoreLabel:     fmt.Sprintf("r = %.2f", c.R),
			Rank:           i + 1,
			Strategy:       series.StrategyCorrelation,
			Status:         statusForScore(absR, strongCorrelation, moderateCorrelation),
			EvidenceBadges: badges,
			RawPayload:     c,
		})
	}
	return out
}

// Events ranks event-match suggestions by F1 descending. The matcher
// already excludes candidates where F1 is undefined (both event sets
// empty).
func Events(sugs []events.Suggestion, interval time.Duration) []series.NormalizedCandidate {
	sorted := make([]events.Suggestion, len(sugs))
	copy(sorted, sugs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].F1 != sorted[j].F1 {
			return sorted[i].F1 > sorted[j].F1
		}
		if sorted[i].Overlap != sorted[j].Overlap {
			return sorted[i].Overlap > sorted[j].Overlap
		}
		return sorted[i].SensorID < sorted[j].SensorID
	})

	out := make([]series.NormalizedCandidate, 0, len(sorted))
	for i, s := range sorted {
		badges := []series.EvidenceBadge{
			{Label: fmt.Sprintf("Event match (F1) %.2f", s.F1), Tone: f1Tone(s.F1)},
			{Label: fmt.Sprintf("Shared events: %d", s.Overlap), Tone: series.ToneModerate},
		}
		badges = appendLagBadges(badges, s.LagBuckets, s.LagBuckets != 0, interval)

		out = append(out, series.NormalizedCandidate{
			SensorID:       s.SensorID,
			Score:          s.F1,
			ScoreLabel:     fmt.Sprintf("F1 = %.2f", s.F1),
			Rank:           i + 1,
			Strategy:       series.StrategyEvents,
			Status:         statusForScore(s.F1, strongF1, moderateF1),
			EvidenceBadges: badges,
			RawPayload:     s,
		})
	}
	return out
}

// Cooccurrence ranks candidate sensors by severity accumulated across the
// selected buckets they participate in (the focus sensor is excluded from
// its own candidate list).
func Cooccurrence(focusID string, res cooccur.Result) []series.NormalizedCandidate {
	type accum struct {
		severity float64
		buckets  int
	}
	bySensor := make(map[string]*accum)
	for _, b := range res.Buckets {
		for _, se := range b.SensorEvents {
			if se.SensorID == focusID {
				continue
			}
			a := bySensor[se.SensorID]
			if a == nil {
				a = &accum{}
				bySensor[se.SensorID] = a
			}
			a.severity += math.Abs(se.Event.ZScore)
			a.buckets++
		}
	}

	ids := make([]string, 0, len(bySensor))
	for id := range bySensor {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := bySensor[ids[i]], bySensor[ids[j]]
		if a.severity != b.severity {
			return a.severity > b.severity
		}
		return ids[i] < ids[j]
	})

	out := make([]series.NormalizedCandidate, 0, len(ids))
	for i, id := range ids {
		a := bySensor[id]
		status := series.StatusWeak
		switch {
		case a.buckets >= 3:
			status = series.StatusStrong
		case a.buckets >= 2:
			status = series.StatusPossible
		}
		out = append(out, series.NormalizedCandidate{
			SensorID:   id,
			Score:      a.severity,
			ScoreLabel: fmt.Sprintf("severity %.1f", a.severity),
			Rank:       i + 1,
			Strategy:   series.StrategyCooccurrence,
			Status:     status,
			EvidenceBadges: []series.EvidenceBadge{
				{Label: fmt.Sprintf("Shared buckets: %d", a.buckets), Tone: bucketTone(a.buckets)},
				{Label: fmt.Sprintf("Severity %.1f", a.severity), Tone: series.ToneModerate},
			},
			RawPayload: map[string]any{"severity": a.severity, "buckets": a.buckets},
		})
	}
	return out
}

// EmbeddingCandidate is an externally computed embedding-similarity score.
// AgriPulse only normalizes these payloads; the similarity computation
// itself lives outside this engine.
type EmbeddingCandidate struct {
	SensorID   string  `json:"sensor_id"`
	Similarity float64 `json:"similarity"`
}

// Embedding ranks externally supplied similarity scores descending.
func Embedding(focusID string, cands []EmbeddingCandidate) []series.NormalizedCandidate {
	kept := cands[:0:0]
	for _, c := range cands {
		if c.SensorID == focusID {
			continue
		}
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Similarity != kept[j].Similarity {
			return kept[i].Similarity > kept[j].Similarity
		}
		return kept[i].SensorID < kept[j].SensorID
	})

	out := make([]series.NormalizedCandidate, 0, len(kept))
	for i, c := range kept {
		out = append(out, series.NormalizedCandidate{
			SensorID:   c.SensorID,
			Score:      c.Similarity,
			ScoreLabel: fmt.Sprintf("similarity %.2f", c.Similarity),
			Rank:       i + 1,
			Strategy:   series.StrategyEmbedding,
			Status:     statusForScore(c.Similarity, strongCorrelation, moderateCorrelation),
			EvidenceBadges: []series.EvidenceBadge{
				{Label: fmt.Sprintf("Shape similarity %.2f", c.Similarity), Tone: correlationTone(c.Similarity)},
			},
			RawPayload: c,
		})
	}
	return out
}

// Merge concatenates per-strategy lists in a fixed presentation order.
// Ranks stay dense within each strategy; the union is not re-ranked.
func Merge(lists ...[]series.NormalizedCandidate) []series.NormalizedCandidate {
	order := map[string]int{
		series.StrategyCorrelation:  0,
		series.StrategyEvents:       1,
		series.StrategyCooccurrence: 2,
		series.StrategyEmbedding:    3,
	}
	var out []series.NormalizedCandidate
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := order[out[i].Strategy], order[out[j].Strategy]
		if oi != oj {
			return oi < oj
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}

// appendLagBadges adds a lag badge when a sweep selected a non-zero lag,
// plus a caveat when that lag sits near a multiple of 24 hours -- a likely
// diurnal alignment rather than a direct relationship.
func appendLagBadges(badges []series.EvidenceBadge, lagBuckets int, swept bool, interval time.Duration) []series.EvidenceBadge {
	if !swept || lagBuckets == 0 {
		return badges
	}
	badges = append(badges, series.EvidenceBadge{
		Label: fmt.Sprintf("Lag %+d buckets", lagBuckets),
		Tone:  series.ToneModerate,
	})
	if isDiurnalLag(lagBuckets, interval) {
		badges = append(badges, series.EvidenceBadge{
			Label: "Near 24h offset (possible diurnal alignment)",
			Tone:  series.ToneCaveat,
		})
	}
	return badges
}

// isDiurnalLag reports whether the lag is within one bucket of a non-zero
// multiple of 24 hours.
func isDiurnalLag(lagBuckets int, interval time.Duration) bool {
	if interval <= 0 || lagBuckets == 0 {
		return false
	}
	day := 24 * time.Hour
	lag := time.Duration(lagBuckets) * interval
	if lag < 0 {
		lag = -lag
	}
	if lag < day-interval {
		return false
	}
	rem := lag % day
	return rem <= interval || day-rem <= interval
}

func statusForScore(score, strong, moderate float64) string {
	switch {
	case score >= strong:
		return series.StatusStrong
	case score >= moderate:
		return series.StatusPossible
	default:
		return series.StatusWeak
	}
}

func correlationTone(absR float64) string {
	switch {
	case absR >= strongCorrelation:
		return series.ToneStrong
	case absR >= moderateCorrelation:
		return series.ToneModerate
	default:
		return series.ToneWeak
	}
}

func f1Tone(f1 float64) string {
	switch {
	case f1 >= strongF1:
		return series.ToneStrong
	case f1 >= moderateF1:
		return series.ToneModerate
	default:
		return series.ToneWeak
	}
}

func bucketTone(buckets int) string {
	switch {
	case buckets >= 3:
		return series.ToneStrong
	case buckets >= 2:
		return series.ToneModerate
	default:
		return series.ToneWeak
	}
}
