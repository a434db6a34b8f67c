package events

import (
	"context"
	"sort"
	"time"

	"github.com/croftlabs/agripulse/pkg/series"
)

// MatchParams tunes cross-sensor event matching. Detection parameters are
// shared by the focus and every candidate.
type MatchParams struct {
	Interval             time.Duration
	ZThreshold           float64
	MinSeparationBuckets int
	Polarity             string
	MaxLagBuckets        int
	LagRefineTopK        int
}

// Suggestion scores one candidate sensor's event overlap with the focus.
// F1 = 2*overlap / (focus events + candidate events); LagBuckets is the
// candidate shift (in whole buckets) at which the score was achieved.
type Suggestion struct {
	SensorID        string  `json:"sensor_id"`
	F1              float64 `json:"f1"`
	Overlap         int     `json:"overlap"`
	LagBuckets      int     `json:"lag_buckets"`
	FocusEvents     int     `json:"focus_events"`
	CandidateEvents int     `json:"candidate_events"`
}

// Match scores every candidate against the focus series by event-set F1
// overlap. All candidates are scored at lag 0; only the top K by
// (F1, overlap, sensor ID) are then refined over [-MaxLagBuckets,
// +MaxLagBuckets], keeping the lag that maximizes (F1, overlap). A
// candidate where both sides have zero events is excluded entirely; when
// exactly one side is empty the candidate scores 0.
//
// Cancellation is checked between candidate evaluations; on cancellation
// the partial result is discarded and ctx.Err() is returned.
func Match(ctx context.Context, focus *series.TimeSeries, candidates []*series.TimeSeries, p MatchParams) ([]Suggestion, error) {
	if p.MaxLagBuckets < 0 {
		p.MaxLagBuckets = 0
	}
	if p.LagRefineTopK < 0 {
		p.LagRefineTopK = 0
	}
	dp := DetectParams{
		Interval:             p.Interval,
		ZThreshold:           p.ZThreshold,
		MinSeparationBuckets: p.MinSeparationBuckets,
		Polarity:             p.Polarity,
	}.normalized()

	focusEvents := Detect(focus, dp)
	focusTimes := make([]int64, len(focusEvents))
	for i, ev := range focusEvents {
		focusTimes[i] = ev.Timestamp.UnixMilli()
	}

	out := make([]Suggestion, 0, len(candidates))
	candSets := make(map[string]map[int64]struct{}, len(candidates))
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cand == nil {
			continue
		}
		evs := Detect(cand, dp)
		if len(focusEvents) == 0 && len(evs) == 0 {
			continue // F1 undefined, not zero
		}
		set := make(map[int64]struct{}, len(evs))
		for _, ev := range evs {
			set[ev.Timestamp.UnixMilli()] = struct{}{}
		}
		candSets[cand.SeriesID] = set

		f1, overlap := overlapF1(focusTimes, set, 0, dp.Interval)
		out = append(out, Suggestion{
			SensorID:        cand.SeriesID,
			F1:              f1,
			Overlap:         overlap,
			FocusEvents:     len(focusEvents),
			CandidateEvents: len(evs),
		})
	}

	sortSuggestions(out)

	// Refine only the current leaders; everyone else keeps the lag-0 result.
	topK := p.LagRefineTopK
	if topK > len(out) {
		topK = len(out)
	}
	for i := 0; i < topK; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := &out[i]
		set := candSets[s.SensorID]
		for lag := -p.MaxLagBuckets; lag <= p.MaxLagBuckets; lag++ {
			f1, overlap := overlapF1(focusTimes, set, lag, dp.Interval)
			if f1 > s.F1 || (f1 == s.F1 && overlap > s.Overlap) {
				s.F1 = f1
				s.Overlap = overlap
				s.LagBuckets = lag
			}
		}
	}

	sortSuggestions(out)
	return out, nil
}

// overlapF1 counts focus events whose timestamp, shifted by lag buckets,
// exactly matches a candidate event timestamp. Membership is exact; there
// is no tolerance at this stage.
func overlapF1(focusTimes []int64, candSet map[int64]struct{}, lagBuckets int, interval time.Duration) (float64, int) {
	shift := int64(lagBuckets) * interval.Milliseconds()
	overlap := 0
	for _, t := range focusTimes {
		if _, ok := candSet[t+shift]; ok {
			overlap++
		}
	}
	total := len(focusTimes) + len(candSet)
	if total == 0 {
		return 0, 0
	}
	return 2 * float64(overlap) / float64(total), overlap
}

func sortSuggestions(s []Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].F1 != s[j].F1 {
			return s[i].F1 > s[j].F1
		}
		if s[i].Overlap != s[j].Overlap {
			return s[i].Overlap > s[j].Overlap
		}
		return s[i].SensorID < s[j].SensorID
	})
}
