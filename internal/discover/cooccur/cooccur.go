// Package cooccur discovers timeline buckets where multiple sensors
// misbehave at the same time: per-sensor events are smeared over a
// tolerance window onto a shared timeline, and the highest-scoring
// non-overlapping buckets are selected greedily.
package cooccur

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/croftlabs/agripulse/internal/discover/events"
	"github.com/croftlabs/agripulse/pkg/series"
)

// Params tunes co-occurrence discovery. Out-of-range values are clamped.
type Params struct {
	Interval             time.Duration
	ZThreshold           float64
	MinSeparationBuckets int
	Polarity             string
	MinSensors           int
	ToleranceBuckets     int
	FocusSensorID        string
	MaxResults           int
}

func (p Params) normalized() Params {
	if p.MinSensors < 2 {
		p.MinSensors = 2
	}
	if p.ToleranceBuckets < 0 {
		p.ToleranceBuckets = 0
	}
	if p.MaxResults <= 0 {
		p.MaxResults = 20
	}
	return p
}

// Result is the outcome of one co-occurrence search.
type Result struct {
	Buckets         []series.CooccurrenceBucket         `json:"buckets"`
	PerSensorEvents map[string][]series.DetectedEvent   `json:"per_sensor_events"`
}

// Find locates synchronized-anomaly buckets across the series set. A
// timeline index qualifies when at least MinSensors distinct sensors have
// an event within ToleranceBuckets of it (and the focus sensor is among
// them, when specified). Buckets are scored pairWeight * severitySum and
// selected greedily with suppression of neighbors within the tolerance so
// the same physical event is not double counted.
//
// Cancellation is checked between per-series detections; on cancellation
// the partial result is discarded and ctx.Err() is returned.
func Find(ctx context.Context, set []*series.TimeSeries, p Params) (Result, error) {
	p = p.normalized()
	res := Result{PerSensorEvents: make(map[string][]series.DetectedEvent)}

	// Master timeline: sorted union of present timestamps across all
	// series with at least 3 finite points.
	usable := set[:0:0]
	timesSet := make(map[int64]struct{})
	for _, s := range set {
		if s == nil || s.PresentCount() < 3 {
			continue
		}
		usable = append(usable, s)
		for _, pt := range s.Points {
			if pt.Present() {
				timesSet[pt.Timestamp.UnixMilli()] = struct{}{}
			}
		}
	}
	if len(usable) < p.MinSensors {
		return res, nil
	}

	timeline := make([]int64, 0, len(timesSet))
	for t := range timesSet {
		timeline = append(timeline, t)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i] < timeline[j] })
	indexOf := make(map[int64]int, len(timeline))
	for i, t := range timeline {
		indexOf[t] = i
	}

	dp := events.DetectParams{
		Interval:             p.Interval,
		ZThreshold:           p.ZThreshold,
		MinSeparationBuckets: p.MinSeparationBuckets,
		Polarity:             p.Polarity,
	}

	// Per-index accumulator: sensor -> strongest event within tolerance.
	marks := make([]map[string]series.DetectedEvent, len(timeline))
	for _, s := range usable {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		evs := events.Detect(s, dp)
		res.PerSensorEvents[s.SeriesID] = evs
		for _, ev := range evs {
			idx, ok := indexOf[ev.Timestamp.UnixMilli()]
			if !ok {
				continue
			}
			lo := idx - p.ToleranceBuckets
			hi := idx + p.ToleranceBuckets
			if lo < 0 {
				lo = 0
			}
			if hi > len(timeline)-1 {
				hi = len(timeline) - 1
			}
			for i := lo; i <= hi; i++ {
				if marks[i] == nil {
					marks[i] = make(map[string]series.DetectedEvent)
				}
				if prev, exists := marks[i][s.SeriesID]; !exists || math.Abs(ev.ZScore) > math.Abs(prev.ZScore) {
					marks[i][s.SeriesID] = ev
				}
			}
		}
	}

	type candidate struct {
		index  int
		bucket series.CooccurrenceBucket
	}
	var candidates []candidate
	for i, sensors := range marks {
		if len(sensors) < p.MinSensors {
			continue
		}
		if p.FocusSensorID != "" {
			if _, ok := sensors[p.FocusSensorID]; !ok {
				continue
			}
		}

		b := series.CooccurrenceBucket{
			Timestamp: time.UnixMilli(timeline[i]).UTC(),
			GroupSize: len(sensors),
		}
		ids := make([]string, 0, len(sensors))
		for id := range sensors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			ev := sensors[id]
			b.SensorEvents = append(b.SensorEvents, series.SensorEvent{SensorID: id, Event: ev})
			b.SeveritySum += math.Abs(ev.ZScore)
		}
		g := float64(b.GroupSize)
		b.PairWeight = g * (g - 1) / 2
		b.Score = b.PairWeight * b.SeveritySum
		if b.Score <= 0 {
			continue
		}
		candidates = append(candidates, candidate{index: i, bucket: b})
	}

	// Greedy non-overlapping selection: best score first, then larger
	// groups, then most recent; each pick suppresses its tolerance
	// neighborhood.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].bucket, candidates[j].bucket
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.GroupSize != b.GroupSize {
			return a.GroupSize > b.GroupSize
		}
		return a.Timestamp.After(b.Timestamp)
	})

	suppressed := make(map[int]struct{})
	for _, c := range candidates {
		if len(res.Buckets) >= p.MaxResults {
			break
		}
		if _, gone := suppressed[c.index]; gone {
			continue
		}
		res.Buckets = append(res.Buckets, c.bucket)
		for i := c.index - p.ToleranceBuckets; i <= c.index+p.ToleranceBuckets; i++ {
			suppressed[i] = struct{}{}
		}
	}
	return res, nil
}
