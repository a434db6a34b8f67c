// Package series provides public SDK types for the AgriPulse sensor
// analytics system. Time series are caller-owned, ordered, bucketed
// samples; the analytics engine never mutates them.
package series

import (
	"math"
	"time"
)

// Point is a single bucketed sample. Value is nil when the bucket has no
// reading (a gap); gaps contribute nothing to numeric computation.
// SampleCount records how many raw readings were averaged into the bucket.
type Point struct {
	Timestamp   time.Time `json:"timestamp"`
	Value       *float64  `json:"value,omitempty"`
	SampleCount int       `json:"sample_count"`
}

// Present reports whether the point carries a usable finite value.
func (p Point) Present() bool {
	return p.Value != nil && !math.IsNaN(*p.Value) && !math.IsInf(*p.Value, 0)
}

// TimeSeries is an ordered sequence of bucketed samples for one sensor.
// Points are sorted ascending by timestamp with no duplicate timestamps.
type TimeSeries struct {
	SeriesID string  `json:"series_id"`
	Unit     string  `json:"unit,omitempty"`
	Points   []Point `json:"points"`
}

// PresentCount returns the number of points with a finite value.
func (s *TimeSeries) PresentCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Present() {
			n++
		}
	}
	return n
}

// Event directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Polarity filters for event detection.
const (
	PolarityBoth = "both"
	PolarityUp   = "up"
	PolarityDown = "down"
)

// DetectedEvent is a single abrupt change in a series: the bucket where the
// first difference crossed the robust z-score threshold.
type DetectedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ZScore    float64   `json:"z_score"`
	Direction string    `json:"direction"`
	Delta     float64   `json:"delta"`
}

// SensorEvent pairs a detected event with the sensor it fired on.
type SensorEvent struct {
	SensorID string        `json:"sensor_id"`
	Event    DetectedEvent `json:"event"`
}

// CooccurrenceBucket is a timeline position where multiple sensors exhibit
// a detected event at the same (tolerance-adjusted) time.
// Score = PairWeight * SeveritySum, PairWeight = C(GroupSize, 2).
type CooccurrenceBucket struct {
	Timestamp    time.Time     `json:"timestamp"`
	SensorEvents []SensorEvent `json:"sensor_events"`
	GroupSize    int           `json:"group_size"`
	SeveritySum  float64       `json:"severity_sum"`
	PairWeight   float64       `json:"pair_weight"`
	Score        float64       `json:"score"`
}

// MatrixProfileResult holds the nearest-neighbor distance profile of a
// series against itself. Profile[i] is the minimum z-normalized distance
// from subsequence i to any subsequence outside its exclusion zone;
// ProfileIndex[i] is that neighbor's start offset.
type MatrixProfileResult struct {
	Window        int       `json:"window"`
	ExclusionZone int       `json:"exclusion_zone"`
	Profile       []float64 `json:"profile"`
	ProfileIndex  []int     `json:"profile_index"`
}

// Discovery strategies.
const (
	StrategyCorrelation  = "correlation"
	StrategyEvents       = "events"
	StrategyCooccurrence = "cooccurrence"
	StrategyEmbedding    = "embedding"
)

// Candidate confidence statuses, mapped from fixed confidence tiers.
const (
	StatusStrong   = "strong"
	StatusPossible = "possible"
	StatusWeak     = "weak"
)

// Badge tones, driven by score thresholds.
const (
	ToneStrong   = "strong"
	ToneModerate = "moderate"
	ToneWeak     = "weak"
	ToneCaveat   = "caveat"
)

// EvidenceBadge is a small display hint attached to a candidate, e.g.
// "Event match (F1)" or "Lag +3". Presentation decides how to render it.
type EvidenceBadge struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

// NormalizedCandidate is one entry of the merged, ranked candidate list.
// Rank is 1-based and dense within a single ranking call. Score is
// strategy-specific but comparable within its own strategy's sort policy.
type NormalizedCandidate struct {
	SensorID       string          `json:"sensor_id"`
	Score          float64         `json:"score"`
	ScoreLabel     string          `json:"score_label"`
	Rank           int             `json:"rank"`
	Strategy       string          `json:"strategy"`
	Status         string          `json:"status"`
	EvidenceBadges []EvidenceBadge `json:"evidence_badges"`
	RawPayload     any             `json:"raw_payload,omitempty"`
}

// EvidenceShare is one strategy's percentage contribution to a candidate's
// combined evidence, normalized to sum to 100 across strategies.
type EvidenceShare struct {
	Strategy string  `json:"strategy"`
	Percent  float64 `json:"percent"`
}
