package rank

import (
	"sort"

	"github.com/croftlabs/agripulse/pkg/series"
)

// EvidenceMix converts weighted per-strategy component scores into
// percentage contributions summing to 100. Weights must already be
// applied by the caller. Each share is clamped to [0, 100]; a
// non-positive total means no mix is available and nil is returned.
func EvidenceMix(weighted map[string]float64) []series.EvidenceShare {
	var total float64
	for _, v := range weighted {
		if v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return nil
	}

	strategies := make([]string, 0, len(weighted))
	for s := range weighted {
		strategies = append(strategies, s)
	}
	sort.Strings(strategies)

	out := make([]series.EvidenceShare, 0, len(strategies))
	for _, s := range strategies {
		v := weighted[s]
		if v < 0 {
			v = 0
		}
		pct := v / total * 100
		if pct > 100 {
			pct = 100
		}
		out = append(out, series.EvidenceShare{Strategy: s, Percent: pct})
	}
	return out
}
