// Package scoring computes priority gaps: how much an important but weak
// sub-theme deserves attention.
package scoring

import (
	"math"
	"sort"

	"life-alignment/internal/domain"
	"life-alignment/internal/model"
)

// MaxWeight is the weight of a rank-1 sub-theme. Dividing by it puts the
// gap back on the 0-25 strength scale.
const MaxWeight = domain.MaxRank

// radarScale is the top of the radar chart's axis.
const radarScale = 50.0

// Weight maps rank 1..4 to weight 4..1. Out-of-range ranks are clamped.
func Weight(rank int) int {
	return domain.MaxRank + 1 - clampRank(rank)
}

// GapRaw is the un-normalized gap, 0-100, used for cross-pillar ranking.
func GapRaw(raw float64, rank int) float64 {
	return (domain.MaxSubthemeScore - clampScore(raw)) * float64(Weight(rank))
}

// Gap is the priority gap on the 0-25 strength scale.
func Gap(raw float64, rank int) float64 {
	return GapRaw(raw, rank) / MaxWeight
}

func clampRank(rank int) int {
	if rank < domain.MinRank {
		return domain.MinRank
	}
	if rank > domain.MaxRank {
		return domain.MaxRank
	}
	return rank
}

func clampScore(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	return math.Max(0, math.Min(domain.MaxSubthemeScore, raw))
}

// SubthemeResult is one sub-theme with its derived figures.
type SubthemeResult struct {
	Index    int
	Label    string
	RawScore float64
	Rank     int
	Weight   int
	Gap      float64
	GapRaw   float64
	// Factor is the weight relative to the pillar's mean weight.
	Factor float64
	// WeightedStrength is the raw score scaled by Factor, capped at 25.
	WeightedStrength float64
}

// PillarResult aggregates one pillar.
type PillarResult struct {
	Key       domain.PillarKey
	Label     string
	Subthemes [domain.SubthemesPerPillar]SubthemeResult
	// Top indexes the sub-theme with the largest gap; ties go to the lowest index.
	Top            int
	RawTotal       float64
	WeightedTotal  float64
	WeightedScaled float64
}

// TopFocus returns the pillar's largest-gap sub-theme.
func (p PillarResult) TopFocus() SubthemeResult { return p.Subthemes[p.Top] }

// Focus locates one sub-theme across the whole report.
type Focus struct {
	Pillar      domain.PillarKey
	PillarLabel string
	Subtheme    SubthemeResult
}

// Result is the full computation for a submission.
type Result struct {
	Pillars [4]PillarResult
	// Overall is the largest gap across all sixteen sub-themes. Ties go to
	// the earliest pillar in catalog order, then the lowest sub-theme index.
	Overall Focus
	// Ranked lists every sub-theme by descending raw gap with the same tie-break.
	Ranked []Focus
}

// Pillar returns the result for key.
func (r Result) Pillar(key domain.PillarKey) (PillarResult, bool) {
	for _, p := range r.Pillars {
		if p.Key == key {
			return p, true
		}
	}
	return PillarResult{}, false
}

// Focuses returns up to n ranked entries that have a non-zero gap.
func (r Result) Focuses(n int) []Focus {
	var out []Focus
	for _, f := range r.Ranked {
		if len(out) == n || f.Subtheme.GapRaw <= 0 {
			break
		}
		out = append(out, f)
	}
	return out
}

// Compute derives every gap and aggregate of a normalized submission.
func Compute(sub *model.Submission) Result {
	var res Result
	res.Ranked = make([]Focus, 0, len(sub.Pillars)*domain.SubthemesPerPillar)

	best := -1.0
	for i, p := range sub.Pillars {
		pr := computePillar(p)
		res.Pillars[i] = pr
		for _, st := range pr.Subthemes {
			f := Focus{Pillar: pr.Key, PillarLabel: pr.Label, Subtheme: st}
			res.Ranked = append(res.Ranked, f)
			if st.Gap > best {
				best = st.Gap
				res.Overall = f
			}
		}
	}

	sort.SliceStable(res.Ranked, func(a, b int) bool {
		return res.Ranked[a].Subtheme.GapRaw > res.Ranked[b].Subtheme.GapRaw
	})
	return res
}

func computePillar(p model.Pillar) PillarResult {
	pr := PillarResult{Key: p.Key, Label: p.Label}

	var weightSum float64
	for _, st := range p.Subthemes {
		weightSum += float64(Weight(st.Rank))
	}
	meanWeight := weightSum / float64(len(p.Subthemes))
	if meanWeight == 0 {
		meanWeight = 1
	}

	for i, st := range p.Subthemes {
		raw := clampScore(st.RawScore)
		w := Weight(st.Rank)
		factor := float64(w) / meanWeight
		sr := SubthemeResult{
			Index:            i,
			Label:            st.Label,
			RawScore:         raw,
			Rank:             clampRank(st.Rank),
			Weight:           w,
			Gap:              Gap(raw, st.Rank),
			GapRaw:           GapRaw(raw, st.Rank),
			Factor:           factor,
			WeightedStrength: math.Min(domain.MaxSubthemeScore, round1(raw*factor)),
		}
		pr.Subthemes[i] = sr
		pr.RawTotal += raw
		pr.WeightedTotal += sr.WeightedStrength
		if sr.Gap > pr.Subthemes[pr.Top].Gap {
			pr.Top = i
		}
	}
	pr.WeightedScaled = pr.WeightedTotal / domain.MaxPillarScore * radarScale
	return pr
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
