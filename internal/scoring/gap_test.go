package scoring_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"life-alignment/internal/domain"
	"life-alignment/internal/model"
	"life-alignment/internal/scoring"
)

func submission(scores [4][4]float64, ranks [4][4]int) *model.Submission {
	sub := &model.Submission{Email: "a@b.co"}
	for i, spec := range domain.DefaultCatalog().Pillars() {
		p := model.Pillar{Key: spec.Key, Label: spec.Label}
		for j := range p.Subthemes {
			p.Subthemes[j] = model.Subtheme{Label: spec.Subthemes[j], RawScore: scores[i][j], Rank: ranks[i][j]}
		}
		sub.Pillars[i] = p
	}
	return sub
}

func uniform(v float64) [4][4]float64 {
	var s [4][4]float64
	for i := range s {
		for j := range s[i] {
			s[i][j] = v
		}
	}
	return s
}

var identityRanks = [4][4]int{{1, 2, 3, 4}, {1, 2, 3, 4}, {1, 2, 3, 4}, {1, 2, 3, 4}}

func TestWeightAndGap(t *testing.T) {
	convey.Convey("Given the rank to weight mapping", t, func() {
		convey.Convey("Then rank 1 weighs 4 and rank 4 weighs 1", func() {
			convey.So(scoring.Weight(1), convey.ShouldEqual, 4)
			convey.So(scoring.Weight(2), convey.ShouldEqual, 3)
			convey.So(scoring.Weight(3), convey.ShouldEqual, 2)
			convey.So(scoring.Weight(4), convey.ShouldEqual, 1)
		})
		convey.Convey("Then out-of-range ranks are clamped", func() {
			convey.So(scoring.Weight(0), convey.ShouldEqual, 4)
			convey.So(scoring.Weight(9), convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a sub-theme score and rank", t, func() {
		convey.Convey("When the score is full", func() {
			convey.Convey("Then the gap is zero for every rank", func() {
				for rank := 1; rank <= 4; rank++ {
					convey.So(scoring.Gap(25, rank), convey.ShouldEqual, 0.0)
				}
			})
		})
		convey.Convey("When the score is zero and the rank is 1", func() {
			convey.Convey("Then the gap is the full 25", func() {
				convey.So(scoring.Gap(0, 1), convey.ShouldEqual, 25.0)
				convey.So(scoring.GapRaw(0, 1), convey.ShouldEqual, 100.0)
			})
		})
		convey.Convey("When the score is 10 and the rank is 2", func() {
			convey.Convey("Then the gap is (25-10)*3/4", func() {
				convey.So(scoring.Gap(10, 2), convey.ShouldAlmostEqual, 11.25)
			})
		})
		convey.Convey("When the score is outside 0-25", func() {
			convey.Convey("Then it is clamped before computing", func() {
				convey.So(scoring.Gap(-5, 1), convey.ShouldEqual, 25.0)
				convey.So(scoring.Gap(40, 1), convey.ShouldEqual, 0.0)
			})
		})
		convey.Convey("Then the gap shrinks strictly as the score rises", func() {
			for rank := 1; rank <= 4; rank++ {
				prev := scoring.Gap(0, rank)
				for raw := 1.0; raw <= 25; raw++ {
					g := scoring.Gap(raw, rank)
					convey.So(g, convey.ShouldBeLessThan, prev)
					convey.So(g, convey.ShouldBeBetweenOrEqual, 0.0, 25.0)
					prev = g
				}
			}
		})
		convey.Convey("Then a more important rank raises the gap below full score", func() {
			for raw := 0.0; raw < 25; raw += 2.5 {
				for rank := 2; rank <= 4; rank++ {
					convey.So(scoring.Gap(raw, rank-1), convey.ShouldBeGreaterThan, scoring.Gap(raw, rank))
				}
			}
			for rank := 2; rank <= 4; rank++ {
				convey.So(scoring.Gap(25, rank-1), convey.ShouldEqual, scoring.Gap(25, rank))
			}
		})
	})
}

func TestCompute(t *testing.T) {
	convey.Convey("Given every sub-theme at full strength", t, func() {
		res := scoring.Compute(submission(uniform(25), identityRanks))

		convey.Convey("Then every gap is zero", func() {
			for _, p := range res.Pillars {
				for _, st := range p.Subthemes {
					convey.So(st.Gap, convey.ShouldEqual, 0.0)
				}
			}
		})
		convey.Convey("Then the overall focus falls on the first sub-theme of the first pillar", func() {
			convey.So(res.Overall.Pillar, convey.ShouldEqual, domain.Wealth)
			convey.So(res.Overall.Subtheme.Index, convey.ShouldEqual, 0)
			convey.So(res.Overall.Subtheme.Gap, convey.ShouldEqual, 0.0)
		})
		convey.Convey("Then there are no focus areas to list", func() {
			convey.So(res.Focuses(5), convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given a single weak, top-ranked sub-theme", t, func() {
		scores := uniform(25)
		scores[1][2] = 0 // health, sleep & recovery
		ranks := identityRanks
		ranks[1] = [4]int{2, 3, 1, 4}
		res := scoring.Compute(submission(scores, ranks))

		convey.Convey("Then it is the overall focus with a gap of 25", func() {
			convey.So(res.Overall.Pillar, convey.ShouldEqual, domain.Health)
			convey.So(res.Overall.Subtheme.Index, convey.ShouldEqual, 2)
			convey.So(res.Overall.Subtheme.Gap, convey.ShouldEqual, 25.0)
			convey.So(res.Overall.Subtheme.Label, convey.ShouldEqual, "Sleep & Recovery")
		})
		convey.Convey("Then it heads the ranked list", func() {
			convey.So(res.Ranked, convey.ShouldHaveLength, 16)
			convey.So(res.Ranked[0].Subtheme.GapRaw, convey.ShouldEqual, 100.0)
			convey.So(res.Focuses(3), convey.ShouldHaveLength, 1)
		})
		convey.Convey("Then the pillar's top focus is the same sub-theme", func() {
			health, ok := res.Pillar(domain.Health)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(health.TopFocus().Index, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given equal gaps in two pillars", t, func() {
		scores := uniform(25)
		scores[1][2] = 5  // health, rank 3: (25-5)*2/4 = 10
		scores[3][0] = 15 // social, rank 1: (25-15)*4/4 = 10
		res := scoring.Compute(submission(scores, identityRanks))

		convey.Convey("Then the earlier pillar in catalog order wins", func() {
			convey.So(res.Overall.Pillar, convey.ShouldEqual, domain.Health)
			convey.So(res.Overall.Subtheme.Index, convey.ShouldEqual, 2)
			convey.So(res.Ranked[0].Pillar, convey.ShouldEqual, domain.Health)
			convey.So(res.Ranked[1].Pillar, convey.ShouldEqual, domain.Social)
		})
	})

	convey.Convey("Given equal gaps within one pillar", t, func() {
		scores := uniform(25)
		scores[0] = [4]float64{25, 10, 10, 25}
		ranks := identityRanks
		ranks[0] = [4]int{1, 2, 2, 3}
		res := scoring.Compute(submission(scores, ranks))

		convey.Convey("Then the lower sub-theme index wins", func() {
			wealth, _ := res.Pillar(domain.Wealth)
			convey.So(wealth.Top, convey.ShouldEqual, 1)
			convey.So(res.Overall.Subtheme.Index, convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a pillar with known scores and identity ranks", t, func() {
		scores := uniform(25)
		scores[0] = [4]float64{20, 15, 25, 10}
		res := scoring.Compute(submission(scores, identityRanks))
		wealth, _ := res.Pillar(domain.Wealth)

		convey.Convey("Then weights and factors follow the ranks", func() {
			// mean weight is 2.5
			convey.So(wealth.Subthemes[0].Weight, convey.ShouldEqual, 4)
			convey.So(wealth.Subthemes[0].Factor, convey.ShouldAlmostEqual, 1.6)
			convey.So(wealth.Subthemes[3].Factor, convey.ShouldAlmostEqual, 0.4)
		})
		convey.Convey("Then weighted strength is capped at 25", func() {
			convey.So(wealth.Subthemes[0].WeightedStrength, convey.ShouldEqual, 25.0)
			convey.So(wealth.Subthemes[1].WeightedStrength, convey.ShouldEqual, 18.0)
			convey.So(wealth.Subthemes[3].WeightedStrength, convey.ShouldEqual, 4.0)
		})
		convey.Convey("Then totals aggregate the sub-themes", func() {
			convey.So(wealth.RawTotal, convey.ShouldEqual, 70.0)
			convey.So(wealth.WeightedTotal, convey.ShouldAlmostEqual, 25+18+20+4)
			convey.So(wealth.WeightedScaled, convey.ShouldAlmostEqual, 67.0/2)
		})
		convey.Convey("Then gaps match the formula", func() {
			convey.So(wealth.Subthemes[0].Gap, convey.ShouldAlmostEqual, 5)
			convey.So(wealth.Subthemes[1].Gap, convey.ShouldAlmostEqual, 7.5)
			convey.So(wealth.Subthemes[2].Gap, convey.ShouldEqual, 0.0)
			convey.So(wealth.Subthemes[3].Gap, convey.ShouldAlmostEqual, 3.75)
			convey.So(wealth.Top, convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given all sub-themes at zero", t, func() {
		res := scoring.Compute(submission(uniform(0), identityRanks))

		convey.Convey("Then the rank-1 sub-theme of the first pillar leads with a full gap", func() {
			convey.So(res.Overall.Pillar, convey.ShouldEqual, domain.Wealth)
			convey.So(res.Overall.Subtheme.Index, convey.ShouldEqual, 0)
			convey.So(res.Overall.Subtheme.Gap, convey.ShouldEqual, 25.0)
		})
		convey.Convey("Then the ranked list is ordered by descending raw gap", func() {
			for i := 1; i < len(res.Ranked); i++ {
				convey.So(res.Ranked[i-1].Subtheme.GapRaw, convey.ShouldBeGreaterThanOrEqualTo, res.Ranked[i].Subtheme.GapRaw)
			}
			convey.So(res.Focuses(4), convey.ShouldHaveLength, 4)
		})
	})
}
