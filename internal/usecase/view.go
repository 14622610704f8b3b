package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"life-alignment/internal/domain"
	"life-alignment/internal/model"
	"life-alignment/internal/scoring"
	"life-alignment/pkg/charts"
)

const (
	reportTitle = "Life Alignment Diagnostic"
	// summaryFocuses caps the ranked table on the summary page.
	summaryFocuses = 3
)

var (
	barReferences = []float64{12, 18}
	radarTicks    = []float64{10, 20, 30, 40, 50}
)

func buildView(catalog domain.Catalog, sub *model.Submission, res scoring.Result, now time.Time, intro bool) reportView {
	v := reportView{
		Title:        reportTitle,
		Date:         now.Format("2 January 2006"),
		IncludeIntro: intro,
		Reflections:  sub.Reflections,
	}

	radar := charts.Radar{
		Title: "Weighted Alignment (0–50)",
		Max:   domain.MaxPillarScore / 2,
		Ticks: radarTicks,
	}

	for i, pr := range res.Pillars {
		colour := catalog.Colour(pr.Key)
		radar.Spokes = append(radar.Spokes, charts.Spoke{Label: pr.Label, Value: pr.WeightedScaled, Colour: colour})

		ranks := make([]string, len(pr.Subthemes))
		pv := pillarView{Label: pr.Label, Colour: colour, Reflections: sub.Pillars[i].Reflections}
		chart := charts.BarChart{
			Title:      pr.Label + ": Strength vs Priority Gap",
			Colour:     colour,
			Max:        domain.MaxSubthemeScore,
			References: barReferences,
		}
		for j, st := range pr.Subthemes {
			ranks[j] = strconv.Itoa(st.Rank)
			pv.Ranks = append(pv.Ranks, rankView{Label: st.Label, Rank: st.Rank})
			chart.Bars = append(chart.Bars, charts.Bar{
				Label:    st.Label,
				Strength: st.RawScore,
				Gap:      round1(st.Gap),
				Rank:     st.Rank,
				Factor:   st.Factor,
			})
		}
		pv.Chart = chart.SVG()
		if top := pr.TopFocus(); top.GapRaw > 0 {
			pv.TopFocus = fmt.Sprintf("%s (gap %s)", top.Label, figure(top.Gap))
		}
		v.Pillars = append(v.Pillars, pv)

		v.Overview = append(v.Overview, overviewRow{
			Label:          pr.Label,
			Colour:         colour,
			RawTotal:       figure(pr.RawTotal),
			WeightedTotal:  figure(pr.WeightedTotal),
			WeightedScaled: figure(pr.WeightedScaled),
			Ranks:          strings.Join(ranks, ", "),
		})
	}
	v.Radar = radar.SVG()
	v.Summary = buildSummary(catalog, res)
	return v
}

func buildSummary(catalog domain.Catalog, res scoring.Result) summaryView {
	top := res.Overall
	s := summaryView{
		HasGap:      top.Subtheme.GapRaw > 0,
		PillarLabel: top.PillarLabel,
		Subtheme:    top.Subtheme.Label,
		Strength:    figure(top.Subtheme.RawScore),
		Rank:        top.Subtheme.Rank,
	}
	for _, f := range res.Focuses(summaryFocuses) {
		s.Focuses = append(s.Focuses, focusView{
			PillarLabel: f.PillarLabel,
			Subtheme:    f.Subtheme.Label,
			Colour:      catalog.Colour(f.Pillar),
			Strength:    figure(f.Subtheme.RawScore),
			Rank:        f.Subtheme.Rank,
			Gap:         figure(f.Subtheme.Gap),
		})
	}
	return s
}

// figure prints whole numbers bare and everything else with one decimal.
func figure(f float64) string {
	f = round1(f)
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
