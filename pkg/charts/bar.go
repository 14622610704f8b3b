package charts

import (
	"fmt"
	"html/template"
	"math"
)

// Bar is one sub-theme: its strength next to its priority gap.
type Bar struct {
	Label    string
	Strength float64
	Gap      float64
	Rank     int
	Factor   float64
}

// BarChart compares strength and priority gap per sub-theme on one axis.
type BarChart struct {
	Title  string
	Colour string
	Max    float64
	// References are drawn as dashed horizontal guide lines.
	References []float64
	Bars       []Bar
}

const (
	barWidth     = 880.0
	barHeight    = 520.0
	barLeft      = 60.0
	barRight     = 20.0
	barTop       = 64.0
	barBottom    = 120.0
	barTickEvery = 5.0
)

// SVG draws the chart.
func (c BarChart) SVG() template.HTML {
	top := c.Max
	if top <= 0 {
		top = 25
	}
	plotW := barWidth - barLeft - barRight
	plotH := barHeight - barTop - barBottom
	y := func(v float64) float64 {
		v = math.Max(0, math.Min(top, v))
		return barTop + plotH*(1-v/top)
	}

	s := newSVG(barWidth, barHeight, c.Title)
	s.text(barWidth/2, 24, c.Title, "middle", 16, "#222222", true)

	// legend
	s.rect(barWidth-barRight-300, 36, 14, 14, c.Colour, 0.45)
	s.text(barWidth-barRight-280, 48, "Strength (0–25)", "start", 12, "#333333", false)
	s.rect(barWidth-barRight-150, 36, 14, 14, c.Colour, 0.95)
	s.text(barWidth-barRight-130, 48, "Priority Gap (0–25)", "start", 12, "#333333", false)

	for v := 0.0; v <= top; v += barTickEvery {
		s.line(barLeft, y(v), barLeft+plotW, y(v), "#E5E5E5", 0.6, false)
		s.text(barLeft-8, y(v)+4, fmt.Sprintf("%.0f", v), "end", 11, "#555555", false)
	}
	for _, ref := range c.References {
		s.line(barLeft, y(ref), barLeft+plotW, y(ref), "#666666", 0.8, true)
	}
	s.line(barLeft, barTop+plotH, barLeft+plotW, barTop+plotH, "#333333", 1, false)
	s.line(barLeft, barTop, barLeft, barTop+plotH, "#333333", 1, false)

	if n := len(c.Bars); n > 0 {
		group := plotW / float64(n)
		bw := group * 0.32
		for i, b := range c.Bars {
			center := barLeft + group*(float64(i)+0.5)

			sx := center - bw - 2
			s.rect(sx, y(b.Strength), bw, y(0)-y(b.Strength), c.Colour, 0.45)
			s.text(sx+bw/2, y(b.Strength)-4, value(b.Strength), "middle", 11, "#222222", false)

			gx := center + 2
			s.rect(gx, y(b.Gap), bw, y(0)-y(b.Gap), c.Colour, 0.95)
			s.text(gx+bw/2, y(b.Gap)-4, value(b.Gap), "middle", 11, "#222222", false)

			s.text(center, barTop+plotH+20, b.Label, "middle", 12, "#222222", false)
			s.text(center, barTop+plotH+38, fmt.Sprintf("rank %d → w%.2f", b.Rank, b.Factor), "middle", 10, "#555555", false)
		}
	}

	s.text(barWidth/2, barHeight-16,
		"0–25 scale: higher Strength is better; higher Gap needs attention (rank 1 = most important)",
		"middle", 11, "#555555", false)
	return s.html()
}

// value prints whole numbers without decimals and everything else with one.
func value(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.1f", f)
}
