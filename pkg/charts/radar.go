package charts

import (
	"fmt"
	"html/template"
	"math"
)

// Spoke is one axis of the radar.
type Spoke struct {
	Label  string
	Value  float64
	Colour string
}

// Radar plots one value per spoke, starting at twelve o'clock and going
// clockwise.
type Radar struct {
	Title  string
	Max    float64
	Ticks  []float64
	Spokes []Spoke
}

const (
	radarWidth  = 640.0
	radarHeight = 660.0
	radarRadius = 220.0
)

// SVG draws the chart.
func (r Radar) SVG() template.HTML {
	top := r.Max
	if top <= 0 {
		top = 50
	}
	cx, cy := radarWidth/2, radarHeight/2+20

	s := newSVG(radarWidth, radarHeight, r.Title)
	s.text(cx, 28, r.Title, "middle", 15, "#222222", true)

	for _, t := range r.Ticks {
		rad := radarRadius * t / top
		s.circle(cx, cy, rad, "#D0D0D0")
		s.text(cx+4, cy-rad-2, fmt.Sprintf("%.0f", t), "start", 10, "#777777", false)
	}

	n := len(r.Spokes)
	if n == 0 {
		return s.html()
	}
	// point places v on spoke i; v is not clamped so labels can sit outside the rim.
	point := func(i int, v float64) (float64, float64) {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		rad := radarRadius * v / top
		return cx + rad*math.Cos(angle), cy + rad*math.Sin(angle)
	}

	points := make([][2]float64, n)
	for i, sp := range r.Spokes {
		ex, ey := point(i, top)
		s.line(cx, cy, ex, ey, "#C0C0C0", 0.8, false)

		lx, ly := point(i, top*1.12)
		anchor := "middle"
		switch {
		case lx > cx+1:
			anchor = "start"
		case lx < cx-1:
			anchor = "end"
		}
		s.text(lx, ly+5, sp.Label, anchor, 14, sp.Colour, true)

		px, py := point(i, math.Max(0, math.Min(top, sp.Value)))
		points[i] = [2]float64{px, py}
	}
	s.polygon(points, "#444444", "#999999", 0.25)
	for i, sp := range r.Spokes {
		s.text(points[i][0], points[i][1]-6, value(math.Round(sp.Value*10)/10), "middle", 11, "#222222", false)
	}
	return s.html()
}
