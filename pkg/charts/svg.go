// Package charts draws the report's bar and radar charts as inline SVG so the
// HTML page renders them without scripts or network access.
package charts

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

// svg accumulates elements of one drawing.
type svg struct {
	b strings.Builder
}

func newSVG(width, height float64, title string) *svg {
	s := &svg{}
	fmt.Fprintf(&s.b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" role="img" aria-label="%s">`,
		num(width), num(height), esc(title))
	return s
}

func (s *svg) line(x1, y1, x2, y2 float64, stroke string, width float64, dashed bool) {
	dash := ""
	if dashed {
		dash = ` stroke-dasharray="6 4"`
	}
	fmt.Fprintf(&s.b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"%s/>`,
		num(x1), num(y1), num(x2), num(y2), esc(stroke), num(width), dash)
}

func (s *svg) rect(x, y, w, h float64, fill string, opacity float64) {
	fmt.Fprintf(&s.b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" fill-opacity="%s"/>`,
		num(x), num(y), num(w), num(h), esc(fill), num(opacity))
}

func (s *svg) circle(cx, cy, r float64, stroke string) {
	fmt.Fprintf(&s.b, `<circle cx="%s" cy="%s" r="%s" fill="none" stroke="%s" stroke-width="0.8"/>`,
		num(cx), num(cy), num(r), esc(stroke))
}

func (s *svg) polygon(points [][2]float64, stroke, fill string, fillOpacity float64) {
	pts := make([]string, len(points))
	for i, p := range points {
		pts[i] = num(p[0]) + "," + num(p[1])
	}
	fmt.Fprintf(&s.b, `<polygon points="%s" stroke="%s" stroke-width="2" fill="%s" fill-opacity="%s"/>`,
		strings.Join(pts, " "), esc(stroke), esc(fill), num(fillOpacity))
}

// text anchors are "start", "middle" or "end".
func (s *svg) text(x, y float64, content, anchor string, size float64, fill string, bold bool) {
	weight := ""
	if bold {
		weight = ` font-weight="bold"`
	}
	fmt.Fprintf(&s.b, `<text x="%s" y="%s" text-anchor="%s" font-size="%s" fill="%s"%s>%s</text>`,
		num(x), num(y), anchor, num(size), esc(fill), weight, esc(content))
}

func (s *svg) html() template.HTML {
	s.b.WriteString(`</svg>`)
	// Every dynamic string went through esc; numbers through num.
	return template.HTML(s.b.String()) // #nosec G203
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func esc(s string) string {
	return template.HTMLEscapeString(s)
}
