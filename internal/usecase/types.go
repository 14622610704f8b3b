package usecase

import (
	"html/template"

	"github.com/google/uuid"

	"life-alignment/internal/model"
	"life-alignment/internal/scoring"
)

// Outcome describes one finished report build.
type Outcome struct {
	ReportID   uuid.UUID
	Submission *model.Submission
	Result     scoring.Result
	// Emailed is false when delivery is disabled or failed softly.
	Emailed  bool
	HTMLPath string
	PDFPath  string
	// Warnings are the normalizer's findings; lenient builds still succeed with them.
	Warnings []string
}

// reportView is the data handed to report.html.
type reportView struct {
	Title        string
	Date         string
	IncludeIntro bool
	Radar        template.HTML
	Overview     []overviewRow
	Pillars      []pillarView
	Summary      summaryView
	Reflections  []model.Reflection
}

type overviewRow struct {
	Label          string
	Colour         string
	RawTotal       string
	WeightedTotal  string
	WeightedScaled string
	Ranks          string
}

type pillarView struct {
	Label       string
	Colour      string
	Chart       template.HTML
	Ranks       []rankView
	TopFocus    string
	Reflections []model.Reflection
}

type rankView struct {
	Label string
	Rank  int
}

type summaryView struct {
	HasGap      bool
	PillarLabel string
	Subtheme    string
	Strength    string
	Rank        int
	Focuses     []focusView
}

type focusView struct {
	PillarLabel string
	Subtheme    string
	Colour      string
	Strength    string
	Rank        int
	Gap         string
}
