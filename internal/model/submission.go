package model

import (
	"fmt"
	"strings"

	"life-alignment/internal/domain"
)

// Mode selects how the normalizer treats missing or out-of-range data.
type Mode string

const (
	// ModeLenient substitutes neutral defaults and never rejects a payload.
	ModeLenient Mode = "lenient"
	// ModeStrict rejects payloads that would need any substitution.
	ModeStrict Mode = "strict"
)

// ParseMode accepts "lenient" or "strict" case-insensitively; empty means lenient.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLenient:
		return ModeLenient, nil
	case ModeStrict:
		return ModeStrict, nil
	}
	return "", fmt.Errorf("unknown validation mode %q", s)
}

// Subtheme is one measured sub-theme within a pillar.
type Subtheme struct {
	Label    string  `json:"label"`
	RawScore float64 `json:"raw_score"`
	Rank     int     `json:"rank"`
}

// Reflection is a free-text answer keyed by the front-end's wildcard id.
type Reflection struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Pillar holds the four sub-themes of one life pillar in questionnaire order.
type Pillar struct {
	Key         domain.PillarKey                    `json:"key"`
	Label       string                              `json:"label"`
	Subthemes   [domain.SubthemesPerPillar]Subtheme `json:"subthemes"`
	Reflections []Reflection                        `json:"reflections,omitempty"`
}

// Provenance names the payload source each part of a pillar was read from.
type Provenance struct {
	Scores string `json:"scores"`
	Ranks  string `json:"ranks"`
	Labels string `json:"labels"`
}

// SourceDefault marks values that were not present in the payload.
const SourceDefault = "default"

// Defaulted reports whether scores or ranks were fabricated.
func (p Provenance) Defaulted() bool {
	return p.Scores == SourceDefault || p.Ranks == SourceDefault
}

// Submission is the canonical, request-scoped form of a questionnaire.
type Submission struct {
	Email       string                          `json:"email"`
	Pillars     [4]Pillar                       `json:"pillars"`
	Reflections []Reflection                    `json:"reflections,omitempty"`
	Versions    []string                        `json:"versions"`
	Provenance  map[domain.PillarKey]Provenance `json:"provenance"`

	// Warnings lists repairs made while normalizing; strict mode turns
	// them into a ValidationError instead.
	Warnings []string `json:"warnings,omitempty"`
}

// Pillar returns the pillar with the given key.
func (s *Submission) Pillar(key domain.PillarKey) (*Pillar, bool) {
	for i := range s.Pillars {
		if s.Pillars[i].Key == key {
			return &s.Pillars[i], true
		}
	}
	return nil, false
}

// Canonical renders the submission in the canonical payload shape. Feeding
// the result back through Normalize yields an equal submission.
func (s *Submission) Canonical() map[string]interface{} {
	pillars := map[string]interface{}{}
	wildcards := map[string]interface{}{}
	for _, p := range s.Pillars {
		subs := make([]interface{}, 0, len(p.Subthemes))
		for _, st := range p.Subthemes {
			subs = append(subs, map[string]interface{}{
				"label":     st.Label,
				"raw_score": st.RawScore,
				"rank":      st.Rank,
			})
		}
		pillars[string(p.Key)] = map[string]interface{}{
			"label":     p.Label,
			"subthemes": subs,
		}
		for _, r := range p.Reflections {
			wildcards[r.ID] = r.Text
		}
	}
	for _, r := range s.Reflections {
		wildcards[r.ID] = r.Text
	}
	out := map[string]interface{}{
		"email":   s.Email,
		"pillars": pillars,
	}
	if len(wildcards) > 0 {
		out["wildcards"] = wildcards
	}
	return out
}
