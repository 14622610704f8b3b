package model

import (
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strings"

	"life-alignment/internal/domain"
)

// Rank sources that are not schema versions of their own.
const (
	SourceImportanceSubthemes = "importance_subthemes"
	SourceImportance          = "importance"
	SourcePillarRank          = "pillar-rank"
	SourceMeta                = "meta"
)

// Normalizer turns loosely shaped payloads into canonical Submissions.
type Normalizer struct {
	catalog domain.Catalog
	schemas *SchemaSet
}

func NewNormalizer(catalog domain.Catalog, schemas *SchemaSet) *Normalizer {
	return &Normalizer{catalog: catalog, schemas: schemas}
}

// EmailFrom returns the trimmed email field, or "" when absent or not a string.
func EmailFrom(payload map[string]interface{}) string {
	s, _ := payload["email"].(string)
	return strings.TrimSpace(s)
}

type scoreRead struct {
	values   [domain.SubthemesPerPillar]float64
	problems []string
}

type rankRead struct {
	values   [domain.SubthemesPerPillar]int
	problems []string
}

// Adapters in priority order: the first one that finds data for a pillar wins.
var (
	scoreSources = []struct {
		name string
		read func(payload map[string]interface{}, key string) (scoreRead, bool)
	}{
		{VersionSubtotals, totalsAt("subtotals")},
		{VersionScores, totalsAt("scores")},
		{VersionPillarSubs, pillarSubs},
		{VersionCanonical, canonicalScores},
		{VersionRatings, flatRatings},
		{VersionAnswers, nestedAnswers},
	}

	rankSources = []struct {
		name string
		read func(payload map[string]interface{}, key string) (rankRead, bool)
	}{
		{SourceImportanceSubthemes, rankListAt(SourceImportanceSubthemes)},
		{SourceImportance, rankListAt(SourceImportance)},
		{VersionCanonical, canonicalRanks},
		{SourcePillarRank, pillarRank},
	}

	defaultRanks = [domain.SubthemesPerPillar]int{1, 2, 3, 4}
)

// Normalize resolves scores, ranks, labels and reflections for every pillar.
// In lenient mode the only error is ErrMissingEmail; in strict mode any
// defaulted, out-of-range or inconsistent value yields a *ValidationError.
func (n *Normalizer) Normalize(payload map[string]interface{}, mode Mode) (*Submission, error) {
	email := EmailFrom(payload)
	if email == "" {
		return nil, ErrMissingEmail
	}

	sub := &Submission{
		Email:      email,
		Provenance: make(map[domain.PillarKey]Provenance, 4),
	}
	if n.schemas != nil {
		sub.Versions = n.schemas.DetectVersions(payload)
	}

	var problems []string
	byPillar, general := n.reflections(payload)

	for i, spec := range n.catalog.Pillars() {
		key := string(spec.Key)
		prov := Provenance{Scores: SourceDefault, Ranks: SourceDefault}

		var scores [domain.SubthemesPerPillar]float64
		for _, src := range scoreSources {
			if r, ok := src.read(payload, key); ok {
				scores = r.values
				prov.Scores = src.name
				problems = append(problems, prefixed(key, r.problems)...)
				break
			}
		}

		ranks := defaultRanks
		for _, src := range rankSources {
			if r, ok := src.read(payload, key); ok {
				ranks = r.values
				prov.Ranks = src.name
				problems = append(problems, prefixed(key, r.problems)...)
				break
			}
		}

		label, subLabels, labelSource := n.labels(payload, spec)
		prov.Labels = labelSource

		p := Pillar{Key: spec.Key, Label: label, Reflections: byPillar[spec.Key]}
		for j := range p.Subthemes {
			p.Subthemes[j] = Subtheme{Label: subLabels[j], RawScore: scores[j], Rank: ranks[j]}
		}
		sub.Pillars[i] = p
		sub.Provenance[spec.Key] = prov

		if prov.Scores == SourceDefault {
			problems = append(problems, key+": no sub-theme scores found")
		}
		if prov.Ranks == SourceDefault {
			problems = append(problems, key+": no importance ranks found")
		} else if !isPermutation(ranks) {
			problems = append(problems, fmt.Sprintf("%s: ranks %v are not a permutation of 1-4", key, ranks))
		}
	}
	sub.Reflections = general
	sub.Warnings = problems

	if mode != ModeStrict {
		return sub, nil
	}

	if _, err := mail.ParseAddress(email); err != nil {
		problems = append(problems, fmt.Sprintf("email: %v", err))
	}
	if n.schemas != nil && len(sub.Versions) == 0 {
		problems = append(problems, "payload matches no known submission schema")
		problems = append(problems, n.schemas.Explain(payload)...)
	}
	if len(problems) > 0 {
		return sub, &ValidationError{Problems: problems}
	}
	return sub, nil
}

func prefixed(key string, problems []string) []string {
	out := make([]string, len(problems))
	for i, p := range problems {
		out[i] = key + "." + p
	}
	return out
}

func isPermutation(ranks [domain.SubthemesPerPillar]int) bool {
	var seen [domain.MaxRank + 1]bool
	for _, r := range ranks {
		if r < domain.MinRank || r > domain.MaxRank || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}

// totalsAt reads pre-aggregated 0-25 totals from payload[field][pillar].
func totalsAt(field string) func(map[string]interface{}, string) (scoreRead, bool) {
	return func(payload map[string]interface{}, key string) (scoreRead, bool) {
		v, _ := lookup(payload, field, key)
		list, ok := asList(v)
		if !ok || len(list) < domain.SubthemesPerPillar {
			return scoreRead{}, false
		}
		return readTotals(field, list), true
	}
}

func pillarSubs(payload map[string]interface{}, key string) (scoreRead, bool) {
	v, _ := lookup(payload, "pillars", key, "subs")
	list, ok := asList(v)
	if !ok || len(list) < domain.SubthemesPerPillar {
		return scoreRead{}, false
	}
	return readTotals("subs", list), true
}

func readTotals(field string, list []interface{}) scoreRead {
	var r scoreRead
	for i := range r.values {
		f, ok := toFloat(list[i])
		if !ok {
			r.problems = append(r.problems, fmt.Sprintf("%s[%d]: %v is not a number", field, i, list[i]))
			continue
		}
		if f < 0 || f > domain.MaxSubthemeScore {
			r.problems = append(r.problems, fmt.Sprintf("%s[%d]: %v outside 0-%d", field, i, f, domain.MaxSubthemeScore))
		}
		r.values[i] = clamp(f, 0, domain.MaxSubthemeScore)
	}
	return r
}

// canonicalSubthemes returns the four sub-theme objects of the canonical
// shape when every one of them carries field.
func canonicalSubthemes(payload map[string]interface{}, key, field string) ([]map[string]interface{}, bool) {
	v, _ := lookup(payload, "pillars", key, "subthemes")
	list, ok := asList(v)
	if !ok || len(list) != domain.SubthemesPerPillar {
		return nil, false
	}
	out := make([]map[string]interface{}, len(list))
	for i, item := range list {
		m, ok := asMap(item)
		if !ok {
			return nil, false
		}
		if _, ok := m[field]; !ok {
			return nil, false
		}
		out[i] = m
	}
	return out, true
}

func canonicalScores(payload map[string]interface{}, key string) (scoreRead, bool) {
	subs, ok := canonicalSubthemes(payload, key, "raw_score")
	if !ok {
		return scoreRead{}, false
	}
	list := make([]interface{}, len(subs))
	for i, m := range subs {
		list[i] = m["raw_score"]
	}
	return readTotals("raw_score", list), true
}

// flatRatings sums payload.ratings[pillar] in chunks of five item ratings.
func flatRatings(payload map[string]interface{}, key string) (scoreRead, bool) {
	v, _ := lookup(payload, "ratings", key)
	list, ok := asList(v)
	if !ok || len(list) < domain.SubthemesPerPillar*domain.ItemsPerSubtheme {
		return scoreRead{}, false
	}
	return chunkSum("ratings", list), true
}

// nestedAnswers reads payload.answers[pillar] either as four arrays of five
// ratings or as question objects ({qIndex, text, value}) ordered by qIndex.
func nestedAnswers(payload map[string]interface{}, key string) (scoreRead, bool) {
	v, _ := lookup(payload, "answers", key)
	list, ok := asList(v)
	if !ok {
		return scoreRead{}, false
	}

	if len(list) == domain.SubthemesPerPillar {
		var r scoreRead
		nested := true
		for i, item := range list {
			items, ok := asList(item)
			if !ok {
				nested = false
				break
			}
			if len(items) != domain.ItemsPerSubtheme {
				r.problems = append(r.problems, fmt.Sprintf("answers[%d]: %d ratings, want %d", i, len(items), domain.ItemsPerSubtheme))
			}
			sum, probs := sumItems(fmt.Sprintf("answers[%d]", i), items, domain.ItemsPerSubtheme)
			r.values[i] = sum
			r.problems = append(r.problems, probs...)
		}
		if nested {
			return r, true
		}
	}

	if len(list) < domain.SubthemesPerPillar*domain.ItemsPerSubtheme {
		return scoreRead{}, false
	}

	type answer struct {
		index float64
		value interface{}
	}
	answers := make([]answer, len(list))
	indexed := true
	for i, item := range list {
		m, ok := asMap(item)
		if !ok {
			answers[i] = answer{index: float64(i), value: item}
			indexed = false
			continue
		}
		answers[i].value = m["value"]
		if q, ok := toFloat(m["qIndex"]); ok {
			answers[i].index = q
		} else {
			answers[i].index = float64(i)
			indexed = false
		}
	}
	if indexed {
		sort.SliceStable(answers, func(a, b int) bool { return answers[a].index < answers[b].index })
	}
	values := make([]interface{}, len(answers))
	for i, a := range answers {
		values[i] = a.value
	}
	return chunkSum("answers", values), true
}

func chunkSum(field string, list []interface{}) scoreRead {
	var r scoreRead
	for i := range r.values {
		start := i * domain.ItemsPerSubtheme
		sum, probs := sumItems(field, list[start:start+domain.ItemsPerSubtheme], domain.ItemsPerSubtheme)
		r.values[i] = sum
		r.problems = append(r.problems, probs...)
	}
	return r
}

// sumItems adds at most limit item ratings, each clamped to 0-5.
func sumItems(field string, items []interface{}, limit int) (float64, []string) {
	var (
		sum      float64
		problems []string
	)
	for i, item := range items {
		if i >= limit {
			break
		}
		f, ok := toFloat(item)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s item %d: %v is not a number", field, i, item))
			continue
		}
		if f < 0 || f > domain.MaxItemRating {
			problems = append(problems, fmt.Sprintf("%s item %d: %v outside 0-%d", field, i, f, domain.MaxItemRating))
		}
		sum += clamp(f, 0, domain.MaxItemRating)
	}
	return clamp(sum, 0, domain.MaxSubthemeScore), problems
}

func rankListAt(field string) func(map[string]interface{}, string) (rankRead, bool) {
	return func(payload map[string]interface{}, key string) (rankRead, bool) {
		v, _ := lookup(payload, field, key)
		list, ok := asList(v)
		if !ok || len(list) != domain.SubthemesPerPillar {
			return rankRead{}, false
		}
		return readRanks(field, list), true
	}
}

func canonicalRanks(payload map[string]interface{}, key string) (rankRead, bool) {
	subs, ok := canonicalSubthemes(payload, key, "rank")
	if !ok {
		return rankRead{}, false
	}
	list := make([]interface{}, len(subs))
	for i, m := range subs {
		list[i] = m["rank"]
	}
	return readRanks("rank", list), true
}

// pillarRank broadcasts a single pillar-level importance to all four
// sub-themes, as the oldest front-end only asked for one rank per pillar.
func pillarRank(payload map[string]interface{}, key string) (rankRead, bool) {
	for _, field := range []string{SourceImportance, "pillar_importance"} {
		v, ok := lookup(payload, field, key)
		if !ok {
			continue
		}
		rank, problem, ok := toRank(v)
		if !ok {
			continue
		}
		r := rankRead{values: [domain.SubthemesPerPillar]int{rank, rank, rank, rank}}
		if problem != "" {
			r.problems = append(r.problems, field+": "+problem)
		}
		return r, true
	}
	return rankRead{}, false
}

func readRanks(field string, list []interface{}) rankRead {
	var r rankRead
	for i := range r.values {
		rank, problem, ok := toRank(list[i])
		if !ok {
			r.values[i] = domain.NeutralRank
			r.problems = append(r.problems, fmt.Sprintf("%s[%d]: %v is not a rank", field, i, list[i]))
			continue
		}
		if problem != "" {
			r.problems = append(r.problems, fmt.Sprintf("%s[%d]: %s", field, i, problem))
		}
		r.values[i] = rank
	}
	return r
}

// toRank rounds and clamps a numeric rank into 1-4, describing any repair.
func toRank(v interface{}) (int, string, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, "", false
	}
	rounded := math.Round(f)
	rank := int(clamp(rounded, domain.MinRank, domain.MaxRank))
	if rounded != f || float64(rank) != rounded {
		return rank, fmt.Sprintf("%v is not an integer in %d-%d", f, domain.MinRank, domain.MaxRank), true
	}
	return rank, "", true
}

// labels resolves a pillar's display label and sub-theme labels from
// meta.pillars, then the canonical shape, then the catalog.
func (n *Normalizer) labels(payload map[string]interface{}, spec domain.PillarSpec) (string, [domain.SubthemesPerPillar]string, string) {
	label, subs := spec.Label, spec.Subthemes

	if item, ok := metaPillar(payload, spec.Key); ok {
		if l := toString(item["label"]); l != "" {
			label = l
		}
		if list, ok := asList(item["subthemes"]); ok {
			for i := 0; i < len(subs) && i < len(list); i++ {
				if s := toString(list[i]); s != "" {
					subs[i] = s
				}
			}
		}
		return label, subs, SourceMeta
	}

	source := SourceDefault
	if p, ok := lookup(payload, "pillars", string(spec.Key)); ok {
		if pm, ok := asMap(p); ok {
			if l := toString(pm["label"]); l != "" {
				label = l
				source = VersionCanonical
			}
		}
	}
	if st, ok := canonicalSubthemes(payload, string(spec.Key), "label"); ok {
		for i, m := range st {
			if s := toString(m["label"]); s != "" {
				subs[i] = s
			}
		}
		source = VersionCanonical
	}
	return label, subs, source
}

// metaPillar finds the meta.pillars entry for key. Both the list form
// ([{key, label, subthemes}]) and a map keyed by pillar are accepted.
func metaPillar(payload map[string]interface{}, key domain.PillarKey) (map[string]interface{}, bool) {
	v, ok := lookup(payload, "meta", "pillars")
	if !ok {
		return nil, false
	}
	if m, ok := asMap(v); ok {
		item, ok := asMap(m[string(key)])
		return item, ok
	}
	list, _ := asList(v)
	for _, raw := range list {
		item, ok := asMap(raw)
		if !ok {
			continue
		}
		if domain.PillarKey(strings.ToLower(toString(item["key"]))) == key {
			return item, true
		}
	}
	return nil, false
}

// reflections splits payload.wildcards into per-pillar and general entries.
// Ids are visited in sorted order so the result is deterministic.
func (n *Normalizer) reflections(payload map[string]interface{}) (map[domain.PillarKey][]Reflection, []Reflection) {
	wc, _ := lookup(payload, "wildcards")
	m, ok := asMap(wc)
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	byPillar := map[domain.PillarKey][]Reflection{}
	var general []Reflection
	for _, id := range ids {
		text := toString(m[id])
		if text == "" {
			continue
		}
		r := Reflection{ID: id, Text: text}
		if key, ok := n.pillarForID(id); ok {
			byPillar[key] = append(byPillar[key], r)
			continue
		}
		general = append(general, r)
	}
	return byPillar, general
}

func (n *Normalizer) pillarForID(id string) (domain.PillarKey, bool) {
	lower := strings.ToLower(id)
	for _, key := range n.catalog.Keys() {
		k := string(key)
		if lower == k {
			return key, true
		}
		for _, sep := range []string{"_", "-", "."} {
			if strings.HasPrefix(lower, k+sep) {
				return key, true
			}
		}
	}
	return "", false
}
