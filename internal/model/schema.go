package model

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema versions of the submission payloads the front-ends have sent over
// time. The normalizer adapts each of them to the canonical Submission.
const (
	VersionRatings    = "v1-ratings"
	VersionAnswers    = "v2-answers"
	VersionSubtotals  = "v3-subtotals"
	VersionScores     = "v4-scores"
	VersionPillarSubs = "v5-pillar-subs"
	VersionCanonical  = "canonical"
)

//go:embed schemas/*.schema.json
var schemaFiles embed.FS

type versionSchema struct {
	version string
	// marker is the top-level key that identifies payloads aimed at this
	// version, used to explain strict-mode rejections.
	marker string
	schema *gojsonschema.Schema
}

// SchemaSet holds the compiled JSON schemas of every known payload version.
type SchemaSet struct {
	versions []versionSchema
}

var schemaMarkers = []struct{ version, marker string }{
	{VersionRatings, "ratings"},
	{VersionAnswers, "answers"},
	{VersionSubtotals, "subtotals"},
	{VersionScores, "scores"},
	{VersionPillarSubs, "pillars"},
	{VersionCanonical, "pillars"},
}

// LoadSchemas compiles the embedded payload schemas.
func LoadSchemas() (*SchemaSet, error) {
	set := &SchemaSet{}
	for _, m := range schemaMarkers {
		b, err := schemaFiles.ReadFile("schemas/" + m.version + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", m.version, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", m.version, err)
		}
		set.versions = append(set.versions, versionSchema{version: m.version, marker: m.marker, schema: s})
	}
	return set, nil
}

// MustLoadSchemas is LoadSchemas for package initialisation and tests; the
// schemas are embedded so a failure is a build defect.
func MustLoadSchemas() *SchemaSet {
	s, err := LoadSchemas()
	if err != nil {
		panic(err)
	}
	return s
}

// DetectVersions returns every schema version the payload conforms to, in
// declaration order.
func (s *SchemaSet) DetectVersions(m map[string]interface{}) []string {
	var out []string
	for _, v := range s.versions {
		if err := validate(v.schema, m); err == nil {
			out = append(out, v.version)
		}
	}
	return out
}

// Explain validates the payload against every version whose marker key is
// present and returns the collected violations, sorted for stable output.
func (s *SchemaSet) Explain(m map[string]interface{}) []string {
	var msgs []string
	for _, v := range s.versions {
		if _, ok := m[v.marker]; !ok {
			continue
		}
		if err := validate(v.schema, m); err != nil {
			msgs = append(msgs, fmt.Sprintf("%s: %v", v.version, err))
		}
	}
	sort.Strings(msgs)
	return msgs
}

// validate checks a generic map against a compiled schema.
func validate(schema *gojsonschema.Schema, m map[string]interface{}) error {
	res, err := schema.Validate(gojsonschema.NewGoLoader(m))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
