package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"life-alignment/internal/domain"
	"life-alignment/internal/model"
	"life-alignment/internal/scoring"
)

type fakeRenderer struct {
	mu      sync.Mutex
	calls   int
	html    string
	results []renderResult
}

type renderResult struct {
	pdf []byte
	err error
}

func (r *fakeRenderer) RenderHTMLToPDF(_ context.Context, html string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.html = html
	i := r.calls
	r.calls++
	if len(r.results) == 0 {
		return []byte("%PDF-1.7 fake"), nil
	}
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i].pdf, r.results[i].err
}

type fakeMailer struct {
	to, subject, body, filename string
	content                     []byte
	sent                        int
	err                         error
}

func (m *fakeMailer) SendWithAttachment(_ context.Context, to, subject, body, filename string, content []byte) error {
	m.sent++
	m.to, m.subject, m.body, m.filename, m.content = to, subject, body, filename, content
	return m.err
}

type fakeRepo struct {
	statuses []string
	last     domain.ReportJob
	err      error
}

func (r *fakeRepo) Save(_ context.Context, j *domain.ReportJob) error {
	r.statuses = append(r.statuses, j.Status)
	r.last = *j
	return r.err
}

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newTestProcessor(t *testing.T, r Renderer, m Mailer, repo JobsRepo, opts ...Option) *Processor {
	t.Helper()
	n := model.NewNormalizer(domain.DefaultCatalog(), model.MustLoadSchemas())
	base := []Option{
		WithOutputDir(t.TempDir()),
		WithRenderRetry(3, time.Millisecond),
		WithClock(func() time.Time { return fixedNow }),
	}
	p, err := NewProcessor(r, m, repo, n, append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func subtotalsPayload() map[string]interface{} {
	return map[string]interface{}{
		"email": "someone@example.com",
		"subtotals": map[string]interface{}{
			"wealth": []interface{}{20.0, 15.0, 25.0, 10.0},
			"health": []interface{}{5.0, 25.0, 25.0, 25.0},
			"self":   []interface{}{25.0, 25.0, 25.0, 25.0},
			"social": []interface{}{12.0, 18.0, 24.0, 6.0},
		},
		"importance_subthemes": map[string]interface{}{
			"wealth": []interface{}{1.0, 2.0, 3.0, 4.0},
			"health": []interface{}{1.0, 2.0, 3.0, 4.0},
			"self":   []interface{}{4.0, 3.0, 2.0, 1.0},
			"social": []interface{}{2.0, 1.0, 4.0, 3.0},
		},
		"wildcards": map[string]interface{}{
			"health_1": "I want to sleep more.",
			"general":  "Thanks for the questionnaire.",
		},
	}
}

func TestGenerateDelivers(t *testing.T) {
	renderer := &fakeRenderer{}
	mailer := &fakeMailer{}
	repo := &fakeRepo{}
	p := newTestProcessor(t, renderer, mailer, repo, WithEmail("", "Sam"))

	out, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)

	assert.True(t, out.Emailed)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, 1, mailer.sent)
	assert.Equal(t, "someone@example.com", mailer.to)
	assert.Equal(t, defaultSubject, mailer.subject)
	assert.Equal(t, attachmentName, mailer.filename)
	assert.True(t, strings.HasPrefix(string(mailer.content), "%PDF"))
	assert.Contains(t, mailer.body, "Warm regards,\nSam\n")

	// health sub-theme 1: (25-5)*4/4 = 20 is the largest gap
	assert.Equal(t, domain.Health, out.Result.Overall.Pillar)
	assert.Equal(t, 0, out.Result.Overall.Subtheme.Index)
	assert.InDelta(t, 20.0, out.Result.Overall.Subtheme.Gap, 1e-9)

	assert.Equal(t, []string{domain.StatusDelivered}, repo.statuses)
	assert.Equal(t, "Health / Fitness & Movement", repo.last.Metadata["top_focus"])
	assert.Empty(t, repo.last.PDFPath)

	// artifacts are removed unless kept
	_, statErr := os.Stat(filepath.Dir(out.PDFPath))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateRendersReportPages(t *testing.T) {
	renderer := &fakeRenderer{}
	p := newTestProcessor(t, renderer, nil, nil)

	_, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)

	html := renderer.html
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<head><style>")
	assert.Contains(t, html, "About this report")
	assert.Contains(t, html, "4 May 2026")
	assert.Equal(t, 4, strings.Count(html, `class="page pillar"`))
	assert.Contains(t, html, "<svg")
	assert.Contains(t, html, "I want to sleep more.")
	assert.Contains(t, html, "Thanks for the questionnaire.")
	assert.Contains(t, html, "Fitness &amp; Movement")
	assert.Contains(t, html, "Priority Focus Summary")
}

func TestGenerateWithoutIntro(t *testing.T) {
	renderer := &fakeRenderer{}
	p := newTestProcessor(t, renderer, nil, nil, WithIntro(false))

	_, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)
	assert.NotContains(t, renderer.html, "About this report")
}

func TestGenerateAllFullScoresHasNoGap(t *testing.T) {
	payload := subtotalsPayload()
	full := []interface{}{25.0, 25.0, 25.0, 25.0}
	payload["subtotals"] = map[string]interface{}{"wealth": full, "health": full, "self": full, "social": full}

	renderer := &fakeRenderer{}
	p := newTestProcessor(t, renderer, nil, nil)
	out, err := p.Generate(context.Background(), payload, model.ModeLenient)
	require.NoError(t, err)

	assert.Zero(t, out.Result.Overall.Subtheme.Gap)
	assert.Equal(t, domain.Wealth, out.Result.Overall.Pillar)
	assert.Contains(t, renderer.html, "No priority gap detected")
}

func TestGenerateRetriesInvalidPDF(t *testing.T) {
	renderer := &fakeRenderer{results: []renderResult{
		{err: errors.New("chrome crashed")},
		{pdf: []byte("<html>not a pdf")},
		{pdf: []byte("%PDF-1.4 ok")},
	}}
	mailer := &fakeMailer{}
	p := newTestProcessor(t, renderer, mailer, nil)

	out, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)
	assert.Equal(t, 3, renderer.calls)
	assert.True(t, out.Emailed)
	assert.Equal(t, "%PDF-1.4 ok", string(mailer.content))
}

func TestGenerateRenderFailureSendsNothing(t *testing.T) {
	renderer := &fakeRenderer{results: []renderResult{{err: errors.New("chrome missing")}}}
	mailer := &fakeMailer{}
	repo := &fakeRepo{}
	p := newTestProcessor(t, renderer, mailer, repo)

	out, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrRender)
	assert.Equal(t, 3, renderer.calls)
	assert.Zero(t, mailer.sent)
	assert.Equal(t, []string{domain.StatusRenderFailed}, repo.statuses)
	assert.Contains(t, repo.last.Error, "chrome missing")
}

func TestGenerateDeliveryFailureIsSoft(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp: 421 try later")}
	repo := &fakeRepo{}
	p := newTestProcessor(t, &fakeRenderer{}, mailer, repo)

	out, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)
	assert.False(t, out.Emailed)
	assert.Equal(t, []string{domain.StatusDeliveryFailed}, repo.statuses)
}

func TestGenerateDeliveryFailureFatal(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp: 421 try later")}
	p := newTestProcessor(t, &fakeRenderer{}, mailer, nil, WithDeliveryFailureFatal(true))

	out, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	assert.ErrorIs(t, err, ErrDelivery)
	require.NotNil(t, out)
	assert.False(t, out.Emailed)
}

func TestGenerateMissingEmail(t *testing.T) {
	renderer := &fakeRenderer{}
	repo := &fakeRepo{}
	p := newTestProcessor(t, renderer, &fakeMailer{}, repo)

	payload := subtotalsPayload()
	delete(payload, "email")
	_, err := p.Generate(context.Background(), payload, model.ModeLenient)

	assert.ErrorIs(t, err, model.ErrMissingEmail)
	assert.Zero(t, renderer.calls)
	assert.Empty(t, repo.statuses)
}

func TestGenerateStrictRejects(t *testing.T) {
	renderer := &fakeRenderer{}
	repo := &fakeRepo{}
	p := newTestProcessor(t, renderer, nil, repo)

	_, err := p.Generate(context.Background(), map[string]interface{}{"email": "someone@example.com"}, model.ModeStrict)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Problems)
	assert.Zero(t, renderer.calls)
	assert.Equal(t, []string{domain.StatusRejected}, repo.statuses)
}

func TestGenerateLenientEmptyPayloadWarns(t *testing.T) {
	renderer := &fakeRenderer{}
	p := newTestProcessor(t, renderer, nil, nil)

	out, err := p.Generate(context.Background(), map[string]interface{}{"email": "someone@example.com"}, model.ModeLenient)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Warnings)
	assert.Equal(t, 1, renderer.calls)
}

func TestGenerateRepoFailureIgnored(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	p := newTestProcessor(t, &fakeRenderer{}, &fakeMailer{}, repo)

	out, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)
	assert.True(t, out.Emailed)
}

func TestGenerateKeepsArtifacts(t *testing.T) {
	repo := &fakeRepo{}
	p := newTestProcessor(t, &fakeRenderer{}, nil, repo, WithKeepArtifacts(true))

	out, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)

	pdf, err := os.ReadFile(out.PDFPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	_, err = os.Stat(out.HTMLPath)
	assert.NoError(t, err)
	assert.Equal(t, out.PDFPath, repo.last.PDFPath)
	assert.Equal(t, out.ReportID.String(), filepath.Base(filepath.Dir(out.PDFPath)))
	assert.Equal(t, domain.StatusRendered, repo.last.Status)
}

func TestCustomTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"report.html": {Data: []byte(`<html><head></head><body>{{.Title}} {{.Summary.PillarLabel}}</body></html>`)},
	}
	renderer := &fakeRenderer{}
	p := newTestProcessor(t, renderer, nil, nil, WithTemplates(fsys))

	_, err := p.Generate(context.Background(), subtotalsPayload(), model.ModeLenient)
	require.NoError(t, err)
	assert.Equal(t, "<html><head></head><body>Life Alignment Diagnostic Health</body></html>", renderer.html)

	_, err = NewProcessor(renderer, nil, nil, model.NewNormalizer(domain.DefaultCatalog(), nil), WithTemplates(fstest.MapFS{}))
	assert.Error(t, err)
}

func TestNewProcessorRequiresCollaborators(t *testing.T) {
	n := model.NewNormalizer(domain.DefaultCatalog(), nil)
	_, err := NewProcessor(nil, nil, nil, n)
	assert.Error(t, err)
	_, err = NewProcessor(&fakeRenderer{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestFigure(t *testing.T) {
	assert.Equal(t, "20", figure(20))
	assert.Equal(t, "12.5", figure(12.5))
	assert.Equal(t, "3.3", figure(10.0/3))
	assert.Equal(t, "0", figure(0.04))
}

func TestSummaryListsThreeFocusAreas(t *testing.T) {
	n := model.NewNormalizer(domain.DefaultCatalog(), model.MustLoadSchemas())
	sub, err := n.Normalize(map[string]interface{}{"email": "someone@example.com"}, model.ModeLenient)
	require.NoError(t, err)
	res := scoring.Compute(sub)
	require.Greater(t, len(res.Focuses(len(res.Ranked))), 3)

	v := buildView(domain.DefaultCatalog(), sub, res, fixedNow, true)

	require.Len(t, v.Summary.Focuses, 3)
	for i, f := range v.Summary.Focuses {
		assert.Equal(t, res.Ranked[i].Subtheme.Label, f.Subtheme)
	}
}
