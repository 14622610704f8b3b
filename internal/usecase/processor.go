package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"go.uber.org/zap"

	"life-alignment/internal/domain"
	"life-alignment/internal/model"
	"life-alignment/internal/scoring"
	"life-alignment/pkg/logger"
	"life-alignment/pkg/metrics"
	"life-alignment/templates"
)

var (
	// ErrRender means no valid PDF could be produced; nothing was sent.
	ErrRender = errors.New("report rendering failed")
	// ErrDelivery is only returned when delivery failures are configured fatal.
	ErrDelivery = errors.New("report delivery failed")
)

const (
	defaultSubject   = "Your Life Alignment Diagnostic Report"
	defaultSignature = "Owen"
	attachmentName   = "life-alignment-report.pdf"
	pdfMagic         = "%PDF"
)

// Renderer turns a self-contained HTML page into PDF bytes.
type Renderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// Mailer sends one message with a single attachment.
type Mailer interface {
	SendWithAttachment(ctx context.Context, to, subject, body, filename string, content []byte) error
}

// JobsRepo records report builds.
type JobsRepo interface {
	Save(ctx context.Context, j *domain.ReportJob) error
}

// Processor runs the normalize, score, render, deliver pipeline.
type Processor struct {
	renderer   Renderer
	mailer     Mailer
	repo       JobsRepo
	normalizer *model.Normalizer
	catalog    domain.Catalog

	tplFS fs.FS
	tpl   *template.Template
	css   string

	outputDir     string
	keepArtifacts bool
	intro         bool
	subject       string
	signature     string
	fatalDelivery bool
	retry         retry.Config

	log *zap.Logger
	now func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithTemplates replaces the embedded report.html and style.css.
func WithTemplates(fsys fs.FS) Option {
	return func(p *Processor) { p.tplFS = fsys }
}

func WithOutputDir(dir string) Option { return func(p *Processor) { p.outputDir = dir } }

// WithKeepArtifacts leaves each report's directory on disk after the build.
func WithKeepArtifacts(keep bool) Option { return func(p *Processor) { p.keepArtifacts = keep } }

func WithIntro(include bool) Option { return func(p *Processor) { p.intro = include } }

// WithEmail sets the subject line and the name signing the message body.
// Empty values keep the defaults.
func WithEmail(subject, signature string) Option {
	return func(p *Processor) {
		if subject != "" {
			p.subject = subject
		}
		if signature != "" {
			p.signature = signature
		}
	}
}

// WithRenderRetry sets how many times rendering is attempted and the first
// backoff delay; the delay doubles between attempts.
func WithRenderRetry(attempts int, delay time.Duration) Option {
	return func(p *Processor) {
		if attempts > 0 {
			p.retry.MaxAttempts = attempts
		}
		p.retry.InitialDelay = delay
	}
}

// WithDeliveryFailureFatal makes Generate return ErrDelivery when the email
// cannot be sent.
func WithDeliveryFailureFatal(fatal bool) Option {
	return func(p *Processor) { p.fatalDelivery = fatal }
}

func WithLogger(l *zap.Logger) Option { return func(p *Processor) { p.log = l } }

func WithCatalog(c domain.Catalog) Option { return func(p *Processor) { p.catalog = c } }

func WithClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

// NewProcessor wires the pipeline. mailer and repo may be nil: reports are
// then rendered without being sent, or built without being recorded.
func NewProcessor(r Renderer, m Mailer, repo JobsRepo, n *model.Normalizer, opts ...Option) (*Processor, error) {
	if r == nil {
		return nil, errors.New("processor: renderer is required")
	}
	if n == nil {
		return nil, errors.New("processor: normalizer is required")
	}
	p := &Processor{
		renderer:   r,
		mailer:     m,
		repo:       repo,
		normalizer: n,
		catalog:    domain.DefaultCatalog(),
		tplFS:      templates.FS,
		outputDir:  "output",
		intro:      true,
		subject:    defaultSubject,
		signature:  defaultSignature,
		retry: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  time.Second,
			BackoffPolicy: retry.BackoffExponential,
		},
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("processor")

	tpl, err := template.New("report.html").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(p.tplFS, "report.html")
	if err != nil {
		return nil, fmt.Errorf("processor: parse template: %w", err)
	}
	p.tpl = tpl
	// the stylesheet is optional; a template may carry its own <style>
	if b, err := fs.ReadFile(p.tplFS, "style.css"); err == nil {
		p.css = string(b)
	}
	return p, nil
}

// Generate builds the report for payload and emails it to the submitter.
//
// Normalization errors are returned as is (model.ErrMissingEmail or a
// *model.ValidationError). A render failure returns ErrRender and sends
// nothing. A delivery failure is logged and reported through
// Outcome.Emailed, unless delivery failures are fatal.
func (p *Processor) Generate(ctx context.Context, payload map[string]interface{}, mode model.Mode) (*Outcome, error) {
	job := domain.NewReportJob(model.EmailFrom(payload), string(mode), p.now())
	log := p.log.With(zap.String("report_id", job.ID.String()), zap.String("mode", string(mode)))

	sub, err := p.normalizer.Normalize(payload, mode)
	if sub != nil {
		job.SchemaVersions = sub.Versions
		metrics.RecordSubmission(string(mode), sub.Versions)
	}
	if err != nil {
		// without an email there is nobody to trace the job to
		if !errors.Is(err, model.ErrMissingEmail) {
			job.Transition(domain.StatusRejected, err, p.now())
			p.save(ctx, log, job)
		}
		metrics.RecordReport(domain.StatusRejected)
		log.Info("submission rejected", zap.Error(err))
		return nil, err
	}
	log = log.With(logger.Recipient(sub.Email))
	p.recordDefaults(sub)
	if len(sub.Warnings) > 0 {
		log.Warn("submission normalized with problems", zap.Strings("warnings", sub.Warnings))
	}

	res := scoring.Compute(sub)
	out := &Outcome{ReportID: job.ID, Submission: sub, Result: res, Warnings: sub.Warnings}
	job.Metadata["versions"] = sub.Versions
	job.Metadata["warnings"] = len(sub.Warnings)
	job.Metadata["top_focus"] = res.Overall.PillarLabel + " / " + res.Overall.Subtheme.Label
	job.Metadata["top_gap"] = round1(res.Overall.Subtheme.Gap)

	html, err := p.RenderHTML(sub, res)
	if err != nil {
		return nil, p.fail(ctx, log, job, fmt.Errorf("%w: %v", ErrRender, err))
	}

	dir := filepath.Join(p.outputDir, job.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, p.fail(ctx, log, job, fmt.Errorf("%w: %v", ErrRender, err))
	}
	if !p.keepArtifacts {
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				log.Warn("removing report directory failed", zap.String("dir", dir), zap.Error(err))
			}
		}()
	}

	// saved before rendering so the page survives a Chrome failure when artifacts are kept
	out.HTMLPath = filepath.Join(dir, "report.html")
	if err := os.WriteFile(out.HTMLPath, []byte(html), 0o644); err != nil {
		return nil, p.fail(ctx, log, job, fmt.Errorf("%w: %v", ErrRender, err))
	}

	pdf, err := p.RenderPDF(ctx, html)
	if err != nil {
		return nil, p.fail(ctx, log, job, err)
	}
	out.PDFPath = filepath.Join(dir, attachmentName)
	if err := os.WriteFile(out.PDFPath, pdf, 0o644); err != nil {
		return nil, p.fail(ctx, log, job, fmt.Errorf("%w: %v", ErrRender, err))
	}
	if p.keepArtifacts {
		job.PDFPath = out.PDFPath
	}
	job.Transition(domain.StatusRendered, nil, p.now())
	log.Info("report rendered", zap.Int("pdf_bytes", len(pdf)))

	if p.mailer == nil {
		log.Info("mail delivery disabled; report not sent")
		metrics.RecordReport(job.Status)
		p.save(ctx, log, job)
		return out, nil
	}

	if err := p.mailer.SendWithAttachment(ctx, sub.Email, p.subject, p.emailBody(), attachmentName, pdf); err != nil {
		metrics.RecordDelivery("failure")
		job.Transition(domain.StatusDeliveryFailed, err, p.now())
		metrics.RecordReport(job.Status)
		p.save(ctx, log, job)
		log.Error("report delivery failed", zap.Error(err))
		if p.fatalDelivery {
			return out, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		return out, nil
	}

	metrics.RecordDelivery("success")
	out.Emailed = true
	job.Transition(domain.StatusDelivered, nil, p.now())
	metrics.RecordReport(job.Status)
	p.save(ctx, log, job)
	log.Info("report delivered")
	return out, nil
}

// RenderHTML executes the report template for a scored submission and
// inlines the stylesheet so the page is self-contained.
func (p *Processor) RenderHTML(sub *model.Submission, res scoring.Result) (string, error) {
	var buf bytes.Buffer
	if err := p.tpl.Execute(&buf, buildView(p.catalog, sub, res, p.now(), p.intro)); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	html := buf.String()
	if p.css == "" {
		return html, nil
	}
	block := "<style>" + p.css + "</style>"
	if strings.Contains(html, "<head>") {
		return strings.Replace(html, "<head>", "<head>"+block, 1), nil
	}
	return block + html, nil
}

// RenderPDF renders html, retrying with exponential backoff until the output
// starts with the PDF signature.
func (p *Processor) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	start := time.Now()
	attempt := 0
	var lastErr error
	r := retry.New[[]byte](p.retry)
	pdf, err := r.Do(ctx, func(ctx context.Context) ([]byte, error) {
		attempt++
		b, err := p.renderer.RenderHTMLToPDF(ctx, html)
		if err == nil && !bytes.HasPrefix(b, []byte(pdfMagic)) {
			err = fmt.Errorf("invalid PDF output (len=%d)", len(b))
		}
		if err != nil {
			lastErr = err
			p.log.Warn("render attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}
		return b, nil
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		metrics.RecordRender("failure", time.Since(start))
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrRender, attempt, lastErr)
	}
	metrics.RecordRender("success", time.Since(start))
	return pdf, nil
}

func (p *Processor) emailBody() string {
	return "Hi there,\n\n" +
		"Thanks for completing the Life Alignment Diagnostic.\n" +
		"Your personalised PDF report is attached.\n\n" +
		"Warm regards,\n" + p.signature + "\n"
}

func (p *Processor) recordDefaults(sub *model.Submission) {
	for key, prov := range sub.Provenance {
		if prov.Scores == model.SourceDefault {
			metrics.RecordDefaulted(string(key), "scores")
		}
		if prov.Ranks == model.SourceDefault {
			metrics.RecordDefaulted(string(key), "ranks")
		}
	}
}

func (p *Processor) fail(ctx context.Context, log *zap.Logger, job *domain.ReportJob, err error) error {
	job.Transition(domain.StatusRenderFailed, err, p.now())
	metrics.RecordReport(job.Status)
	p.save(ctx, log, job)
	log.Error("report build failed", zap.Error(err))
	return err
}

// save records the job best-effort; the caller's result never depends on it.
func (p *Processor) save(ctx context.Context, log *zap.Logger, job *domain.ReportJob) {
	if p.repo == nil {
		return
	}
	if err := p.repo.Save(ctx, job); err != nil {
		log.Warn("saving report job failed", zap.Error(err))
	}
}
