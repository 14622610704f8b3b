package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// A4 in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// ChromedpRenderer prints HTML to PDF with a headless Chrome started per call.
type ChromedpRenderer struct {
	chromePath string
	scratchDir string
	timeout    time.Duration
	log        *zap.Logger
}

// NewChromedpRenderer returns a renderer. An empty chromePath uses
// chromedp's own browser lookup; pages are staged under scratchDir
// (os.TempDir when empty). A nil log discards cleanup warnings.
func NewChromedpRenderer(chromePath, scratchDir string, timeout time.Duration, log *zap.Logger) *ChromedpRenderer {
	if log == nil {
		log = zap.NewNop()
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromedpRenderer{chromePath: chromePath, scratchDir: scratchDir, timeout: timeout, log: log.Named("renderer")}
}

func (r *ChromedpRenderer) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	t := timeout.New[[]byte](timeout.Config{DefaultTimeout: r.timeout})
	return t.Execute(ctx, r.timeout, func(ctx context.Context) ([]byte, error) {
		return r.render(ctx, html)
	})
}

// render stages html in its own scratch directory and prints it. The
// directory is removed only after Chrome has exited, even when the
// caller has already given up on the timeout.
func (r *ChromedpRenderer) render(ctx context.Context, html string) ([]byte, error) {
	dir := filepath.Join(r.scratchDir, "render-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("renderer: scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.log.Warn("removing scratch dir failed", zap.String("dir", dir), zap.Error(err))
		}
	}()

	htmlPath, err := filepath.Abs(filepath.Join(dir, "index.html"))
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return nil, fmt.Errorf("renderer: write page: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserDataDir(filepath.Join(dir, "profile")),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}

	// cancel waits for the browser process, so it must run before the removal above
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	var pdf []byte
	err = chromedp.Run(cctx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("renderer: chrome: %w", err)
	}
	return pdf, nil
}
