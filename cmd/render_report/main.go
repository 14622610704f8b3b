// Command render_report builds a report from a payload file without sending
// it, for previewing template and chart changes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"life-alignment/internal/domain"
	"life-alignment/internal/model"
	"life-alignment/internal/scoring"
	"life-alignment/internal/usecase"
	"life-alignment/pkg/infrastructure"
)

type options struct {
	payload    string
	out        string
	mode       string
	pdf        bool
	noIntro    bool
	templates  string
	chromePath string
	timeout    time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "render_report",
		Short:        "Render a life alignment report from a JSON payload",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return render(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.payload, "payload", "p", "-", "payload JSON file, - for stdin")
	f.StringVarP(&o.out, "out", "o", "preview", "output directory")
	f.StringVar(&o.mode, "mode", string(model.ModeLenient), "validation mode: lenient or strict")
	f.BoolVar(&o.pdf, "pdf", false, "also print the PDF with Chrome")
	f.BoolVar(&o.noIntro, "no-intro", false, "leave out the introduction page")
	f.StringVar(&o.templates, "templates", "", "directory holding report.html and style.css (default: embedded)")
	f.StringVar(&o.chromePath, "chrome-path", "", "Chrome/Chromium binary")
	f.DurationVar(&o.timeout, "timeout", time.Minute, "PDF render timeout")
	return cmd
}

func render(ctx context.Context, stdout io.Writer, stdin io.Reader, o options) error {
	payload, err := readPayload(o.payload, stdin)
	if err != nil {
		return err
	}
	mode, err := model.ParseMode(o.mode)
	if err != nil {
		return err
	}

	schemas, err := model.LoadSchemas()
	if err != nil {
		return err
	}
	catalog := domain.DefaultCatalog()
	normalizer := model.NewNormalizer(catalog, schemas)

	opts := []usecase.Option{usecase.WithCatalog(catalog), usecase.WithIntro(!o.noIntro), usecase.WithRenderRetry(1, 0)}
	if o.templates != "" {
		opts = append(opts, usecase.WithTemplates(os.DirFS(o.templates)))
	}
	renderer := infrastructure.NewChromedpRenderer(o.chromePath, "", o.timeout, nil)
	p, err := usecase.NewProcessor(renderer, nil, nil, normalizer, opts...)
	if err != nil {
		return err
	}

	sub, err := normalizer.Normalize(payload, mode)
	if err != nil {
		return err
	}
	for _, w := range sub.Warnings {
		fmt.Fprintf(stdout, "warning: %s\n", w)
	}
	res := scoring.Compute(sub)

	html, err := p.RenderHTML(sub, res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return err
	}
	htmlPath := filepath.Join(o.out, "report.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", htmlPath)

	if o.pdf {
		pdf, err := p.RenderPDF(ctx, html)
		if err != nil {
			return err
		}
		pdfPath := filepath.Join(o.out, "report.pdf")
		if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", pdfPath)
	}

	top := res.Overall
	fmt.Fprintf(stdout, "largest gap: %s / %s (strength %.1f, rank %d, gap %.2f)\n",
		top.PillarLabel, top.Subtheme.Label, top.Subtheme.RawScore, top.Subtheme.Rank, top.Subtheme.Gap)
	return nil
}

func readPayload(path string, stdin io.Reader) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	return m, nil
}
