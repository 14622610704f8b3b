package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpadapter "life-alignment/internal/adapter/http"
	repo "life-alignment/internal/adapter/repository"
	"life-alignment/internal/config"
	"life-alignment/internal/domain"
	"life-alignment/internal/infrastructure/migration"
	"life-alignment/internal/model"
	"life-alignment/internal/usecase"
	"life-alignment/pkg/infrastructure"
	"life-alignment/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	schemas, err := model.LoadSchemas()
	if err != nil {
		return err
	}
	catalog := domain.DefaultCatalog()
	normalizer := model.NewNormalizer(catalog, schemas)

	renderer := infrastructure.NewChromedpRenderer(cfg.ChromePath, filepath.Join(cfg.OutputDir, "scratch"), cfg.RenderTimeout(), log)

	var mailer usecase.Mailer
	if cfg.MailEnabled() {
		m, err := infrastructure.NewSMTPMailer(infrastructure.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			SSL:      cfg.SMTPSSL,
		})
		if err != nil {
			return err
		}
		mailer = m
	} else {
		log.Warn("smtp not configured; reports will be rendered but not emailed")
	}

	var jobs usecase.JobsRepo
	if cfg.JobsDatabaseURL != "" {
		pool, err := infrastructure.NewJobsPool(ctx, cfg.JobsDatabaseURL)
		if err != nil {
			// the job log is optional; the service runs without it
			log.Warn("jobs database not available", zap.Error(err))
		} else {
			defer pool.Close()
			if err := migration.RunMigrations(ctx, pool, log); err != nil {
				return err
			}
			jobs = repo.NewJobsRepo(pool)
		}
	}

	mode, err := model.ParseMode(cfg.ValidationMode)
	if err != nil {
		return err
	}

	opts := []usecase.Option{
		usecase.WithLogger(log),
		usecase.WithCatalog(catalog),
		usecase.WithOutputDir(cfg.OutputDir),
		usecase.WithKeepArtifacts(cfg.KeepArtifacts),
		usecase.WithIntro(cfg.IncludeIntro),
		usecase.WithEmail(cfg.EmailSubject, cfg.EmailSignature),
		usecase.WithRenderRetry(cfg.RenderAttempts, time.Second),
		usecase.WithDeliveryFailureFatal(cfg.DeliveryFailureFatal),
	}
	if cfg.TemplatesDir != "" {
		opts = append(opts, usecase.WithTemplates(os.DirFS(cfg.TemplatesDir)))
	}
	processor, err := usecase.NewProcessor(renderer, mailer, jobs, normalizer, opts...)
	if err != nil {
		return err
	}

	h := httpadapter.NewHandler(processor, mode, log)
	app := httpadapter.NewApp(h, httpadapter.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		BodyLimit:      cfg.BodyLimitBytes,
		ReadTimeout:    30 * time.Second,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("validation_mode", string(mode)))
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
