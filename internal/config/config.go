// Package config defines the service configuration and how it is loaded.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "json" or "console".
	LogFormat string `koanf:"log_format"`

	// AllowedOrigins is a comma-separated CORS allow list.
	AllowedOrigins string `koanf:"allowed_origins"`
	// BodyLimitBytes caps request bodies.
	BodyLimitBytes int `koanf:"body_limit_bytes"`

	// ValidationMode is the default for POST /generate: lenient or strict.
	ValidationMode string `koanf:"validation_mode"`
	// IncludeIntro adds the introduction page to the report.
	IncludeIntro bool `koanf:"include_intro"`
	// TemplatesDir overrides the embedded report templates when set.
	TemplatesDir string `koanf:"templates_dir"`

	// ChromePath points at a Chrome/Chromium binary; empty uses chromedp's lookup.
	ChromePath       string `koanf:"chrome_path"`
	RenderTimeoutSec int    `koanf:"render_timeout_sec"`
	RenderAttempts   int    `koanf:"render_attempts"`

	// OutputDir holds per-report scratch directories.
	OutputDir string `koanf:"output_dir"`
	// KeepArtifacts leaves the HTML and PDF on disk after delivery.
	KeepArtifacts bool `koanf:"keep_artifacts"`

	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`
	SMTPFrom     string `koanf:"smtp_from"`
	// SMTPSSL uses implicit TLS instead of STARTTLS.
	SMTPSSL bool `koanf:"smtp_ssl"`

	EmailSubject   string `koanf:"email_subject"`
	EmailSignature string `koanf:"email_signature"`
	// DeliveryFailureFatal turns a failed email into a 502.
	DeliveryFailureFatal bool `koanf:"delivery_failure_fatal"`

	// JobsDatabaseURL enables the report job log when set.
	JobsDatabaseURL string `koanf:"jobs_database_url"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Addr:             ":8080",
		LogLevel:         "info",
		LogFormat:        "json",
		AllowedOrigins:   "https://queensparkfitness.com,https://www.queensparkfitness.com",
		BodyLimitBytes:   1 << 20,
		ValidationMode:   "lenient",
		IncludeIntro:     true,
		RenderTimeoutSec: 60,
		RenderAttempts:   3,
		OutputDir:        "output",
		SMTPPort:         587,
		EmailSubject:     "Your Life Alignment Diagnostic Report",
		EmailSignature:   "Owen",
	}
}

// RenderTimeout is RenderTimeoutSec as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSec) * time.Second
}

// MailEnabled reports whether SMTP delivery is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}
