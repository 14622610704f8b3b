package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"life-alignment/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "lenient", cfg.ValidationMode)
	assert.Equal(t, 3, cfg.RenderAttempts)
	assert.Equal(t, "Owen", cfg.EmailSignature)
	assert.Contains(t, cfg.AllowedOrigins, "https://queensparkfitness.com")
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.DeliveryFailureFatal)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ALIGNMENT_ADDR", ":9090")
	t.Setenv("ALIGNMENT_VALIDATION_MODE", "strict")
	t.Setenv("ALIGNMENT_RENDER_ATTEMPTS", "5")
	t.Setenv("ALIGNMENT_KEEP_ARTIFACTS", "true")
	t.Setenv("ALIGNMENT_SMTP_HOST", "smtp.example.com")
	t.Setenv("ALIGNMENT_SMTP_FROM", "reports@example.com")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "strict", cfg.ValidationMode)
	assert.Equal(t, 5, cfg.RenderAttempts)
	assert.True(t, cfg.KeepArtifacts)
	assert.True(t, cfg.MailEnabled())
}

func TestLoadPortFallback(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)

	t.Setenv("ALIGNMENT_ADDR", ":4000")
	cfg, err = config.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Addr)
}

func TestLoadYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "addr: \":7070\"\nemail_signature: Sam\nrender_timeout_sec: 30\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("ALIGNMENT_CONFIG", path)
	t.Setenv("ALIGNMENT_RENDER_TIMEOUT_SEC", "45")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "Sam", cfg.EmailSignature)
	assert.Equal(t, 45, cfg.RenderTimeoutSec)
}

func TestLoadRejects(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("ALIGNMENT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := config.Load(context.Background())
		assert.ErrorIs(t, err, config.ErrLoadConfig)
	})
	t.Run("bad mode", func(t *testing.T) {
		t.Setenv("ALIGNMENT_VALIDATION_MODE", "paranoid")
		_, err := config.Load(context.Background())
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
	t.Run("mode in any case", func(t *testing.T) {
		t.Setenv("ALIGNMENT_VALIDATION_MODE", "Strict")
		cfg, err := config.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Strict", cfg.ValidationMode)
	})
	t.Run("smtp without sender", func(t *testing.T) {
		t.Setenv("ALIGNMENT_SMTP_HOST", "smtp.example.com")
		_, err := config.Load(context.Background())
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
	t.Run("zero attempts", func(t *testing.T) {
		t.Setenv("ALIGNMENT_RENDER_ATTEMPTS", "0")
		_, err := config.Load(context.Background())
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}
