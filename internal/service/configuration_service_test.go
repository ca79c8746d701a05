package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/pkg/config"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

func sampleConfig() *config.Config {
	return &config.Config{
		Env: "development",
		JWT: config.JWTConfig{Secret: "jwt"},
		Archive: config.ArchiveConfig{
			StorageDir:            "/var/archive",
			SignedURLSecret:       "download-secret",
			SignedURLTTL:          15 * time.Minute,
			MaxFileSizeBytes:      50 << 20,
			DefaultRetentionYears: 7,
			AuditRetentionDays:    2555,
			CacheEnabled:          true,
			CacheTTL:              5 * time.Minute,
			RateLimitPerMinute:    120,
		},
		OCR:    config.OCRConfig{Languages: "eng"},
		Crypto: config.EncryptionConfig{Enabled: true, Key: "k", Algorithm: "xchacha20poly1305"},
		Events: config.EventsConfig{NATSURL: "nats://localhost:4222"},
	}
}

func TestConfigurationServiceViewRequiresManager(t *testing.T) {
	svc := NewConfigurationService(sampleConfig(), zap.NewNop())

	_, err := svc.View(userActor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	view, err := svc.View(managerActor)
	require.NoError(t, err)
	assert.Equal(t, "/var/archive", view.StorageDir)
	assert.True(t, view.EncryptionEnabled)
	assert.True(t, view.EventsEnabled)
	assert.False(t, view.OCREnabled)
	assert.True(t, view.Validation.Valid)
	assert.Empty(t, view.Validation.Warnings)
}

func TestConfigurationServiceValidateReportsProblems(t *testing.T) {
	cfg := sampleConfig()
	cfg.Crypto.Key = ""
	cfg.Archive.DefaultRetentionYears = 0
	cfg.Archive.RateLimitPerMinute = 0
	svc := NewConfigurationService(cfg, nil)

	check := svc.Validate()
	assert.False(t, check.Valid)
	assert.Contains(t, check.Errors, "encryption is enabled but no key is configured")
	assert.Contains(t, check.Errors, "default retention period must be at least one year")
	assert.Contains(t, check.Warnings, "API rate limiting is disabled")

	view, err := svc.View(adminActor)
	require.NoError(t, err)
	assert.False(t, view.Validation.Valid)
}
