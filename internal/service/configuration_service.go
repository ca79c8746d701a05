package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/config"
)

// ConfigurationService exposes a sanitized, read only view of the runtime configuration.
type ConfigurationService struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(cfg *config.Config, logger *zap.Logger) *ConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{cfg: cfg, logger: logger}
}

// View returns the archive settings without secrets. Managers only.
func (s *ConfigurationService) View(actor models.Actor) (*dto.ArchiveConfigView, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	check := s.Validate()
	if !check.Valid {
		s.logger.Warn("archive configuration has errors", zap.Strings("errors", check.Errors))
	}
	a := s.cfg.Archive
	return &dto.ArchiveConfigView{
		StorageDir:            a.StorageDir,
		MaxFileSizeBytes:      a.MaxFileSizeBytes,
		SignedURLTTL:          a.SignedURLTTL,
		DefaultRetentionYears: a.DefaultRetentionYears,
		AuditRetentionDays:    a.AuditRetentionDays,
		AutoCategorize:        a.AutoCategorize,
		CacheEnabled:          a.CacheEnabled,
		CacheTTL:              a.CacheTTL,
		RateLimitPerMinute:    a.RateLimitPerMinute,
		OCREnabled:            s.cfg.OCR.Enabled,
		OCRLanguages:          s.cfg.OCR.Languages,
		OCRAsync:              s.cfg.OCR.Async,
		EncryptionEnabled:     s.cfg.Crypto.Enabled,
		EncryptionAlgorithm:   s.cfg.Crypto.Algorithm,
		EventsEnabled:         s.cfg.Events.NATSURL != "",
		Validation:            check,
	}, nil
}

// Validate checks the configuration for errors and risky settings.
func (s *ConfigurationService) Validate() dto.ConfigCheck {
	res := s.cfg.Validate()
	return dto.ConfigCheck{Valid: res.Valid, Errors: res.Errors, Warnings: res.Warnings}
}
