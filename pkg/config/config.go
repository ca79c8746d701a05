package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	defaultSignedURLSecret = "dev_archives_secret"
	defaultEncryptionKey   = "dev_archive_encryption_key"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Archive  ArchiveConfig
	OCR      OCRConfig
	Crypto   EncryptionConfig
	Events   EventsConfig
	Jobs     JobsConfig
	Seed     SeedConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig controls the zap encoder and optional rotated file output.
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ArchiveConfig controls archive storage, retention and API limits.
type ArchiveConfig struct {
	StorageDir              string
	SignedURLSecret         string
	SignedURLTTL            time.Duration
	MaxFileSizeBytes        int64
	DefaultRetentionYears   int
	AuditRetentionDays      int
	AutoCategorize          bool
	CacheEnabled            bool
	CacheTTL                time.Duration
	RateLimitPerMinute      int
	RateLimitBurst          int
	DefaultCategoryCode     string
	ConfidentialAutoEncrypt bool
}

// OCRConfig configures text extraction.
type OCRConfig struct {
	Enabled          bool
	TesseractPath    string
	Languages        string
	PageSegMode      int
	MaxFileSizeBytes int64
	Timeout          time.Duration
	Async            bool
}

// EncryptionConfig configures at-rest file encryption.
type EncryptionConfig struct {
	Enabled   bool
	Key       string
	Algorithm string
}

// EventsConfig configures NATS publication of audit events.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// JobsConfig sizes the background worker pools.
type JobsConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// SeedConfig holds the bootstrap administrator account used by the seeder.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// ValidationResult mirrors the {valid, errors, warnings} shape reported by the config endpoint.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		Compress:   v.GetBool("LOG_COMPRESS"),
	}

	cfg.Archive = ArchiveConfig{
		StorageDir:              v.GetString("ARCHIVE_STORAGE_DIR"),
		SignedURLSecret:         v.GetString("ARCHIVE_SIGNED_URL_SECRET"),
		SignedURLTTL:            parseDuration(v.GetString("ARCHIVE_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes:        v.GetInt64("ARCHIVE_MAX_FILE_SIZE_MB") * 1024 * 1024,
		DefaultRetentionYears:   v.GetInt("ARCHIVE_DEFAULT_RETENTION_YEARS"),
		AuditRetentionDays:      v.GetInt("ARCHIVE_AUDIT_RETENTION_DAYS"),
		AutoCategorize:          v.GetBool("ARCHIVE_AUTO_CATEGORIZE"),
		CacheEnabled:            v.GetBool("ARCHIVE_CACHE_ENABLED"),
		CacheTTL:                parseDuration(v.GetString("ARCHIVE_CACHE_TTL"), time.Hour),
		RateLimitPerMinute:      v.GetInt("ARCHIVE_API_RATE_LIMIT"),
		RateLimitBurst:          v.GetInt("ARCHIVE_API_RATE_BURST"),
		DefaultCategoryCode:     v.GetString("ARCHIVE_DEFAULT_CATEGORY_CODE"),
		ConfidentialAutoEncrypt: v.GetBool("ARCHIVE_CONFIDENTIAL_AUTO_ENCRYPT"),
	}

	cfg.OCR = OCRConfig{
		Enabled:          v.GetBool("OCR_ENABLED"),
		TesseractPath:    v.GetString("OCR_TESSERACT_PATH"),
		Languages:        v.GetString("OCR_LANGUAGES"),
		PageSegMode:      v.GetInt("OCR_PSM"),
		MaxFileSizeBytes: v.GetInt64("OCR_MAX_FILE_SIZE_MB") * 1024 * 1024,
		Timeout:          parseDuration(v.GetString("OCR_TIMEOUT"), 2*time.Minute),
		Async:            v.GetBool("OCR_ASYNC"),
	}

	cfg.Crypto = EncryptionConfig{
		Enabled:   v.GetBool("ENCRYPTION_ENABLED"),
		Key:       v.GetString("ENCRYPTION_KEY"),
		Algorithm: v.GetString("ENCRYPTION_ALGORITHM"),
	}

	cfg.Events = EventsConfig{
		NATSURL:       v.GetString("NATS_URL"),
		SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		Retries:    v.GetInt("JOBS_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), 5*time.Second),
		Timeout:    parseDuration(v.GetString("JOBS_TIMEOUT"), 5*time.Minute),
	}

	cfg.Seed = SeedConfig{
		AdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
		AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
		AdminName:     v.GetString("SEED_ADMIN_NAME"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "archive")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "archive-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_COMPRESS", true)

	v.SetDefault("ARCHIVE_STORAGE_DIR", "./archives")
	v.SetDefault("ARCHIVE_SIGNED_URL_SECRET", defaultSignedURLSecret)
	v.SetDefault("ARCHIVE_SIGNED_URL_TTL", "30m")
	v.SetDefault("ARCHIVE_MAX_FILE_SIZE_MB", 100)
	v.SetDefault("ARCHIVE_DEFAULT_RETENTION_YEARS", 7)
	v.SetDefault("ARCHIVE_AUDIT_RETENTION_DAYS", 2555)
	v.SetDefault("ARCHIVE_AUTO_CATEGORIZE", true)
	v.SetDefault("ARCHIVE_CACHE_ENABLED", true)
	v.SetDefault("ARCHIVE_CACHE_TTL", "1h")
	v.SetDefault("ARCHIVE_API_RATE_LIMIT", 1000)
	v.SetDefault("ARCHIVE_API_RATE_BURST", 50)
	v.SetDefault("ARCHIVE_DEFAULT_CATEGORY_CODE", "GEN")
	v.SetDefault("ARCHIVE_CONFIDENTIAL_AUTO_ENCRYPT", true)

	v.SetDefault("OCR_ENABLED", true)
	v.SetDefault("OCR_TESSERACT_PATH", "/usr/bin/tesseract")
	v.SetDefault("OCR_LANGUAGES", "eng")
	v.SetDefault("OCR_PSM", 6)
	v.SetDefault("OCR_MAX_FILE_SIZE_MB", 50)
	v.SetDefault("OCR_TIMEOUT", "2m")
	v.SetDefault("OCR_ASYNC", true)

	v.SetDefault("ENCRYPTION_ENABLED", true)
	v.SetDefault("ENCRYPTION_KEY", defaultEncryptionKey)
	v.SetDefault("ENCRYPTION_ALGORITHM", "XChaCha20-Poly1305")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "archive.audit")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "5s")
	v.SetDefault("JOBS_TIMEOUT", "5m")

	v.SetDefault("SEED_ADMIN_EMAIL", "admin@archive.local")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("SEED_ADMIN_NAME", "Archive Administrator")
}

// Validate reports configuration errors and warnings without failing startup.
func (c *Config) Validate() ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if c.OCR.Enabled {
		if c.OCR.TesseractPath == "" {
			result.Errors = append(result.Errors, "OCR is enabled but tesseract path is not set")
		} else if _, err := os.Stat(c.OCR.TesseractPath); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("tesseract binary not found at %s", c.OCR.TesseractPath))
		}
		if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
			result.Errors = append(result.Errors, "OCR page segmentation mode must be between 0 and 13")
		}
	}
	if c.Crypto.Enabled {
		if c.Crypto.Key == "" {
			result.Errors = append(result.Errors, "encryption is enabled but no key is configured")
		} else if c.Crypto.Key == defaultEncryptionKey {
			result.Warnings = append(result.Warnings, "encryption key uses the development default")
		}
	}
	if c.Archive.MaxFileSizeBytes <= 0 {
		result.Errors = append(result.Errors, "maximum file size must be greater than zero")
	}
	if c.OCR.MaxFileSizeBytes > c.Archive.MaxFileSizeBytes && c.Archive.MaxFileSizeBytes > 0 {
		result.Warnings = append(result.Warnings, "OCR size limit exceeds the upload size limit")
	}
	if c.Archive.DefaultRetentionYears <= 0 {
		result.Errors = append(result.Errors, "default retention period must be at least one year")
	}
	if c.Archive.AuditRetentionDays < 365 {
		result.Warnings = append(result.Warnings, "audit retention shorter than one year")
	}
	if c.Archive.RateLimitPerMinute <= 0 {
		result.Warnings = append(result.Warnings, "API rate limiting is disabled")
	}
	if c.Archive.SignedURLSecret == defaultSignedURLSecret {
		result.Warnings = append(result.Warnings, "signed URL secret uses the development default")
	}
	if c.Env == EnvProduction && c.JWT.Secret == "dev_secret" {
		result.Errors = append(result.Errors, "JWT secret must be changed in production")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
