// Package bootstrap assembles the archive services from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/repository"
	"github.com/noah-isme/archive-api/internal/service"
	"github.com/noah-isme/archive-api/pkg/cache"
	"github.com/noah-isme/archive-api/pkg/config"
	"github.com/noah-isme/archive-api/pkg/crypto"
	"github.com/noah-isme/archive-api/pkg/database"
	"github.com/noah-isme/archive-api/pkg/events"
	"github.com/noah-isme/archive-api/pkg/export"
	"github.com/noah-isme/archive-api/pkg/jobs"
	"github.com/noah-isme/archive-api/pkg/ocr"
	"github.com/noah-isme/archive-api/pkg/resilience"
	"github.com/noah-isme/archive-api/pkg/storage"
)

// Repositories groups the sqlx and redis backed stores.
type Repositories struct {
	Documents     *repository.DocumentRepository
	Versions      *repository.VersionRepository
	Categories    *repository.CategoryRepository
	Subcategories *repository.SubcategoryRepository
	Types         *repository.DocumentTypeRepository
	Relationships *repository.RelationshipRepository
	Rules         *repository.CategoryRuleRepository
	Audit         *repository.AuditRepository
	Users         *repository.UserRepository
	Cache         *repository.CacheRepository
}

// Services groups the archive domain services.
type Services struct {
	Metrics       *service.MetricsService
	Cache         *service.CacheService
	Audit         *service.AuditService
	Auth          *service.AuthService
	Categories    *service.CategoryService
	Subcategories *service.SubcategoryService
	Types         *service.DocumentTypeService
	Rules         *service.CategoryRuleService
	Documents     *service.DocumentService
	Versions      *service.VersionService
	Relationships *service.RelationshipService
	Export        *service.ExportService
	Config        *service.ConfigurationService
	Seed          *service.SeedService
}

// App owns every long lived resource of the archive.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *sqlx.DB
	Redis *redis.Client
	Queue *jobs.Queue

	Storage *storage.LocalStorage
	Signer  *storage.SignedURLSigner
	Events  events.Publisher

	Repos    Repositories
	Services Services

	closeFn []func()
}

// New connects to Postgres, Redis and NATS and wires the services. The job queue is built but not started.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	app.DB = db
	app.closeFn = append(app.closeFn, func() { _ = db.Close() })

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case err == nil:
		app.Redis = redisClient
		app.closeFn = append(app.closeFn, func() { _ = redisClient.Close() })
	case errors.Is(err, cache.ErrDisabled):
		logger.Info("redis cache disabled")
	default:
		logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}

	store, err := storage.NewLocalStorage(cfg.Archive.StorageDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	app.Storage = store
	app.Signer = storage.NewSignedURLSigner(cfg.Archive.SignedURLSecret, cfg.Archive.SignedURLTTL)

	publisher, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, events.Options{
		Executor: resilience.NewExecutor(resilience.DefaultConfig(), logger.Named("events")),
		Logger:   logger.Named("events"),
	})
	if err != nil {
		logger.Warn("nats unavailable, audit events will not be published", zap.Error(err))
		publisher = events.NopPublisher{}
	}
	app.Events = publisher
	app.closeFn = append(app.closeFn, publisher.Close)

	app.Queue = jobs.NewQueue("archive", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		RetryDelay: cfg.Jobs.RetryDelay,
		JobTimeout: cfg.Jobs.Timeout,
		Logger:     logger.Named("jobs"),
	})

	app.Repos = Repositories{
		Documents:     repository.NewDocumentRepository(db),
		Versions:      repository.NewVersionRepository(db),
		Categories:    repository.NewCategoryRepository(db),
		Subcategories: repository.NewSubcategoryRepository(db),
		Types:         repository.NewDocumentTypeRepository(db),
		Relationships: repository.NewRelationshipRepository(db),
		Rules:         repository.NewCategoryRuleRepository(db),
		Audit:         repository.NewAuditRepository(db),
		Users:         repository.NewUserRepository(db),
	}
	// A nil *redis.Client must not be stored in the interface, otherwise every call dereferences it.
	if app.Redis != nil {
		app.Repos.Cache = repository.NewCacheRepository(app.Redis, logger)
	} else {
		app.Repos.Cache = repository.NewCacheRepository(nil, logger)
	}

	if err := app.wireServices(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wireServices() error {
	cfg := a.Config
	logger := a.Logger
	validate := validator.New()
	r := a.Repos

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(r.Cache, metrics, cfg.Archive.CacheTTL, logger.Named("cache"), cfg.Archive.CacheEnabled && a.Redis != nil)
	audit := service.NewAuditService(r.Audit, a.Events, metrics, logger.Named("audit"))

	var sealer *crypto.Sealer
	if cfg.Crypto.Enabled {
		s, err := crypto.NewSealer(cfg.Crypto.Key)
		if err != nil {
			return fmt.Errorf("init encryption: %w", err)
		}
		sealer = s
	}
	var vault *service.FileVault
	if sealer != nil {
		vault = service.NewFileVault(a.Storage, sealer)
	} else {
		vault = service.NewFileVault(a.Storage, nil)
	}

	var extractor *ocr.Engine
	if cfg.OCR.Enabled {
		extractor = ocr.NewEngine(ocr.Config{
			Enabled:       cfg.OCR.Enabled,
			TesseractPath: cfg.OCR.TesseractPath,
			Languages:     cfg.OCR.Languages,
			PageSegMode:   cfg.OCR.PageSegMode,
			MaxFileSize:   cfg.OCR.MaxFileSizeBytes,
			Timeout:       cfg.OCR.Timeout,
		}, resilience.NewExecutor(resilience.DefaultConfig(), logger.Named("ocr")), nil, logger.Named("ocr"))
	}

	categories := service.NewCategoryService(r.Categories, audit, cacheSvc, validate, logger.Named("categories"))
	subcategories := service.NewSubcategoryService(r.Subcategories, r.Categories, audit, validate, logger.Named("subcategories"))
	types := service.NewDocumentTypeService(r.Types, audit, validate, logger.Named("document_types"), cfg.Archive.DefaultRetentionYears)
	rules := service.NewCategoryRuleService(r.Rules, r.Documents, r.Categories, r.Types, audit, categories, validate, logger.Named("rules"), cfg.Archive.DefaultCategoryCode)

	deps := service.DocumentDeps{
		Documents:     r.Documents,
		Versions:      r.Versions,
		Relationships: r.Relationships,
		Categories:    r.Categories,
		Subcategories: r.Subcategories,
		Types:         r.Types,
		Vault:         vault,
		Signer:        a.Signer,
		Jobs:          a.Queue,
		Audit:         audit,
		AuditTrail:    audit,
		Cache:         cacheSvc,
		Invalidator:   categories,
		Metrics:       metrics,
		Validator:     validate,
		Logger:        logger.Named("documents"),
	}
	if extractor != nil {
		deps.OCR = extractor
	}
	if cfg.Archive.AutoCategorize {
		deps.Rules = rules
	}
	documents := service.NewDocumentService(deps, service.DocumentServiceConfig{
		MaxFileSize:      cfg.Archive.MaxFileSizeBytes,
		DefaultRetention: cfg.Archive.DefaultRetentionYears,
		AutoCategorize:   cfg.Archive.AutoCategorize,
		AutoEncrypt:      cfg.Archive.ConfidentialAutoEncrypt,
		OCRAsync:         cfg.OCR.Async,
		APIPrefix:        cfg.APIPrefix,
		CacheTTL:         cfg.Archive.CacheTTL,
	})
	service.RegisterJobHandlers(a.Queue, documents, rules, cfg.Archive.AutoCategorize, logger.Named("jobs"))

	a.Services = Services{
		Metrics:       metrics,
		Cache:         cacheSvc,
		Audit:         audit,
		Auth: service.NewAuthService(r.Users, audit, validate, logger.Named("auth"), service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		Categories:    categories,
		Subcategories: subcategories,
		Types:         types,
		Rules:         rules,
		Documents:     documents,
		Versions:      service.NewVersionService(r.Versions, r.Documents, r.Types, vault, audit, logger.Named("versions"), cfg.Archive.MaxFileSizeBytes),
		Relationships: service.NewRelationshipService(r.Relationships, r.Documents, audit, validate, logger.Named("relationships")),
		Export: service.NewExportService(r.Documents, r.Audit, audit, a.Storage, a.Signer, export.NewRegistry(), service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
		}, logger.Named("export")),
		Config: service.NewConfigurationService(cfg, logger.Named("config")),
		Seed:   service.NewSeedService(r.Categories, r.Subcategories, r.Types, r.Rules, r.Users, logger.Named("seed")),
	}
	return nil
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	return database.Migrate(ctx, a.DB, a.Logger.Named("migrate"))
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFn) - 1; i >= 0; i-- {
		a.closeFn[i]()
	}
	a.closeFn = nil
}
