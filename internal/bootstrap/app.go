package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/admin"
	"docscan-backend/internal/credits"
	"docscan-backend/internal/documents"
	"docscan-backend/internal/scans"
	"docscan-backend/internal/shared/config"
	"docscan-backend/internal/shared/server"
	"docscan-backend/internal/shared/storage/db"
	"docscan-backend/internal/shared/storage/object"
	localstore "docscan-backend/internal/shared/storage/object/local"
	s3store "docscan-backend/internal/shared/storage/object/s3"
	"docscan-backend/internal/shared/telemetry"
	"docscan-backend/internal/similarity"
	"docscan-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	DocumentsRepo documents.Repo
	UsersRepo     users.Repo

	Ledger           *credits.Ledger
	Engine           *similarity.Engine
	ScanService      *scans.Service
	DocumentsService *documents.Service
	UsersService     *users.Service
	AdminService     *admin.Service
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: documents.NewHandler(app.DocumentsService),
		MatchHandler:    similarity.NewHandler(app.Engine),
		ScanHandler:     scans.NewHandler(app.ScanService, cfg.MaxUploadBytes),
		CreditHandler:   credits.NewHandler(app.Ledger),
		UserHandler:     users.NewHandler(app.UsersService),
		AdminHandler:    admin.NewHandler(app.AdminService),
	})

	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{
				"reason": "database connect failed",
				"error":  err,
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	cfg := app.Config
	ledgerOpts := credits.Options{
		Allowance: cfg.DailyCredits,
		Location:  cfg.Location(),
	}

	var docRepo documents.Repo
	var userRepo users.Repo
	var ledger *credits.Ledger
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		ledger = credits.NewPostgresLedger(app.DB, ledgerOpts)
	} else {
		docRepo = documents.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
		ledger = credits.NewLedger(ledgerOpts)
	}

	app.DocumentsRepo = docRepo
	app.UsersRepo = userRepo
	app.Ledger = ledger
	app.Engine = similarity.NewEngine(docRepo, similarity.Options{
		Threshold: cfg.SimilarityThreshold,
		AutoJunk:  cfg.SimilarityAutoJunk,
		Workers:   cfg.SimilarityWorkers,
		Timeout:   cfg.SimilarityScanTimeout,
	})
	app.ScanService = scans.NewService(ledger, docRepo, app.Store)
	app.DocumentsService = &documents.Service{Repo: docRepo}
	app.UsersService = users.NewService(userRepo)
	app.AdminService = admin.NewService(userRepo, docRepo, ledger)
}
