package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/artifacts"
	googleauth "pait-backend/internal/auth"
	"pait-backend/internal/intent"
	"pait-backend/internal/orchestration"
	"pait-backend/internal/queue"
	"pait-backend/internal/quota"
	"pait-backend/internal/services/health"
	"pait-backend/internal/shared/config"
	"pait-backend/internal/shared/server"
	"pait-backend/internal/shared/storage/db"
	"pait-backend/internal/shared/storage/object"
	localstore "pait-backend/internal/shared/storage/object/local"
	s3store "pait-backend/internal/shared/storage/object/s3"
	"pait-backend/internal/specialist"
	specialistopenai "pait-backend/internal/specialist/openai"
	"pait-backend/internal/subjects"
	"pait-backend/internal/vault"
)

// App holds shared dependencies wired from config.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Queue  queue.Client

	Catalog *intent.Catalog
	Pool    *specialist.Pool
	Ledger  *quota.Ledger
	Sealer  *vault.Sealer

	SubjectsRepo  subjects.Repo
	ArtifactsRepo artifacts.Repo
	SessionsRepo  orchestration.Repo

	SubjectsService      *subjects.Service
	ArtifactsService     *artifacts.Service
	OrchestrationService *orchestration.Service

	SubjectHandler  *subjects.Handler
	ArtifactHandler *artifacts.Handler
	IntentHandler   *intent.Handler
	SessionHandler  *orchestration.Handler
	QuotaHandler    *quota.Handler
	VaultHandler    *vault.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
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

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Health:          health.NewService(app.DB),
		SubjectHandler:  app.SubjectHandler,
		ArtifactHandler: app.ArtifactHandler,
		IntentHandler:   app.IntentHandler,
		SessionHandler:  app.SessionHandler,
		QuotaHandler:    app.QuotaHandler,
		VaultHandler:    app.VaultHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SealQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SealQueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	catalog, err := intent.Load()
	if err != nil {
		return fmt.Errorf("load intent catalog: %w", err)
	}

	var subjectsRepo subjects.Repo
	var artifactsRepo artifacts.Repo
	var sessionsRepo orchestration.Repo
	var ledger *quota.Ledger
	var sealer *vault.Sealer

	if app.DB != nil {
		subjectsRepo = &subjects.PGRepo{DB: app.DB}
		artifactsRepo = &artifacts.PGRepo{DB: app.DB}
		sessionsRepo = &orchestration.PGRepo{DB: app.DB}
		ledger = quota.NewPostgresLedger(quota.NewPGStore(app.DB))
		sealer = vault.NewPostgresSealer(vault.NewPGStore(app.DB))
	} else {
		subjectsRepo = subjects.NewMemoryRepo()
		artifactsRepo = artifacts.NewMemoryRepo()
		sessionsRepo = orchestration.NewMemoryRepo()
		ledger = quota.NewLedger()
		sealer = vault.NewSealer()
	}

	pool := specialist.NewPool(app.Config.WorkerTimeout)
	if app.Config.SpecialistBackend == "openai" {
		specialistopenai.RegisterWorkers(pool, app.Config.OpenAIAPIKey, app.Config.OpenAIModel)
	} else {
		specialist.RegisterLocalWorkers(pool)
	}

	subjectSvc := subjects.NewService(subjectsRepo)
	artifactSvc := &artifacts.Service{Store: app.Store, Repo: artifactsRepo}

	orchestrationSvc := orchestration.NewService(sessionsRepo, ledger, catalog, pool, artifactSvc, sealer)
	orchestrationSvc.Queue = app.Queue
	if app.Config.SessionTimeout > 0 {
		orchestrationSvc.SessionTimeout = app.Config.SessionTimeout
	}
	if app.Config.SealGrace > 0 {
		orchestrationSvc.SealGrace = app.Config.SealGrace
	}

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		subjectSvc,
	)

	app.Catalog = catalog
	app.Pool = pool
	app.Ledger = ledger
	app.Sealer = sealer
	app.SubjectsRepo = subjectsRepo
	app.ArtifactsRepo = artifactsRepo
	app.SessionsRepo = sessionsRepo
	app.SubjectsService = subjectSvc
	app.ArtifactsService = artifactSvc
	app.OrchestrationService = orchestrationSvc
	app.SubjectHandler = subjects.NewHandler(subjectSvc)
	app.ArtifactHandler = artifacts.NewHandler(artifactSvc)
	app.IntentHandler = intent.NewHandler(catalog)
	app.SessionHandler = orchestration.NewHandler(orchestrationSvc)
	app.QuotaHandler = quota.NewHandler(ledger)
	app.VaultHandler = vault.NewHandler(sealer)
	app.GoogleAuth = googleAuthSvc

	return nil
}
