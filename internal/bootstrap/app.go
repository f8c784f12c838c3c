package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"prospectus-backend/internal/analysis"
	"prospectus-backend/internal/chat"
	"prospectus-backend/internal/documents"
	"prospectus-backend/internal/llm"
	"prospectus-backend/internal/llm/gemini"
	"prospectus-backend/internal/shared/config"
	"prospectus-backend/internal/shared/server"
	"prospectus-backend/internal/shared/storage/db"
	"prospectus-backend/internal/shared/storage/object"
	localstore "prospectus-backend/internal/shared/storage/object/local"
	s3store "prospectus-backend/internal/shared/storage/object/s3"
	"prospectus-backend/internal/shared/telemetry"
)

const llmProvider = "gemini"

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	Gateway llm.Gateway

	DocumentsRepo documents.Repo
	AnalysisRepo  analysis.Repo
	ChatStore     *chat.Store

	DocumentsService *documents.Service
	AnalysisService  *analysis.Service
	ChatService      *chat.Service

	DocumentsHandler *documents.Handler
	AnalysisHandler  *analysis.Handler
	ChatHandler      *chat.Handler
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

	gateway, err := buildGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Store:   store,
		Gateway: gateway,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		DocumentsHandler: app.DocumentsHandler,
		AnalysisHandler:  app.AnalysisHandler,
		ChatHandler:      app.ChatHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required when ENV=%s", cfg.Env)
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
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildGateway(ctx context.Context, cfg config.Config) (llm.Gateway, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		telemetry.Warn("bootstrap.gateway_not_configured", map[string]any{
			"hint": "set GEMINI_API_KEY to enable analysis and chat",
		})
		return llm.Placeholder{}, nil
	}
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, timeout)
}

func buildServices(app *App) {
	var docRepo documents.Repo
	var analysisRepo analysis.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		analysisRepo = &analysis.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		analysisRepo = analysis.NewMemoryRepo()
	}

	chatStore := chat.NewStore()

	docSvc := &documents.Service{
		Store:    app.Store,
		Repo:     docRepo,
		Sessions: chatStore,
		Provider: app.Config.ObjectStoreType,
	}

	analysisSvc := &analysis.Service{
		Repo:         analysisRepo,
		Docs:         docSvc,
		Gateway:      app.Gateway,
		Orchestrator: &analysis.Orchestrator{Gateway: app.Gateway},
		Provider:     llmProvider,
		Model:        app.Config.LLMModel,
	}

	chatSvc := &chat.Service{
		Docs:    docSvc,
		Gateway: app.Gateway,
		Store:   chatStore,
	}

	app.DocumentsRepo = docRepo
	app.AnalysisRepo = analysisRepo
	app.ChatStore = chatStore
	app.DocumentsService = docSvc
	app.AnalysisService = analysisSvc
	app.ChatService = chatSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.AnalysisHandler = analysis.NewHandler(analysisSvc)
	app.ChatHandler = chat.NewHandler(chatSvc)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
