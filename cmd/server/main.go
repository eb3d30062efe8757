package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"dealflow/internal/audit"
	"dealflow/internal/auth"
	"dealflow/internal/config"
	cronrunner "dealflow/internal/cron"
	"dealflow/internal/db"
	"dealflow/internal/handler"
	"dealflow/internal/ingest"
	"dealflow/internal/llm"
	"dealflow/internal/logger"
	"dealflow/internal/pipeline"
	"dealflow/internal/portfolio"
	"dealflow/internal/repository"
	gormrepository "dealflow/internal/repository/gorm"
	"dealflow/internal/repository/memory"
	"dealflow/internal/runstore"
	"dealflow/internal/service"
	"dealflow/internal/stage"

	_ "dealflow/docs"
)

func main() {
	cfgPath := os.Getenv("DEALFLOW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("DEALFLOW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, "dealflow-server")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	var store repository.DealRepository
	if dbConn != nil {
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
	} else {
		logger.Warn("db.dsn is empty, using the in-memory deal store")
		store = memory.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	completion, err := llm.New(ctx, cfg.Completion, secrets.CompletionKey(cfg.Completion.Provider), logger)
	if err != nil {
		logger.Fatal("completion client init failed", zap.Error(err))
	}
	if completion.Backend == nil {
		logger.Warn("no completion credential configured, stage calls will return service_unavailable",
			zap.String("provider", cfg.Completion.Provider))
	}

	runs, err := runstore.New(cfg.RunStore, secrets.RedisPassword)
	if err != nil {
		logger.Fatal("run store init failed", zap.Error(err))
	}
	defer runs.Close()

	auditClient := initAuditClient(cfg.Audit, secrets.AuditAPIKey, logger)

	executors := &stage.Executors{LLM: completion, Logger: logger}
	controller := &pipeline.Controller{
		Repo:    store,
		Stages:  executors,
		Fetcher: ingest.NewLinkFetcher(cfg.Fetch, nil, logger),
		Logger:  logger,
	}
	aggregator := &portfolio.Aggregator{Repo: store, Stages: executors, Logger: logger}
	dealService := &service.DealService{Repo: store, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORS(cfg.Server.AllowedOrigins))
	jwtAuth := auth.JWT{Secret: []byte(secrets.JWTSecret), Issuer: cfg.Auth.Issuer, TokenTTL: cfg.Auth.TokenTTL}
	if !jwtAuth.Enabled() {
		logger.Warn("DEALFLOW_JWT_SECRET is empty, /api is unauthenticated")
	}
	engine.Use(auth.Middleware(jwtAuth))
	engine.Use(audit.WriteMiddleware(auditClient, logger))

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)
	dealHandler := &handler.DealHandler{Deals: dealService, Logger: logger}
	dealHandler.Register(engine)
	stageHandler := &handler.StageHandler{
		Pipeline:       controller,
		Runs:           runs,
		Audit:          auditClient,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	stageHandler.Register(engine)
	portfolioHandler := &handler.PortfolioHandler{Aggregator: aggregator, Logger: logger}
	portfolioHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Digest.Enabled {
		digest := &service.DigestService{Insights: aggregator, Sink: auditClient, Logger: logger, TopN: cfg.Digest.TopN}
		if _, err := cronRunner.Add("portfolio_digest", cfg.Digest.Schedule, digest.Job); err != nil {
			logger.Warn("cron register portfolio digest failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func initAuditClient(cfg config.AuditConfig, apiKey string, logger *zap.Logger) *audit.Client {
	p := audit.NewClient(cfg.BaseURL, apiKey, cfg.Agent)
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.Authorize(ctx); err != nil {
		logger.Warn("audit authorize failed, audit disabled", zap.Error(err))
		return nil
	}
	logger.Info("audit sink authorized")
	return p
}
