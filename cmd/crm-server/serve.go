package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"crm-assistant/internal/api"
	"crm-assistant/internal/assistant/llm"
	"crm-assistant/internal/assistant/orchestrator"
	savelead "crm-assistant/internal/assistant/tools/save-lead"
	websearch "crm-assistant/internal/assistant/tools/web-search"
	"crm-assistant/internal/cache"
	"crm-assistant/internal/common/config"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/observability"
	"crm-assistant/internal/crm"
	"crm-assistant/internal/searchindex"
	"crm-assistant/internal/store"
	"crm-assistant/internal/users"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	zapLog := newZapLogger(cfg.Logging)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting crm-server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("tenancy", cfg.Tenancy.Mode),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	pg, err := connectPostgres(ctx, cfg.Database.Postgres, zapLog)
	if err != nil {
		return err
	}
	defer pg.Close()

	rdb, err := connectRedis(ctx, cfg.Database.Redis, zapLog)
	if err != nil {
		return err
	}
	defer rdb.Close()

	es, err := connectElasticsearch(ctx, cfg.Database.Elasticsearch, zapLog)
	if err != nil {
		return err
	}
	var index searchindex.CompanyIndex
	if es != nil {
		idx := searchindex.NewElasticIndex(es.Client, cfg.Database.Elasticsearch.Index, log)
		if err := idx.EnsureIndex(ctx); err != nil {
			zapLog.Warn("search index not ready", zap.Error(err))
		}
		index = idx
	}

	pgStore := store.NewPostgresStore(pg.DB, log)
	owners := users.NewResolver(pgStore, rdb.Client, config.GetDuration(cfg.Database.Redis.OwnerTTL), log)
	revalidator := cache.NewRedisRevalidator(rdb.Client, log)

	registry := orchestrator.NewRegistry(
		websearch.NewHandler(websearch.FromAppConfig(cfg.APIs.WebSearch), nil, log),
		savelead.NewHandler(savelead.ServiceDependencies{
			Owners:      owners,
			Store:       pgStore,
			Revalidator: revalidator,
			Index:       index,
			Logger:      log,
		}),
	)
	completer := llm.New(cfg.APIs.OpenAI, nil)
	if !completer.Configured() {
		zapLog.Warn("apis.openai.api_key is not set; /api/ai/process will fail until it is")
	}
	loop := orchestrator.New(completer, registry, orchestrator.ConfigFromApp(cfg.Assistant), obs, log)

	crmService := crm.NewService(crm.Dependencies{
		Store:       pgStore,
		Owners:      owners,
		Index:       index,
		Revalidator: revalidator,
		Shared:      cfg.Tenancy.Shared(),
		Logger:      log,
	})

	router := api.NewRouter(api.RouterDeps{
		AI: api.NewAIHandler(loop, api.AIConfig{
			Timeout:       config.GetDuration(cfg.Assistant.RequestTimeout),
			MaxIterations: cfg.Assistant.MaxIterations,
		}, log),
		CRM: api.NewCRMHandler(crmService, log),
		Checks: map[string]api.Check{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		},
		Identity: api.DefaultIdentityHeaders(cfg.Server.IdentityHeader),
		Logger:   log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received, draining requests...", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	zapLog.Info("crm-server stopped")
	return nil
}
