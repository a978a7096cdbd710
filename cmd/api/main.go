package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"renova/internal/adapter/repo"
	"renova/internal/http/handlers"
	"renova/internal/http/httpapi"
	"renova/internal/imaging"
	"renova/internal/infra"
	"renova/internal/pipeline"
	"renova/internal/providers/model"
	"renova/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	backend, err := storage.SelectBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage backend")
	}

	store := repo.NewGenerationRepository(dbpool)
	invoker := model.NewClient(model.Options{
		BaseURL: cfg.ModelAPIBaseURL,
		APIKey:  cfg.ModelAPIKey,
		Timeout: cfg.ModelTimeout,
	})

	orch := pipeline.NewOrchestrator(pipeline.Options{
		Router:     backend,
		Store:      store,
		Normalizer: imaging.NewNormalizer(logger),
		Invoker:    invoker,
		Fetcher:    model.NewHTTPFetcher(nil, 0),
		Logger:     logger,
		TempDir:    cfg.TempDir,
		MaxWidth:   cfg.MaxImageWidth,
		MaxHeight:  cfg.MaxImageHeight,
	})

	app := handlers.NewApp(cfg, logger, store, orch)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
