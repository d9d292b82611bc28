package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/nazarchykur/usepopcorn/internal"
	"github.com/nazarchykur/usepopcorn/internal/cache"
	"github.com/nazarchykur/usepopcorn/internal/common"
	"github.com/nazarchykur/usepopcorn/internal/config"
	"github.com/nazarchykur/usepopcorn/internal/loki"
	"github.com/nazarchykur/usepopcorn/internal/watched"
	"github.com/nazarchykur/usepopcorn/pkg/imdb"
	"github.com/nazarchykur/usepopcorn/pkg/omdb"
	slogchi "github.com/samber/slog-chi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	serviceName    = "usepopcorn"
	serviceVersion = "0.1.0"
)

func main() {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to config.Load:", err)
	}

	loggerShutdown, err := common.InitLogger(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OtelExporterEndpoint)
	if err != nil {
		log.Fatal("Failed to common.InitLogger:", err)
	}

	instrumentationShutdown, err := common.InitInstrumentation(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OtelExporterEndpoint)
	if err != nil {
		log.Fatal("Failed to common.InitInstrumentation:", err)
	}

	if err := cache.Open(cfg.CachePath); err != nil {
		common.Log.Error("Failed to cache.Open", "err", err)
		os.Exit(1)
	}

	watchedStore, err := watched.Open(cfg.WatchedDBPath)
	if err != nil {
		common.Log.Error("Failed to watched.Open", "err", err)
		os.Exit(1)
	}

	omdbClient := omdb.NewClient(cfg.OMDBBaseURL, cfg.OMDBAPIKey)
	imdbClient := imdb.NewStalkrIMDB()
	lokiClient := loki.NewLoki(cfg.LokiHost)

	searchService := internal.NewSearchService(
		cfg.StatsWebsocketChannel,
		cfg.SearchMinQueryLength,
		cfg.SearchDebounce,
		omdbClient,
		imdbClient,
		lokiClient,
		watchedStore,
	)
	go searchService.StartPollingStats(cfg.StatsPollInterval)

	app, err := internal.NewApp(searchService, cfg.PublicHost)
	if err != nil {
		common.Log.Error("Failed to internal.NewApp", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(slogchi.New(common.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "POST", "DELETE"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Requested-With",
			"Accept",
			"Accept-Language",
			"Accept-Encoding",
			"Content-Language",
			"Origin",
		},
		MaxAge: 300,
	}))
	r.Get("/api/search", app.SearchHandler)
	r.Get("/api/title/{id}", app.TitleHandler)
	r.Get("/api/watched", app.WatchedListHandler)
	r.Put("/api/watched/{id}", app.AddWatchedHandler)
	r.Delete("/api/watched/{id}", app.RemoveWatchedHandler)
	r.Post("/api/watched/refresh", app.RefreshWatchedHandler)
	r.Get("/ws", app.WebsocketHandler)

	// Listen
	srv := &http.Server{
		Addr:    cfg.ServerListenAddr,
		Handler: otelhttp.NewHandler(r, "server"),
	}
	go func() {
		common.Log.Info("Listening", "addr", cfg.ServerListenAddr, "host", cfg.PublicHost)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Log.Error("Failed to http.Server.ListenAndServe", "err", err)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to http server shutdown", "err", err)
	}

	if err := cache.Close(); err != nil {
		common.Log.Error("Failed to cache.Close", "err", err)
	}

	if err := watchedStore.Close(); err != nil {
		common.Log.Error("Failed to watched.Store.Close", "err", err)
	}

	instrumentationShutdown(ctx)
	if err := loggerShutdown(ctx); err != nil {
		log.Println("Failed to logger shutdown:", err)
	}

	log.Println("Bye!")
}
