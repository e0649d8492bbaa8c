package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mfranzon/donna/internal/calendar"
	"github.com/mfranzon/donna/internal/config"
	"github.com/mfranzon/donna/internal/connectivity"
	"github.com/mfranzon/donna/internal/executor"
	"github.com/mfranzon/donna/internal/googleauth"
	"github.com/mfranzon/donna/internal/httpapi"
	"github.com/mfranzon/donna/internal/intent"
	"github.com/mfranzon/donna/internal/llm"
	"github.com/mfranzon/donna/internal/observability"
	"github.com/mfranzon/donna/internal/settings"
	"github.com/mfranzon/donna/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := tasks.NewStore(ctx, cfg.DatabaseURL, cfg.TasksFile)
	if err != nil {
		log.Fatalf("task store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("task store: postgres")
	} else {
		log.Printf("task store: file (%s)", cfg.TasksFile)
	}

	generator := llm.NewOllamaGenerator(cfg.OllamaURL, cfg.LLMTimeout)
	planner := llm.NewPlanner(generator, cfg.FastModel, cfg.SmartModel, metrics)
	extractor := llm.NewExtractor(generator, cfg.FastModel, cfg.SmartModel)
	classifier := intent.NewClassifier(generator, cfg.FastModel)

	auth := googleauth.NewService(cfg.GoogleCredentialsFile, cfg.GoogleTokenFile, cfg.GoogleRedirectURL)
	cal := calendar.NewClient(auth, metrics)
	settingsStore := settings.NewStore(cfg.SettingsFile)
	broker := tasks.NewBroker()

	prober := connectivity.NewDialProber(cfg.ProbeAddr, cfg.ProbeTimeout)
	exec := executor.New(store, prober, extractor, cal, settingsStore, broker, metrics)
	service := executor.NewService(store, planner, classifier, exec, broker, metrics)

	monitor := connectivity.NewMonitor(cfg.MonitorInterval, prober, store, exec, metrics)

	api := httpapi.New(cfg, service, auth, settingsStore, cal, broker, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go monitor.Run(runCtx)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
