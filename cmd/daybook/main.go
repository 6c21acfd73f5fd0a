package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ent0n29/daybook/internal/assistant"
	"github.com/ent0n29/daybook/internal/brain"
	"github.com/ent0n29/daybook/internal/config"
	"github.com/ent0n29/daybook/internal/httpapi"
	"github.com/ent0n29/daybook/internal/observability"
	"github.com/ent0n29/daybook/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("timezone error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := tasks.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("task store init failed: %v", err)
	}
	defer store.Close()
	storeMode := "in-memory"
	if cfg.DatabaseURL != "" {
		storeMode = "postgres"
	}
	log.Printf("task store: %s", storeMode)

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:    cfg.BrainMode,
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.BrainTimeout,
	})
	if err != nil {
		log.Fatalf("interpreter init failed: %v", err)
	}
	if _, ok := adapter.(*brain.MockAdapter); ok {
		log.Printf("interpreter: mock (no api key)")
	} else {
		log.Printf("interpreter: openai (%s)", cfg.OpenAIModel)
	}

	manager := tasks.NewManager(store, cfg.SeriesHorizonDays)
	manager.OnMaterialize(func(created int) {
		metrics.SeriesInstances.Add(float64(created))
	})

	svc := assistant.New(manager, adapter, metrics, assistant.Config{
		Location:           loc,
		DefaultClock:       cfg.DefaultWallClock,
		DefaultReminderMin: cfg.DefaultReminderMin,
	})

	api := httpapi.New(cfg, svc, manager, metrics, loc, storeMode)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
