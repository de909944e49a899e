package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"parley/internal/backend"
	"parley/internal/config"
	"parley/internal/engine"
	"parley/internal/httpapi"
	"parley/internal/memory"
	"parley/internal/observability"
	"parley/internal/scheduler"
	"parley/internal/session"
	"parley/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	archive, err := memory.NewArchive(ctx, cfg.DatabaseURL, cfg.ArchiveDir)
	if err != nil {
		log.Fatalf("archive init failed: %v", err)
	}
	defer archive.Close()

	generator, err := backend.New(backend.Config{
		Provider:      cfg.BackendProvider,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatalf("backend init failed: %v", err)
	}
	log.Printf("generation backend: %s", generator.Name())

	sessions := session.NewManager(func() *engine.Engine {
		return engine.New(generator, metrics)
	}, cfg.SessionInactivityTimeout)

	autosaver := scheduler.NewAutosaver(sessions, archive, metrics)
	sessions.SetExpireHook(func(s *session.Session, eng *engine.Engine) {
		metrics.ObserveSessionEvent("expired")
		metrics.SetActiveSessions(sessions.ActiveCount())
		autosaver.SaveSession(context.Background(), s.ID, eng)
	})

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.JanitorInterval)

	if cfg.AutosaveSpec != "" {
		if err := autosaver.Start(cfg.AutosaveSpec); err != nil {
			log.Fatalf("autosave schedule error: %v", err)
		}
		defer autosaver.Stop()
	}

	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramBotToken, sessions)
		if err != nil {
			log.Fatalf("telegram bot init failed: %v", err)
		}
		go bot.Start(runCtx)
	}

	api := httpapi.New(cfg, sessions, archive, metrics, generator.Name())
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

	runCancel()

	// Archive whatever is still in memory before going down.
	for _, meta := range sessions.Active() {
		if eng, err := sessions.Engine(meta.ID); err == nil {
			autosaver.SaveSession(ctx, meta.ID, eng)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
