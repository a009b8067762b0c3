package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"subjectchat/internal/api"
	"subjectchat/internal/config"
	"subjectchat/internal/core"
	"subjectchat/internal/provider"
	"subjectchat/internal/store"
	"subjectchat/internal/subject"
)

func newLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "DEBUG") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Persistence is optional: without DATABASE_URL every store call reports
	// ErrUnavailable and the affected endpoints degrade instead of failing.
	var st store.Store
	if cfg.DatabaseURL != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		defer sqliteStore.Close()
		st = sqliteStore
		logger.Info("database initialized", zap.String("database_url", cfg.DatabaseURL))
	} else {
		st = store.NewUnavailable()
		logger.Warn("no DATABASE_URL configured, persistence endpoints will degrade")
	}

	resolver := subject.NewResolver(st, logger)
	if cfg.SubjectsFile != "" {
		if err := resolver.LoadOverrides(cfg.SubjectsFile); err != nil {
			logger.Fatal("failed to load subject overrides", zap.Error(err))
		}
		logger.Info("subject overrides loaded", zap.String("file", cfg.SubjectsFile))
	}

	prov := provider.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	if cfg.OpenAIBaseURL == "" {
		logger.Warn("no OPENAI_BASE_URL configured, provider runs in stub mode")
	}

	chatService := core.NewChatService(st, resolver, prov, logger)
	apiHandler := api.NewAPIHandler(chatService, logger)
	router := api.NewRouter(apiHandler, cfg.CORSOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: streamed completions hold the connection open for
		// the duration of the upstream stream.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
