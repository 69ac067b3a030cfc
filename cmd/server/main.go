package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/padchat/internal/api"
	"github.com/RichardoC/padchat/internal/auth"
	"github.com/RichardoC/padchat/internal/chat"
	"github.com/RichardoC/padchat/internal/config"
	"github.com/RichardoC/padchat/internal/db"
	"github.com/RichardoC/padchat/internal/llm"
	"github.com/RichardoC/padchat/internal/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server terminated", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) (err error) {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	generator, err := llm.New(llm.Config{
		BaseURL:    cfg.LLMBaseURL,
		Token:      cfg.LLMAPIKey,
		TextModel:  cfg.LLMTextModel,
		ImageModel: cfg.LLMImageModel,
		ImageSize:  cfg.LLMImageSize,
		Timeout:    cfg.LLMTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(chat.NewService(store, generator, logger), logger)
	router := api.NewRouter(handler, auth.NewAuthenticator([]byte(cfg.JWTSecret), cfg.JWTIssuer), api.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        cfg.MetricsEnabled,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (db.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return db.NewMemory(), nil
	}
	return db.New(cfg.DatabasePath)
}
