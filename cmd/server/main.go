// Command server runs the HR knowledge-base RAG API.
//
// It loads configuration from the environment (with optional .env support),
// wires the Postgres/pgvector store, the OpenAI embedder and chat client,
// tracing, and the HTTP router, then serves until SIGINT/SIGTERM.
//
// Exit codes: 0 on normal shutdown, 1 on configuration or dependency
// startup failure, 2 when the listener cannot bind.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/connexus-ai/hr-rag-service/internal/config"
	httpapi "github.com/connexus-ai/hr-rag-service/internal/http"
	"github.com/connexus-ai/hr-rag-service/internal/llm"
	"github.com/connexus-ai/hr-rag-service/internal/metrics"
	"github.com/connexus-ai/hr-rag-service/internal/observability"
	"github.com/connexus-ai/hr-rag-service/internal/store"
	"github.com/connexus-ai/hr-rag-service/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("configuration invalid")
		return 1
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, cfg.Environment)
	if err != nil {
		log.Error().Err(err).Msg("tracing setup failed")
		return 1
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown incomplete")
		}
	}()

	pg, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error().Err(err).Msg("store connection failed")
		return 1
	}
	defer pg.Close()

	llmClient := llm.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.EmbeddingModel)
	reg := metrics.NewRegistry()

	r := gin.New()
	httpapi.RegisterRoutes(r, pg, pg, llmClient, reg, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Error().Err(err).Str("addr", srv.Addr).Msg("listener bind failed")
		return 2
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("env", cfg.Environment).
			Msg("server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	log.Info().Msg("server stopped")
	return 0
}
