// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security and cache headers, authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Per-route chains in the order: metrics → auth → size → rate limit →
//     handler, so outcomes are recorded no matter which step short-circuits
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/connexus-ai/hr-rag-service/internal/config"
	"github.com/connexus-ai/hr-rag-service/internal/domain"
	"github.com/connexus-ai/hr-rag-service/internal/http/handlers"
	"github.com/connexus-ai/hr-rag-service/internal/http/middleware"
	"github.com/connexus-ai/hr-rag-service/internal/llm"
	"github.com/connexus-ai/hr-rag-service/internal/metrics"
	"github.com/connexus-ai/hr-rag-service/internal/search"
	"github.com/connexus-ai/hr-rag-service/internal/services"
)

// llmShim adapts the concrete LLM client to the services.LLM interface. The
// client returns its own stream type; the shim narrows it to the TokenStream
// the orchestrator consumes, keeping services decoupled from the provider
// package.
type llmShim struct{ c *llm.Client }

func (s llmShim) StreamChat(ctx context.Context, systemText string, messages []domain.Message, maxOutputTokens int) (services.TokenStream, error) {
	return s.c.StreamChat(ctx, systemText, messages, maxOutputTokens)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with credential and PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Security and cache headers (every response is no-store)
//  6. CORS (allowlist echo, first-origin fallback)
//  7. Gzip (streaming chat excluded; compression would buffer tokens)
//  8. Prometheus metrics and /metrics endpoint
//
// Authentication, payload caps, and rate limits are per-route, not global:
// health stays open for load balancers and the metrics endpoints skip the
// limiter by design.
func RegisterRoutes(r *gin.Engine, pg handlers.HealthStore, vs search.VectorStore, llmClient *llm.Client, reg *metrics.Registry, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Hardening and unconditional no-store cache directives
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Environment == "production",
		EnablePolicy: true,
	}))

	// 6) CORS
	registerCORS(r, cfg.CORS.AllowedOrigins)

	// 7) Compress everything except the token stream
	chatPath := cfg.APIBasePath + "/chat"
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{chatPath})))

	// 8) Prometheus metrics and scrape endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found", nil)
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed", nil)
	})

	// Dependency injection: services ← store/provider clients
	retriever := &search.Retriever{
		Embedder:     llmClient,
		Store:        vs,
		EmbedTimeout: cfg.Timeouts.Embedding,
		StoreTimeout: cfg.Timeouts.DBRead,
	}
	chatSvc := &services.ChatService{
		Retriever:         retriever,
		LLM:               llmShim{llmClient},
		LLMTimeout:        cfg.Timeouts.LLM,
		StreamIdleTimeout: cfg.Timeouts.LLMStream,
	}
	h := handlers.New(retriever, chatSvc, reg, pg, llmClient)

	// Error envelopes for the edge middleware, injected to keep the
	// middleware package free of handler imports.
	authFail := func(c *gin.Context, reason string) {
		handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized,
			"authentication required", map[string]any{"reason": reason})
	}
	rateLimitFail := func(c *gin.Context, retryAfterSeconds int) {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		handlers.Fail(c, http.StatusTooManyRequests, handlers.ErrCodeRateLimited,
			"too many requests", map[string]any{"retry_after_seconds": retryAfterSeconds})
	}
	payloadFail := func(c *gin.Context, limitBytes int64) {
		handlers.Fail(c, http.StatusRequestEntityTooLarge, handlers.ErrCodePayloadTooLarge,
			"request body too large", map[string]any{"limit_bytes": limitBytes})
	}

	auth := middleware.Auth(cfg.APISecretToken, authFail)
	payload := middleware.PayloadLimit(middleware.MaxPayloadBytes, payloadFail)
	limiter := middleware.NewSlidingWindowLimiter()

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/chat",
			middleware.AppMetrics(reg, "chat"),
			auth, payload,
			limiter.Handler("chat", middleware.ChatLimit, reg, rateLimitFail),
			h.Chat)
		api.POST("/retrieve",
			middleware.AppMetrics(reg, "retrieve"),
			auth, payload,
			limiter.Handler("retrieve", middleware.RetrieveLimit, reg, rateLimitFail),
			h.Retrieve)
		api.GET("/metrics",
			middleware.AppMetrics(reg, "metrics"),
			auth,
			h.Metrics)
		api.GET("/health",
			middleware.AppMetrics(reg, "health"),
			h.Health)
	}
}

// registerCORS implements the allowlist posture: the allowed origin is echoed
// back, any other (or absent) origin receives the first configured one.
// gin-contrib/cors serves allowlisted traffic, including preflight. Requests
// from unknown origins never reach it: that layer would 403 them, but origin
// enforcement is the browser's job, so the service answers normally and lets
// the mismatched Access-Control-Allow-Origin do the blocking client-side.
func registerCORS(r *gin.Engine, allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		return
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	first := allowedOrigins[0]

	allowlisted := cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"POST", "GET", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Access-Token"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})

	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			allowlisted(c)
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", first)
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Access-Token")
			h.Set("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

