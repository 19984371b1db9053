// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the Handlers aggregate and the narrow collaborator
// interfaces it consumes. Handlers are transport-thin: they validate and
// normalize inputs, delegate to the service layer, and translate outcomes
// into the canonical wire shapes. Business rules live in the services,
// search, and guard packages.
package handlers

import (
	"context"
	"time"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
	"github.com/connexus-ai/hr-rag-service/internal/metrics"
	"github.com/connexus-ai/hr-rag-service/internal/services"
)

// RetrieveService is the slice of the search engine the retrieval endpoint
// needs.
type RetrieveService interface {
	Search(ctx context.Context, q domain.Query) ([]domain.RetrievalResult, error)
}

// ChatOrchestrator runs the chat pipeline in streaming or debug mode.
type ChatOrchestrator interface {
	Stream(ctx context.Context, messages []domain.Message, maxOutputTokens int, emit func(token string) error) error
	Debug(ctx context.Context, messages []domain.Message, maxOutputTokens int) (*services.DebugResult, error)
}

// HealthStore is the probe surface of the persistent store.
type HealthStore interface {
	Ping(ctx context.Context) (time.Duration, error)
	HasVectorExtension(ctx context.Context) (bool, error)
}

// EmbedderProbe checks embedder reachability with a minimal request.
type EmbedderProbe interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Handlers bundles the collaborators behind the HTTP endpoints. Construct
// with New; the zero value is not usable.
type Handlers struct {
	retriever RetrieveService
	chat      ChatOrchestrator
	registry  *metrics.Registry
	health    *healthChecker
}

// New wires the handler set. probe may be nil, in which case the health
// endpoint reports the embedder check as skipped.
func New(retriever RetrieveService, chat ChatOrchestrator, registry *metrics.Registry, store HealthStore, probe EmbedderProbe) *Handlers {
	return &Handlers{
		retriever: retriever,
		chat:      chat,
		registry:  registry,
		health:    newHealthChecker(store, probe),
	}
}
