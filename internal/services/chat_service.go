package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
	"github.com/connexus-ai/hr-rag-service/internal/prompt"
)

// Chat-internal retrieval parameters. The similarity floor is deliberately
// lower than the retrieval endpoint's default so the model has weaker
// evidence available to cite or refuse from.
const (
	chatTopK          = 5
	chatMinSimilarity = 0.3
)

// Retriever is the slice of the search engine the orchestrator needs.
type Retriever interface {
	Search(ctx context.Context, q domain.Query) ([]domain.RetrievalResult, error)
}

// TokenStream yields LLM text fragments in provider order. Recv returns
// io.EOF on normal completion. Close releases the stream and is safe to
// call after an error.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// LLM starts streaming completions. Implementations must tie the stream to
// ctx so cancellation aborts the provider call.
type LLM interface {
	StreamChat(ctx context.Context, systemText string, messages []domain.Message, maxOutputTokens int) (TokenStream, error)
}

// ChatService runs the end-to-end chat pipeline: last user message →
// retrieval → grounded prompt → streaming LLM.
type ChatService struct {
	Retriever Retriever
	LLM       LLM

	// LLMTimeout bounds the whole completion in debug (materialized) mode.
	LLMTimeout time.Duration
	// StreamIdleTimeout bounds the gap between consecutive tokens when
	// streaming. Zero disables the watchdog (tests only).
	StreamIdleTimeout time.Duration
}

// DebugResult is the materialized chat response returned in debug mode.
type DebugResult struct {
	Answer    string
	Retrieved []domain.RetrievalResult
}

// retrieveAndBuild runs retrieval for the last (user) message and assembles
// the system text. Earlier messages are history only; they do not influence
// retrieval.
func (s *ChatService) retrieveAndBuild(ctx context.Context, messages []domain.Message) (string, []domain.RetrievalResult, error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != domain.RoleUser {
		return "", nil, ErrNoUserMessage
	}

	results, err := s.Retriever.Search(ctx, domain.Query{
		Text:          messages[len(messages)-1].Content,
		TopK:          chatTopK,
		MinSimilarity: chatMinSimilarity,
	})
	if err != nil {
		return "", nil, err
	}
	return prompt.Build(results), results, nil
}

// Stream runs the chat pipeline and forwards each LLM token to emit in
// order, without reordering or additional buffering. emit returning an
// error (typically a client disconnect) cancels the LLM call; the partial
// stream is not retried.
func (s *ChatService) Stream(ctx context.Context, messages []domain.Message, maxOutputTokens int, emit func(token string) error) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Stream",
		trace.WithAttributes(attribute.Int("chat.messages", len(messages))),
	)
	defer span.End()

	systemText, _, err := s.retrieveAndBuild(ctx, messages)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.LLM.StreamChat(ctx, systemText, messages, maxOutputTokens)
	if err != nil {
		return err
	}
	defer stream.Close()

	// Idle watchdog: cancelling the context aborts the provider call when
	// no token arrives within the bound. idleFired disambiguates our own
	// cancellation from a client disconnect.
	var idleFired atomic.Bool
	var idle *time.Timer
	if s.StreamIdleTimeout > 0 {
		idle = time.AfterFunc(s.StreamIdleTimeout, func() {
			idleFired.Store(true)
			cancel()
		})
		defer idle.Stop()
	}

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if idleFired.Load() {
				return ErrStreamIdleTimeout
			}
			return err
		}
		if idle != nil {
			idle.Reset(s.StreamIdleTimeout)
		}
		if err := emit(token); err != nil {
			return fmt.Errorf("forward token: %w", err)
		}
	}
}

// Debug runs the same pipeline but collects the full answer and returns it
// together with the retrieval artifacts, under the non-streaming LLM bound.
func (s *ChatService) Debug(ctx context.Context, messages []domain.Message, maxOutputTokens int) (*DebugResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Debug",
		trace.WithAttributes(attribute.Int("chat.messages", len(messages))),
	)
	defer span.End()

	if s.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.LLMTimeout)
		defer cancel()
	}

	systemText, retrieved, err := s.retrieveAndBuild(ctx, messages)
	if err != nil {
		return nil, err
	}

	stream, err := s.LLM.StreamChat(ctx, systemText, messages, maxOutputTokens)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		b.WriteString(token)
	}

	return &DebugResult{Answer: b.String(), Retrieved: retrieved}, nil
}
