// Package llm adapts the OpenAI API to the interfaces consumed by the
// retrieval engine and the chat orchestrator: batch embeddings and streaming
// chat completions.
//
// Error mapping is the main job here. Provider outages become
// ErrUnavailable, content-policy rejections become ErrContentFiltered, and
// context deadlines pass through untouched so the HTTP layer can translate
// them into gateway timeouts.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	openai "github.com/sashabaranov/go-openai"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
)

var (
	// ErrUnavailable indicates the provider could not be reached or failed
	// on its side. Mapped to 503 at the HTTP boundary.
	ErrUnavailable = errors.New("llm provider unavailable")

	// ErrContentFiltered indicates the provider refused the completion on
	// content-policy grounds. Mapped to 422 with reason content_filtered.
	ErrContentFiltered = errors.New("completion rejected by content filter")
)

// Client wraps the OpenAI SDK with the models and error mapping this service
// needs. Safe for concurrent use.
type Client struct {
	api        *openai.Client
	chatModel  string
	embedModel openai.EmbeddingModel
}

// NewClient builds a Client for the given credential and model ids.
func NewClient(apiKey, chatModel, embedModel string) *Client {
	return &Client{
		api:        openai.NewClient(apiKey),
		chatModel:  chatModel,
		embedModel: openai.EmbeddingModel(embedModel),
	}
}

// Embed returns one vector per input text, in input order. Vectors are
// requested at domain.EmbeddingDim dimensions and are L2-normalized by the
// provider.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      c.embedModel,
		Dimensions: domain.EmbeddingDim,
	})
	if err != nil {
		return nil, mapProviderErr(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrUnavailable, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Stream is one in-flight streaming completion. Recv returns tokens in
// provider order; io.EOF signals a normal end of stream. Close releases the
// underlying connection and is safe to call more than once.
type Stream struct {
	inner *openai.ChatCompletionStream
}

// Recv returns the next text fragment. A content-filter finish reason is
// surfaced as ErrContentFiltered; empty fragments (role-only deltas) are
// skipped internally.
func (s *Stream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", mapProviderErr(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason == openai.FinishReasonContentFilter {
			return "", ErrContentFiltered
		}
		if choice.Delta.Content == "" {
			continue
		}
		return choice.Delta.Content, nil
	}
}

// Close releases the stream.
func (s *Stream) Close() error { return s.inner.Close() }

// StreamChat starts a streaming completion with the fixed system text and
// the client-supplied conversation. maxOutputTokens bounds the reply length
// when positive. The stream is tied to ctx: cancelling the context aborts
// the completion, which is how client disconnects and idle timeouts
// propagate to the provider.
func (c *Client) StreamChat(ctx context.Context, systemText string, messages []domain.Message, maxOutputTokens int) (*Stream, error) {
	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)+1),
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemText,
	})
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if maxOutputTokens > 0 {
		req.MaxCompletionTokens = maxOutputTokens
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, mapProviderErr(err)
	}
	return &Stream{inner: stream}, nil
}

// mapProviderErr translates SDK errors into the package's taxonomy.
// Context cancellation and deadlines pass through unchanged.
func mapProviderErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusBadRequest && apiErr.Code == "content_filter" {
			return fmt.Errorf("%w: %s", ErrContentFiltered, apiErr.Type)
		}
		if apiErr.HTTPStatusCode >= http.StatusInternalServerError ||
			apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: upstream status %d", ErrUnavailable, apiErr.HTTPStatusCode)
		}
		return err
	}

	// Transport-level failures (DNS, refused connections, resets).
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
