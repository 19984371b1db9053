// Chat HTTP handler.
//
// POST /api/v1/chat runs the grounded chat pipeline. Two response modes:
//
//   - streaming (default): tokens are forwarded to the client as
//     Server-Sent-Events `data:` fragments in provider order, terminated by
//     a `data: [DONE]` marker;
//   - debug: the full answer is materialized and returned as one JSON object
//     together with the retrieval artifacts that grounded it.
//
// The handler validates the conversation shape, screens user turns with the
// injection filter, and delegates orchestration to the chat service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
	"github.com/connexus-ai/hr-rag-service/internal/guard"
	"github.com/connexus-ai/hr-rag-service/internal/http/middleware"
)

// Chat request bounds and defaults.
const (
	maxMessages         = 50
	maxContentRunes     = 500
	maxOutputTokensCap  = 2000
	defaultOutputTokens = 800
	defaultLocale       = "en"
)

// streamDoneMarker terminates every successful token stream.
const streamDoneMarker = "[DONE]"

// streamDelta is the JSON payload of one SSE fragment. Encoding the token
// keeps the framing intact when the model emits newlines.
type streamDelta struct {
	Delta string `json:"delta"`
}

// ChatMessage is one conversational turn supplied by the client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the JSON payload for the chat endpoint.
//
// Locale is accepted and defaulted but currently unused; it reserves room
// for localized prompt variants without a wire format change. Debug switches
// the response from token streaming to a single materialized JSON object;
// the same toggle is reachable as the ?debug=1 query parameter.
type ChatRequest struct {
	Messages        []ChatMessage `json:"messages"`
	MaxOutputTokens *int          `json:"max_output_tokens"`
	Locale          string        `json:"locale"`
	Debug           bool          `json:"debug"`
}

// RetrievedDoc is one retrieval artifact echoed in debug responses.
type RetrievedDoc struct {
	ChunkID       string  `json:"chunk_id"`
	Content       string  `json:"content"`
	Similarity    float64 `json:"similarity"`
	SourceFile    string  `json:"source_file,omitempty"`
	DocumentTitle string  `json:"document_title,omitempty"`
}

// ChatDebugResponse is the debug-mode success envelope.
type ChatDebugResponse struct {
	Answer        string         `json:"answer"`
	RequestID     string         `json:"request_id,omitempty"`
	RetrievedDocs []RetrievedDoc `json:"retrieved_docs"`
}

// validate checks the conversation shape and returns the normalized inputs.
// The third return value lists field violations; empty means valid.
func (r *ChatRequest) validate() (messages []domain.Message, maxTokens int, errs []string) {
	if len(r.Messages) < 1 || len(r.Messages) > maxMessages {
		errs = append(errs, "messages: must contain 1..50 items")
	}
	for i, m := range r.Messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			errs = append(errs, fmt.Sprintf("messages[%d].role: must be \"user\" or \"assistant\"", i))
		}
		if n := utf8.RuneCountInString(m.Content); n < 1 || n > maxContentRunes {
			errs = append(errs, fmt.Sprintf("messages[%d].content: must be 1..500 characters", i))
		}
	}
	if n := len(r.Messages); n > 0 && r.Messages[n-1].Role != domain.RoleUser {
		errs = append(errs, "messages: last message must have role \"user\"")
	}

	maxTokens = defaultOutputTokens
	if r.MaxOutputTokens != nil {
		if *r.MaxOutputTokens < 1 || *r.MaxOutputTokens > maxOutputTokensCap {
			errs = append(errs, "max_output_tokens: must be 1..2000")
		} else {
			maxTokens = *r.MaxOutputTokens
		}
	}
	if errs != nil {
		return nil, 0, errs
	}

	messages = make([]domain.Message, len(r.Messages))
	for i, m := range r.Messages {
		messages[i] = domain.Message{Role: m.Role, Content: m.Content}
	}
	return messages, maxTokens, nil
}

// Chat handles POST /api/v1/chat.
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body is not valid JSON", nil)
		return
	}

	messages, maxTokens, errs := req.validate()
	if len(errs) > 0 {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidationFailed,
			"request failed validation", map[string]any{"errors": errs})
		return
	}

	// Screen every user turn. Assistant turns are the model's own prior
	// output and are exempt.
	for _, m := range messages {
		if m.Role == domain.RoleUser && guard.Suspicious(m.Content) {
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidationFailed,
				"message content was rejected", map[string]any{"reason": "suspicious_input"})
			return
		}
	}

	if req.Debug || debugQueryParam(c) {
		h.chatDebug(c, messages, maxTokens)
		return
	}
	h.chatStream(c, messages, maxTokens)
}

// debugQueryParam reports whether the request selects debug mode via the
// query string, as in POST /api/v1/chat?debug=1.
func debugQueryParam(c *gin.Context) bool {
	switch c.Query("debug") {
	case "1", "true":
		return true
	}
	return false
}

// chatDebug materializes the full answer and retrieval artifacts.
func (h *Handlers) chatDebug(c *gin.Context, messages []domain.Message, maxTokens int) {
	result, err := h.chat.Debug(c.Request.Context(), messages, maxTokens)
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	docs := make([]RetrievedDoc, 0, len(result.Retrieved))
	for _, r := range result.Retrieved {
		docs = append(docs, RetrievedDoc{
			ChunkID:       r.Chunk.ID,
			Content:       r.Chunk.Content,
			Similarity:    r.Similarity,
			SourceFile:    r.Document.SourceFile,
			DocumentTitle: r.Document.Title,
		})
	}
	ok(c, http.StatusOK, ChatDebugResponse{
		Answer:        result.Answer,
		RequestID:     middleware.RequestIDFrom(c),
		RetrievedDocs: docs,
	})
}

// chatStream forwards tokens as SSE fragments. Response headers are written
// lazily with the first token, so failures during retrieval or LLM startup
// still produce the normal JSON error envelope.
func (h *Handlers) chatStream(c *gin.Context, messages []domain.Message, maxTokens int) {
	flusher, _ := c.Writer.(http.Flusher)
	started := false

	emit := func(token string) error {
		if !started {
			hdr := c.Writer.Header()
			hdr.Set("Content-Type", "text/event-stream; charset=utf-8")
			hdr.Set("X-Accel-Buffering", "no")
			c.Writer.WriteHeader(http.StatusOK)
			started = true
		}
		payload, err := json.Marshal(streamDelta{Delta: token})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	err := h.chat.Stream(c.Request.Context(), messages, maxTokens, emit)
	switch {
	case err == nil:
		if !started {
			// An empty completion still yields a well-formed stream.
			if e := emit(""); e != nil {
				return
			}
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", streamDoneMarker)
		if flusher != nil {
			flusher.Flush()
		}
	case errors.Is(err, context.Canceled):
		// Client went away; nothing sensible left to write.
		middleware.LoggerFrom(c).Debug().Msg("chat stream cancelled by client")
		c.Abort()
	case started:
		// Headers are on the wire; the envelope is no longer expressible.
		// Terminate without the done marker so clients detect truncation.
		middleware.LoggerFrom(c).Error().Err(err).Msg("chat stream aborted mid-flight")
		c.Abort()
	default:
		failFromServiceErr(c, err)
	}
}
