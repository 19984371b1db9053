// Package services implements the application layer of the RAG service:
// the chat orchestrator that ties retrieval, prompt assembly, and the
// streaming LLM together.
//
// This file centralizes service-level error values. Translation into HTTP
// statuses and error codes happens at the handler layer.
package services

import "errors"

var (
	// ErrNoUserMessage is returned when the conversation does not end with
	// a user-role message. The validator rejects this earlier; the check
	// here is a guard for programmatic callers.
	ErrNoUserMessage = errors.New("conversation must end with a user message")

	// ErrStreamIdleTimeout is returned when the LLM produced no token
	// within the streaming idle bound. Mapped to gateway_timeout.
	ErrStreamIdleTimeout = errors.New("llm stream idle timeout")
)
