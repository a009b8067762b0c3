// Package provider abstracts the chat-completion backend. The OpenAI
// implementation talks to any OpenAI-compatible /chat/completions endpoint;
// when no endpoint is configured it degrades to deterministic stub output so
// the rest of the system stays usable without a model.
package provider

import "context"

// Message is one chat turn on the provider wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is a buffered completion. Stub marks output produced without
// contacting any external provider; callers must treat it as a placeholder,
// not model output.
type Result struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Stub    bool   `json:"stub"`
}

// Provider is the completion backend consumed by the pipeline.
type Provider interface {
	// Complete sends one buffered chat-completion request. The system prompt
	// is prepended to the history as a system message.
	Complete(ctx context.Context, systemPrompt string, history []Message, maxTokens int, temperature float64) (Result, error)

	// CompleteStream produces a finite, non-restartable sequence of text
	// fragments, consumed exactly once. Both channels are closed when the
	// stream ends; at most one error is delivered. Cancelling ctx stops the
	// sequence and releases the upstream request.
	CompleteStream(ctx context.Context, systemPrompt string, history []Message, maxTokens int, temperature float64) (<-chan string, <-chan error)

	// Suggest derives up to maxCount short follow-up questions from the
	// learner's latest question. Every item is non-empty after trimming.
	Suggest(ctx context.Context, lastUserQuestion, systemPrompt string, maxCount int) ([]string, error)
}
