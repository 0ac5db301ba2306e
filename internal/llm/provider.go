// Package llm drives fact extraction over a conversation via a pluggable
// completion Provider, in the idiom of the reference backend's
// internal/service/llm package (Provider interface, CompletionOptions,
// prompt-builder methods, fenced-JSON response parsing).
package llm

import "context"

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	Format      string // "json" requests a structured reply
}

// Provider is the pluggable completion backend.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
	IsAvailable() bool
}
