// Package llm provides the chat-completion provider used by the RAG engine.
package llm

import "context"

// CompletionProvider submits a single prompt and returns the model's text.
// Callers own the fallback behaviour when a completion fails: the RAG
// engine substitutes a deterministic mock answer rather than propagating
// the error.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
