// Package engine defines the boundary between the gateway and whatever
// actually turns tokens into more tokens. The real engine is an explicit
// black box: this package only describes the contract a backend must
// satisfy, plus a deterministic reference implementation used in tests and
// as a template for wiring a real one in.
package engine

import (
	"context"
	"time"

	"github.com/fastllm/gateway/api"
)

// Token is one piece of generated output, delivered incrementally.
type Token struct {
	Text       string
	Done       bool
	DoneReason api.FinishReason
}

// CompletionRequest is the normalized request handed to the engine, after
// the chat template (if any) has already been applied.
type CompletionRequest struct {
	Prompt  string
	Grammar string // not set by the gateway's handlers; JSON mode goes through an injected system prompt
	Options api.Options
}

// Engine is the adapter interface every backend implements: encode/decode
// text, run completion and embedding, and report readiness. Nothing above
// this interface knows or cares how a concrete engine turns a prompt into
// tokens.
type Engine interface {
	// Encode tokenizes content into the engine's vocabulary.
	Encode(ctx context.Context, content string) ([]int, error)
	// Decode turns a token sequence back into text.
	Decode(ctx context.Context, tokens []int) (string, error)
	// Completion streams tokens for prompt to fn until done or ctx is
	// cancelled. fn is called synchronously on the calling goroutine.
	Completion(ctx context.Context, req CompletionRequest, fn func(Token)) error
	// Embedding returns a single embedding vector for input.
	Embedding(ctx context.Context, input string) ([]float32, error)
	// Ready reports whether the engine can currently accept work.
	Ready(ctx context.Context) error
	// Close releases any resources the engine holds.
	Close() error
}

// Clock lets tests substitute a deterministic time source; production code
// uses time.Now via the zero value.
type Clock func() time.Time

func realClock() time.Time { return time.Now() }
