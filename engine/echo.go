package engine

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/runner/common"
)

// EchoEngine is a deterministic reference backend: it tokenizes on rune
// boundaries and "generates" by echoing a derivative of the prompt back
// word by word. It exists so the dispatcher, the SSE framer, and the
// template applier can be exercised end to end without a real model, and
// so the gateway's test suite can assert on exact output.
//
// seqs bounds the number of concurrent Completion calls the engine services
// at once, the same role runner/llamarunner/runner.go's seqsSem plays for a
// real backend's KV-cache slots.
type EchoEngine struct {
	mu     sync.Mutex
	closed bool
	seqs   *semaphore.Weighted
}

// NewEchoEngine constructs a ready-to-use EchoEngine that services up to
// maxConcurrent Completion calls at once. maxConcurrent <= 0 means
// unbounded, matching a semaphore sized so large it never blocks.
func NewEchoEngine(maxConcurrent int) *EchoEngine {
	if maxConcurrent <= 0 {
		maxConcurrent = 1 << 20
	}
	return &EchoEngine{seqs: semaphore.NewWeighted(int64(maxConcurrent))}
}

func (e *EchoEngine) Ready(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	return nil
}

func (e *EchoEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Encode assigns each rune its code point as a token id. It is not a real
// tokenizer, but it is a total, reversible function over valid UTF-8,
// which is all the gateway's boundary handling needs to exercise.
func (e *EchoEngine) Encode(ctx context.Context, content string) ([]int, error) {
	tokens := make([]int, 0, len(content))
	for _, r := range content {
		tokens = append(tokens, int(r))
	}
	return tokens, nil
}

func (e *EchoEngine) Decode(ctx context.Context, tokens []int) (string, error) {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteRune(rune(t))
	}
	return sb.String(), nil
}

// Completion "generates" a response deterministically from the prompt: it
// echoes the prompt's words, one by one, each as its own token
// callback, so streaming tests can assert exact framing and timing without
// depending on a real model's nondeterminism.
func (e *EchoEngine) Completion(ctx context.Context, req CompletionRequest, fn func(Token)) error {
	if err := e.Ready(ctx); err != nil {
		return err
	}
	if err := e.seqs.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.seqs.Release(1)

	words := strings.Fields(req.Prompt)
	if len(words) == 0 {
		words = []string{"(empty)"}
	}

	limit := req.Options.NumPredict
	if limit < 0 || limit > len(words) {
		limit = len(words)
	}

	var emitted []string
	for i := 0; i < limit; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		text := words[i]
		if i > 0 {
			text = " " + text
		}

		candidate := append(append([]string{}, emitted...), text)
		if hit, stop := common.FindStop(strings.Join(candidate, ""), req.Options.Stop); hit {
			truncated, _ := common.TruncateStop(candidate, stop)
			if delta := strings.Join(truncated, "")[len(strings.Join(emitted, "")):]; delta != "" {
				fn(Token{Text: delta})
			}
			fn(Token{Done: true, DoneReason: api.FinishStop})
			return nil
		}

		emitted = candidate
		fn(Token{Text: text})
	}

	reason := api.FinishStop
	if limit < len(words) {
		reason = api.FinishLength
	}
	fn(Token{Done: true, DoneReason: reason})
	return nil
}

// Embedding derives a fixed-length vector from the SHA-256 of input, so
// identical input always produces an identical, normalized-looking vector
// without any real model weights.
func (e *EchoEngine) Embedding(ctx context.Context, input string) ([]float32, error) {
	sum := sha256.Sum256([]byte(input))
	vec := make([]float32, 8)
	for i := range vec {
		bits := binary.BigEndian.Uint32(sum[i*4 : i*4+4])
		vec[i] = float32(bits%10000)/10000.0 - 0.5
	}
	return vec, nil
}

var errClosed = errEngineClosed{}

type errEngineClosed struct{}

func (errEngineClosed) Error() string { return "engine: closed" }
