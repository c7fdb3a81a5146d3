// Package api defines the wire types shared between the HTTP handlers, the
// chat-template applier, and the tool-call/thinking parsers. The shapes
// mirror what a client sends and what the engine adapter returns; they are
// intentionally independent of any particular OpenAI request/response
// envelope, which lives in package openai.
package api

import "time"

// Role is the speaker of a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPart is one element of a typed-array message content, as sent by
// clients that split a message into text/image parts. Only text parts are
// interpreted; other types are preserved but ignored by the template
// applier, matching the gateway's non-goal of multimodal input handling.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message is a single chat turn. Content and ContentParts are mutually
// exclusive: a client sends one or the other, never both.
type Message struct {
	Role             Role          `json:"role"`
	Content          string        `json:"content,omitempty"`
	ContentParts     []ContentPart `json:"content_parts,omitempty"`
	ReasoningContent string        `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall    `json:"tool_calls,omitempty"`
	ToolName         string        `json:"name,omitempty"`
	ToolCallID       string        `json:"tool_call_id,omitempty"`
}

// Text returns the message's canonical text regardless of whether it
// arrived as Content or ContentParts.
func (m Message) Text() string {
	if m.Content != "" || len(m.ContentParts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.ContentParts {
		if p.Type == "" || p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// ToolCallFunction is the named invocation carried by a ToolCall.
type ToolCallFunction struct {
	Name string `json:"name"`
	// Arguments is always serialized JSON text, per the gateway's wire
	// contract -- never a decoded map, so partial streaming deltas can be
	// appended without re-encoding.
	Arguments string `json:"arguments"`
}

// ToolCall is a structured function invocation emitted by the model.
type ToolCall struct {
	ID       string           `json:"id"`
	Index    int              `json:"index"`
	Function ToolCallFunction `json:"function"`
	// Complete flips true once the closing marker for this call has been
	// consumed by the streaming parser.
	Complete bool `json:"-"`
}

// ToolFunction describes one callable function offered to the model.
type ToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Parameters is a JSON-schema object, kept raw so it can be re-embedded
	// into the prompt verbatim by the template applier.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Tool is one entry of a chat request's "tools" array.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolChoice mirrors the OpenAI tool_choice union: a bare string
// ("auto"|"none"|"required") or an object pinning a specific function.
type ToolChoice struct {
	Mode     string        `json:"-"` // "auto", "none", "required", or "function"
	Function *ToolFunction `json:"-"`
}

// Options carries the generation parameters the engine adapter accepts.
// Field names match the gateway's JSON request fields; Options is what
// survives request validation and is handed to the engine unchanged.
type Options struct {
	NumPredict        int     `json:"num_predict"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	FrequencyPenalty  float64 `json:"frequency_penalty"`
	PresencePenalty   float64 `json:"presence_penalty"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	RepeatLastN       int     `json:"repeat_last_n"`
	Stop              []string `json:"stop"`
}

// DefaultOptions returns the engine defaults applied when a request omits
// a field, matching the ranges documented in the gateway's request schema.
func DefaultOptions() Options {
	return Options{
		NumPredict:        -1,
		Temperature:       1.0,
		TopP:              1.0,
		TopK:              0,
		FrequencyPenalty:  0,
		PresencePenalty:   0,
		RepetitionPenalty: 1.0,
		RepeatLastN:       64,
	}
}

// ResponseFormat pins the model to plain text, an unconstrained JSON
// object, or a specific JSON schema.
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *JSONSchemaSpec `json:"json_schema,omitempty"`
}

type JSONSchemaSpec struct {
	Name   string         `json:"name,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

// ChatRequest is the parsed body of POST /v1/chat/completions.
type ChatRequest struct {
	Model            string          `json:"model"`
	Messages         []Message       `json:"messages"`
	Tools            []Tool          `json:"tools"`
	ToolChoice       *ToolChoice     `json:"-"`
	ResponseFormat   *ResponseFormat `json:"response_format"`
	Stream           bool            `json:"stream"`
	StreamUsage      bool            `json:"-"` // stream_options.include_usage, default true
	Options          Options         `json:"-"`
}

// GenerateRequest is the parsed body of POST /v1/completions.
type GenerateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Suffix  string  `json:"suffix"`
	Stream  bool    `json:"stream"`
	Options Options `json:"-"`
}

// Metrics carries the accounting produced by package stats for one
// generation, and is embedded in both chat and completion responses.
type Metrics struct {
	PromptEvalCount int           `json:"prompt_eval_count"`
	PromptEvalTime  time.Duration `json:"prompt_eval_duration"`
	EvalCount       int           `json:"eval_count"`
	EvalTime        time.Duration `json:"eval_duration"`
	TimeToFirstToken time.Duration `json:"-"`
}

// FinishReason classifies why generation stopped.
type FinishReason string

const (
	FinishStop       FinishReason = "stop"
	FinishLength     FinishReason = "length"
	FinishToolCalls  FinishReason = "tool_calls"
)

// ChatResponse is what the dispatcher's worker task assembles per token (or
// once, for a non-streaming request) before the OpenAI envelope is applied.
type ChatResponse struct {
	Model      string
	CreatedAt  time.Time
	Message    Message
	Done       bool
	DoneReason FinishReason
	Metrics    Metrics
}

// GenerateResponse is the text-completion analogue of ChatResponse.
type GenerateResponse struct {
	Model      string
	CreatedAt  time.Time
	Response   string
	Done       bool
	DoneReason FinishReason
	Metrics    Metrics
}

// EmbedRequest is the parsed body of POST /v1/embeddings.
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbedResponse carries one embedding vector per input string.
type EmbedResponse struct {
	Embeddings      [][]float32
	PromptEvalCount int
}

// RerankRequest is the parsed body of POST /v1/rerank.
type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// RerankResult is one scored document.
type RerankResult struct {
	Index           int
	RelevanceScore  float64
	Document        string
}

// TokenizeRequest is the parsed body of POST /tokenize.
type TokenizeRequest struct {
	Content    string `json:"content"`
	WithPieces bool   `json:"with_pieces"`
}

// TokenPiece is one token/piece pair for the with_pieces tokenize variant.
type TokenPiece struct {
	ID    int    `json:"id"`
	Piece string `json:"piece"`
}

// DetokenizeRequest is the parsed body of POST /detokenize.
type DetokenizeRequest struct {
	Tokens []int `json:"tokens"`
}

// ModelInfo is one entry of the /v1/models listing.
type ModelInfo struct {
	Name       string
	ModifiedAt time.Time
}

// TokenLogprob is one token/logprob pair.
type TokenLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

// Logprob is the selected token's logprob plus, optionally, the top-K
// alternatives considered at that position.
type Logprob struct {
	TokenLogprob
	TopLogprobs []TokenLogprob `json:"top_logprobs,omitempty"`
}
