// Package openai translates between the gateway's internal api types and
// the wire format OpenAI-compatible clients send and expect.
package openai

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fastllm/gateway/api"
)

var finishReasonToolCalls = string(api.FinishToolCalls)

type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	Reasoning  string     `json:"reasoning_content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ChoiceLogprobs struct {
	Content []api.Logprob `json:"content"`
}

type Choice struct {
	Index        int             `json:"index"`
	Message      Message         `json:"message"`
	FinishReason *string         `json:"finish_reason"`
	Logprobs     *ChoiceLogprobs `json:"logprobs"`
}

type ChunkChoice struct {
	Index        int             `json:"index"`
	Delta        Message         `json:"delta"`
	FinishReason *string         `json:"finish_reason"`
	Logprobs     *ChoiceLogprobs `json:"logprobs,omitempty"`
}

type CompleteChunkChoice struct {
	Text         string          `json:"text"`
	Index        int             `json:"index"`
	FinishReason *string         `json:"finish_reason"`
	Logprobs     *ChoiceLogprobs `json:"logprobs,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string          `json:"name,omitempty"`
	Schema json.RawMessage `json:"schema"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type ChatCompletionRequest struct {
	Model            string          `json:"model"`
	Messages         []Message       `json:"messages"`
	Stream           bool            `json:"stream"`
	StreamOptions    *StreamOptions  `json:"stream_options"`
	MaxTokens        *int            `json:"max_tokens"`
	Stop             any             `json:"stop"`
	Temperature      *float64        `json:"temperature"`
	FrequencyPenalty *float64        `json:"frequency_penalty"`
	PresencePenalty  *float64        `json:"presence_penalty"`
	TopP             *float64        `json:"top_p"`
	TopK             *int            `json:"top_k"`
	ResponseFormat   *ResponseFormat `json:"response_format"`
	Tools            []Tool          `json:"tools"`
	ToolChoice       any             `json:"tool_choice,omitempty"`
}

type ChatCompletion struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	SystemFingerprint string   `json:"system_fingerprint"`
	Choices           []Choice `json:"choices"`
	Usage             Usage    `json:"usage"`
}

type ChatCompletionChunk struct {
	ID                string        `json:"id"`
	Object            string        `json:"object"`
	Created           int64         `json:"created"`
	Model             string        `json:"model"`
	SystemFingerprint string        `json:"system_fingerprint"`
	Choices           []ChunkChoice `json:"choices"`
	Usage             *Usage        `json:"usage,omitempty"`
}

type CompletionRequest struct {
	Model            string         `json:"model"`
	Prompt           string         `json:"prompt"`
	FrequencyPenalty float64        `json:"frequency_penalty"`
	MaxTokens        *int           `json:"max_tokens"`
	PresencePenalty  float64        `json:"presence_penalty"`
	Stop             any            `json:"stop"`
	Stream           bool           `json:"stream"`
	StreamOptions    *StreamOptions `json:"stream_options"`
	Temperature      *float64       `json:"temperature"`
	TopP             float64        `json:"top_p"`
	Suffix           string         `json:"suffix"`
}

type Completion struct {
	ID                string                `json:"id"`
	Object            string                `json:"object"`
	Created           int64                 `json:"created"`
	Model             string                `json:"model"`
	SystemFingerprint string                `json:"system_fingerprint"`
	Choices           []CompleteChunkChoice `json:"choices"`
	Usage             Usage                 `json:"usage"`
}

type CompletionChunk struct {
	ID                string                `json:"id"`
	Object            string                `json:"object"`
	Created           int64                 `json:"created"`
	Choices           []CompleteChunkChoice `json:"choices"`
	Model             string                `json:"model"`
	SystemFingerprint string                `json:"system_fingerprint"`
	Usage             *Usage                `json:"usage,omitempty"`
}

type ToolCall struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type Embedding struct {
	Object    string `json:"object"`
	Embedding any    `json:"embedding"`
	Index     int    `json:"index"`
}

type ListCompletion struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

type EmbeddingList struct {
	Object string         `json:"object"`
	Data   []Embedding    `json:"data"`
	Model  string         `json:"model"`
	Usage  EmbeddingUsage `json:"usage"`
}

type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type RerankDocument struct {
	Text string `json:"text"`
}

type RerankResult struct {
	Index          int            `json:"index"`
	RelevanceScore float64        `json:"relevance_score"`
	Document       RerankDocument `json:"document"`
}

type RerankResponse struct {
	Object string         `json:"object"`
	Model  string         `json:"model"`
	Data   []RerankResult `json:"data"`
	Usage  EmbeddingUsage `json:"usage"`
}

// NewError builds the {"error": {...}} envelope for a StatusError.
func NewError(err api.StatusError) api.ErrorResponse {
	return api.NewErrorResponse(err)
}

func ToUsage(m api.Metrics) Usage {
	return Usage{
		PromptTokens:     m.PromptEvalCount,
		CompletionTokens: m.EvalCount,
		TotalTokens:      m.PromptEvalCount + m.EvalCount,
	}
}

func ToToolCalls(tc []api.ToolCall) []ToolCall {
	out := make([]ToolCall, len(tc))
	for i, c := range tc {
		out[i].ID = c.ID
		out[i].Type = "function"
		out[i].Index = c.Index
		out[i].Function.Name = c.Function.Name
		out[i].Function.Arguments = c.Function.Arguments
	}
	return out
}

// ToChatCompletion converts a finished api.ChatResponse into the
// non-streaming chat completion envelope.
func ToChatCompletion(id string, r api.ChatResponse) ChatCompletion {
	toolCalls := ToToolCalls(r.Message.ToolCalls)

	reason := string(r.DoneReason)
	if r.DoneReason != api.FinishLength && len(toolCalls) > 0 {
		reason = finishReasonToolCalls
	}

	return ChatCompletion{
		ID:                id,
		Object:            "chat.completion",
		Created:           r.CreatedAt.Unix(),
		Model:             r.Model,
		SystemFingerprint: fmt.Sprintf("fastllm-%s", r.Model),
		Choices: []Choice{{
			Index: 0,
			Message: Message{
				Role:      string(api.RoleAssistant),
				Content:   r.Message.Content,
				ToolCalls: toolCalls,
				Reasoning: r.Message.ReasoningContent,
			},
			FinishReason: strPtrOrNil(reason),
		}},
		Usage: ToUsage(r.Metrics),
	}
}

// ToChunk converts one incremental api.ChatResponse into a streaming
// delta. toolCallSent tracks whether a prior chunk in this same stream
// already carried a tool call, so the finish_reason on the terminal chunk
// is still tool_calls even if this particular delta carries no new call.
func ToChunk(id string, r api.ChatResponse, toolCallSent bool) ChatCompletionChunk {
	toolCalls := ToToolCalls(r.Message.ToolCalls)

	var reason *string
	if r.Done {
		s := string(r.DoneReason)
		if r.DoneReason != api.FinishLength && (toolCallSent || len(toolCalls) > 0) {
			s = finishReasonToolCalls
		}
		reason = &s
	}

	return ChatCompletionChunk{
		ID:                id,
		Object:            "chat.completion.chunk",
		Created:           time.Now().Unix(),
		Model:             r.Model,
		SystemFingerprint: fmt.Sprintf("fastllm-%s", r.Model),
		Choices: []ChunkChoice{{
			Index: 0,
			Delta: Message{
				Role:      string(api.RoleAssistant),
				Content:   r.Message.Content,
				ToolCalls: toolCalls,
				Reasoning: r.Message.ReasoningContent,
			},
			FinishReason: reason,
		}},
	}
}

func ToCompletion(id string, r api.GenerateResponse) Completion {
	return Completion{
		ID:                id,
		Object:            "text_completion",
		Created:           r.CreatedAt.Unix(),
		Model:             r.Model,
		SystemFingerprint: fmt.Sprintf("fastllm-%s", r.Model),
		Choices: []CompleteChunkChoice{{
			Text:         r.Response,
			Index:        0,
			FinishReason: strPtrOrNil(string(r.DoneReason)),
		}},
		Usage: ToUsage(r.Metrics),
	}
}

func ToCompleteChunk(id string, r api.GenerateResponse) CompletionChunk {
	var reason *string
	if r.Done {
		reason = strPtrOrNil(string(r.DoneReason))
	}
	return CompletionChunk{
		ID:                id,
		Object:            "text_completion",
		Created:           time.Now().Unix(),
		Model:             r.Model,
		SystemFingerprint: fmt.Sprintf("fastllm-%s", r.Model),
		Choices: []CompleteChunkChoice{{
			Text:         r.Response,
			Index:        0,
			FinishReason: reason,
		}},
	}
}

func ToListCompletion(models []api.ModelInfo) ListCompletion {
	data := make([]Model, 0, len(models))
	for _, m := range models {
		data = append(data, Model{
			ID:      m.Name,
			Object:  "model",
			Created: m.ModifiedAt.Unix(),
			OwnedBy: "fastllm",
		})
	}
	return ListCompletion{Object: "list", Data: data}
}

// ToEmbeddingList converts an api.EmbedResponse to the wire envelope.
// encodingFormat is "float" (default) or "base64".
func ToEmbeddingList(model string, r api.EmbedResponse, encodingFormat string) EmbeddingList {
	data := make([]Embedding, 0, len(r.Embeddings))
	for i, e := range r.Embeddings {
		var embedding any = e
		if strings.EqualFold(encodingFormat, "base64") {
			embedding = floatsToBase64(e)
		}
		data = append(data, Embedding{Object: "embedding", Embedding: embedding, Index: i})
	}

	return EmbeddingList{
		Object: "list",
		Data:   data,
		Model:  model,
		Usage: EmbeddingUsage{
			PromptTokens: r.PromptEvalCount,
			TotalTokens:  r.PromptEvalCount,
		},
	}
}

func floatsToBase64(floats []float32) string {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// ToRerankResponse converts scored results, already sorted by the caller,
// into the wire envelope. Usage is always zero: reranking is scored from
// embeddings the gateway already computed, so it has no token cost of its
// own to report.
func ToRerankResponse(model string, results []api.RerankResult) RerankResponse {
	out := make([]RerankResult, len(results))
	for i, r := range results {
		out[i] = RerankResult{
			Index:          r.Index,
			RelevanceScore: r.RelevanceScore,
			Document:       RerankDocument{Text: r.Document},
		}
	}
	return RerankResponse{Object: "list", Model: model, Data: out, Usage: EmbeddingUsage{}}
}

// FromChatRequest converts the wire ChatCompletionRequest into the
// gateway's internal api.ChatRequest.
func FromChatRequest(r ChatCompletionRequest) (*api.ChatRequest, error) {
	messages, err := fromMessages(r.Messages)
	if err != nil {
		return nil, err
	}

	opts := api.DefaultOptions()
	if r.MaxTokens != nil {
		opts.NumPredict = *r.MaxTokens
	}
	if r.Temperature != nil {
		opts.Temperature = *r.Temperature
	}
	if r.TopP != nil {
		opts.TopP = *r.TopP
	}
	if r.TopK != nil {
		opts.TopK = *r.TopK
	}
	if r.FrequencyPenalty != nil {
		opts.FrequencyPenalty = *r.FrequencyPenalty
	}
	if r.PresencePenalty != nil {
		opts.PresencePenalty = *r.PresencePenalty
	}
	stops, err := fromStop(r.Stop)
	if err != nil {
		return nil, err
	}
	opts.Stop = stops

	if err := api.ValidateOptions(opts); err != nil {
		return nil, err
	}

	var tools []api.Tool
	for _, t := range r.Tools {
		tools = append(tools, api.Tool{
			Type: t.Type,
			Function: api.ToolFunction{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}

	var format *api.ResponseFormat
	if r.ResponseFormat != nil {
		format = &api.ResponseFormat{Type: r.ResponseFormat.Type}
		if r.ResponseFormat.JSONSchema != nil {
			var schema map[string]any
			if len(r.ResponseFormat.JSONSchema.Schema) > 0 {
				if err := json.Unmarshal(r.ResponseFormat.JSONSchema.Schema, &schema); err != nil {
					return nil, fmt.Errorf("invalid json_schema: %w", err)
				}
			}
			format.JSONSchema = &api.JSONSchemaSpec{Name: r.ResponseFormat.JSONSchema.Name, Schema: schema}
		}
		if strings.EqualFold(format.Type, "json_object") {
			format.Type = "json_object"
		}
	}

	includeUsage := true
	if r.StreamOptions != nil {
		includeUsage = r.StreamOptions.IncludeUsage
	}

	toolChoice, err := fromToolChoice(r.ToolChoice)
	if err != nil {
		return nil, err
	}

	return &api.ChatRequest{
		Model:          r.Model,
		Messages:       messages,
		Tools:          tools,
		ToolChoice:     toolChoice,
		ResponseFormat: format,
		Stream:         r.Stream,
		StreamUsage:    includeUsage,
		Options:        opts,
	}, nil
}

func fromToolChoice(choice any) (*api.ToolChoice, error) {
	switch c := choice.(type) {
	case nil:
		return nil, nil
	case string:
		return &api.ToolChoice{Mode: c}, nil
	case map[string]any:
		fn, ok := c["function"].(map[string]any)
		if !ok {
			return nil, errors.New("invalid tool_choice: missing function")
		}
		name, _ := fn["name"].(string)
		return &api.ToolChoice{Mode: "function", Function: &api.ToolFunction{Name: name}}, nil
	default:
		return nil, fmt.Errorf("invalid tool_choice type: %T", c)
	}
}

func fromMessages(msgs []Message) ([]api.Message, error) {
	var out []api.Message
	for _, msg := range msgs {
		toolName := msg.Name
		if strings.EqualFold(msg.Role, "tool") && toolName == "" && msg.ToolCallID != "" {
			toolName = nameFromToolCallID(msgs, msg.ToolCallID)
		}

		toolCalls, err := FromToolCalls(msg.ToolCalls)
		if err != nil {
			return nil, err
		}

		switch content := msg.Content.(type) {
		case string:
			out = append(out, api.Message{
				Role:             api.Role(msg.Role),
				Content:          content,
				ReasoningContent: msg.Reasoning,
				ToolCalls:        toolCalls,
				ToolName:         toolName,
				ToolCallID:       msg.ToolCallID,
			})
		case []any:
			var parts []api.ContentPart
			for _, c := range content {
				data, ok := c.(map[string]any)
				if !ok {
					return nil, errors.New("invalid message content part")
				}
				if data["type"] != "text" {
					// non-text content parts (e.g. images) are accepted but
					// not interpreted; see api.ContentPart.
					continue
				}
				text, _ := data["text"].(string)
				parts = append(parts, api.ContentPart{Type: "text", Text: text})
			}
			out = append(out, api.Message{
				Role:             api.Role(msg.Role),
				ContentParts:     parts,
				ReasoningContent: msg.Reasoning,
				ToolCalls:        toolCalls,
				ToolName:         toolName,
				ToolCallID:       msg.ToolCallID,
			})
		case nil:
			if len(toolCalls) == 0 {
				return nil, errors.New("message content must not be empty unless tool_calls is set")
			}
			out = append(out, api.Message{
				Role:             api.Role(msg.Role),
				ReasoningContent: msg.Reasoning,
				ToolCalls:        toolCalls,
				ToolCallID:       msg.ToolCallID,
			})
		default:
			return nil, fmt.Errorf("invalid message content type: %T", content)
		}
	}
	return out, nil
}

func fromStop(stop any) ([]string, error) {
	switch s := stop.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{s}, nil
	case []any:
		var out []string
		for _, v := range s {
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("invalid type in 'stop' array: %T", v)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid type for 'stop' field: %T", stop)
	}
}

func nameFromToolCallID(messages []Message, toolCallID string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		for _, tc := range messages[i].ToolCalls {
			if tc.ID == toolCallID {
				return tc.Function.Name
			}
		}
	}
	return ""
}

// FromToolCalls converts wire ToolCalls into the internal representation,
// validating that Arguments is well-formed JSON without decoding it, since
// the gateway re-emits Arguments verbatim.
func FromToolCalls(toolCalls []ToolCall) ([]api.ToolCall, error) {
	out := make([]api.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		if tc.Function.Arguments != "" && !json.Valid([]byte(tc.Function.Arguments)) {
			return nil, errors.New("invalid tool call arguments")
		}
		out[i] = api.ToolCall{
			ID:       tc.ID,
			Index:    tc.Index,
			Function: api.ToolCallFunction{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
			Complete: true,
		}
	}
	return out, nil
}

// FromCompleteRequest converts the wire CompletionRequest into an
// api.GenerateRequest.
func FromCompleteRequest(r CompletionRequest) (api.GenerateRequest, error) {
	opts := api.DefaultOptions()
	if r.MaxTokens != nil {
		opts.NumPredict = *r.MaxTokens
	}
	if r.Temperature != nil {
		opts.Temperature = *r.Temperature
	}
	if r.TopP != 0 {
		opts.TopP = r.TopP
	}
	opts.FrequencyPenalty = r.FrequencyPenalty
	opts.PresencePenalty = r.PresencePenalty

	stops, err := fromStop(r.Stop)
	if err != nil {
		return api.GenerateRequest{}, err
	}
	opts.Stop = stops

	if err := api.ValidateOptions(opts); err != nil {
		return api.GenerateRequest{}, err
	}

	return api.GenerateRequest{
		Model:   r.Model,
		Prompt:  r.Prompt,
		Suffix:  r.Suffix,
		Stream:  r.Stream,
		Options: opts,
	}, nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
