package openai

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fastllm/gateway/api"
)

func TestFromChatRequest(t *testing.T) {
	t.Run("plain text message", func(t *testing.T) {
		req, err := FromChatRequest(ChatCompletionRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "user", Content: "Hello"},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.Model != "test-model" {
			t.Fatalf("expected 'test-model', got %s", req.Model)
		}
		if req.Messages[0].Role != api.RoleUser {
			t.Fatalf("expected 'user', got %s", req.Messages[0].Role)
		}
		if req.Messages[0].Content != "Hello" {
			t.Fatalf("expected 'Hello', got %s", req.Messages[0].Content)
		}
	})

	t.Run("typed content parts", func(t *testing.T) {
		req, err := FromChatRequest(ChatCompletionRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "user", Content: []any{
					map[string]any{"type": "text", "text": "Hello"},
				}},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := req.Messages[0].Text(); got != "Hello" {
			t.Fatalf("expected 'Hello', got %s", got)
		}
	})

	t.Run("tool calls round trip", func(t *testing.T) {
		req, err := FromChatRequest(ChatCompletionRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "user", Content: "What's the weather in Paris?"},
				{Role: "assistant", ToolCalls: []ToolCall{
					{ID: "id", Type: "function", Function: struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					}{Name: "get_current_weather", Arguments: `{"location": "Paris, France", "format": "celsius"}`}},
				}},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.Messages[1].ToolCalls[0].Function.Name != "get_current_weather" {
			t.Fatalf("expected 'get_current_weather', got %s", req.Messages[1].ToolCalls[0].Function.Name)
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(req.Messages[1].ToolCalls[0].Function.Arguments), &args); err != nil {
			t.Fatalf("expected valid json arguments: %v", err)
		}
		if args["location"] != "Paris, France" {
			t.Fatalf("expected 'Paris, France', got %v", args["location"])
		}
	})

	t.Run("invalid content type forwarded as error", func(t *testing.T) {
		_, err := FromChatRequest(ChatCompletionRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "user", Content: 2},
			},
		})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "invalid message content type") {
			t.Fatalf("error was not forwarded, got %v", err)
		}
	})

	t.Run("options map onto typed Options", func(t *testing.T) {
		temp := 0.8
		req, err := FromChatRequest(ChatCompletionRequest{
			Model:       "test-model",
			Messages:    []Message{{Role: "user", Content: "hi"}},
			Temperature: &temp,
			Stop:        []any{"\n", "stop"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.Options.Temperature != 0.8 {
			t.Fatalf("expected 0.8, got %f", req.Options.Temperature)
		}
		if len(req.Options.Stop) != 2 || req.Options.Stop[0] != "\n" || req.Options.Stop[1] != "stop" {
			t.Fatalf("expected ['\\n', 'stop'], got %v", req.Options.Stop)
		}
	})

	t.Run("invalid stop type forwarded as error", func(t *testing.T) {
		_, err := FromChatRequest(ChatCompletionRequest{
			Model:    "test-model",
			Messages: []Message{{Role: "user", Content: "hi"}},
			Stop:     []any{1, 2},
		})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "invalid type in 'stop' array") {
			t.Fatalf("error was not forwarded, got %v", err)
		}
	})

	t.Run("tool_choice string mode", func(t *testing.T) {
		req, err := FromChatRequest(ChatCompletionRequest{
			Model:      "test-model",
			Messages:   []Message{{Role: "user", Content: "hi"}},
			ToolChoice: "auto",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.ToolChoice == nil || req.ToolChoice.Mode != "auto" {
			t.Fatalf("expected tool_choice mode 'auto', got %v", req.ToolChoice)
		}
	})

	t.Run("temperature out of range rejected", func(t *testing.T) {
		temp := 2.5
		_, err := FromChatRequest(ChatCompletionRequest{
			Model:       "test-model",
			Messages:    []Message{{Role: "user", Content: "hi"}},
			Temperature: &temp,
		})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		statusErr, ok := err.(api.StatusError)
		if !ok {
			t.Fatalf("error is %T, want api.StatusError", err)
		}
		if statusErr.Param != "temperature" {
			t.Fatalf("Param = %q, want temperature", statusErr.Param)
		}
	})

	t.Run("tool_choice pinned function", func(t *testing.T) {
		req, err := FromChatRequest(ChatCompletionRequest{
			Model:    "test-model",
			Messages: []Message{{Role: "user", Content: "hi"}},
			ToolChoice: map[string]any{
				"type":     "function",
				"function": map[string]any{"name": "get_current_weather"},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if req.ToolChoice == nil || req.ToolChoice.Function == nil || req.ToolChoice.Function.Name != "get_current_weather" {
			t.Fatalf("expected pinned function 'get_current_weather', got %v", req.ToolChoice)
		}
	})
}

func TestFromCompleteRequest(t *testing.T) {
	temp := 0.8
	req, err := FromCompleteRequest(CompletionRequest{
		Model:       "test-model",
		Prompt:      "Hello",
		Temperature: &temp,
		Stop:        []any{"\n", "stop"},
		Suffix:      "suffix",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.Options.Temperature != 0.8 {
		t.Fatalf("expected 0.8, got %f", req.Options.Temperature)
	}
	if len(req.Options.Stop) != 2 || req.Options.Stop[0] != "\n" || req.Options.Stop[1] != "stop" {
		t.Fatalf("expected ['\\n', 'stop'], got %v", req.Options.Stop)
	}
	if req.Suffix != "suffix" {
		t.Fatalf("expected 'suffix', got %s", req.Suffix)
	}
}

func TestFromCompleteRequestInvalidStop(t *testing.T) {
	_, err := FromCompleteRequest(CompletionRequest{
		Model:  "test-model",
		Prompt: "Hello",
		Stop:   []any{1, 2},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "invalid type in 'stop' array") {
		t.Fatalf("error was not forwarded, got %v", err)
	}
}

func TestFromCompleteRequestRejectsOutOfRangeTopP(t *testing.T) {
	_, err := FromCompleteRequest(CompletionRequest{
		Model:  "test-model",
		Prompt: "Hello",
		TopP:   1.5,
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	statusErr, ok := err.(api.StatusError)
	if !ok {
		t.Fatalf("error is %T, want api.StatusError", err)
	}
	if statusErr.Param != "top_p" {
		t.Fatalf("Param = %q, want top_p", statusErr.Param)
	}
}

func TestToChatCompletion(t *testing.T) {
	r := api.ChatResponse{
		Model:     "test-model",
		CreatedAt: time.Date(2024, 6, 17, 13, 45, 0, 0, time.UTC),
		Message:   api.Message{Role: api.RoleAssistant, Content: "hi there"},
		Done:      true,
		DoneReason: api.FinishStop,
		Metrics:   api.Metrics{PromptEvalCount: 10, EvalCount: 5},
	}

	resp := ToChatCompletion("chatcmpl-1", r)

	if resp.Object != "chat.completion" {
		t.Fatalf("expected 'chat.completion', got %s", resp.Object)
	}
	if resp.Choices[0].Message.Content != "hi there" {
		t.Fatalf("expected 'hi there', got %v", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].FinishReason == nil || *resp.Choices[0].FinishReason != "stop" {
		t.Fatalf("expected finish_reason 'stop', got %v", resp.Choices[0].FinishReason)
	}
	if resp.Usage.PromptTokens != 10 || resp.Usage.CompletionTokens != 5 {
		t.Fatalf("expected usage 10/5, got %+v", resp.Usage)
	}
}

func TestToChatCompletionWithToolCalls(t *testing.T) {
	r := api.ChatResponse{
		Model: "test-model",
		Message: api.Message{
			Role: api.RoleAssistant,
			ToolCalls: []api.ToolCall{
				{ID: "1", Function: api.ToolCallFunction{Name: "get_current_weather", Arguments: `{"location":"Paris"}`}},
			},
		},
		Done:       true,
		DoneReason: api.FinishToolCalls,
	}

	resp := ToChatCompletion("chatcmpl-2", r)

	if resp.Choices[0].FinishReason == nil || *resp.Choices[0].FinishReason != "tool_calls" {
		t.Fatalf("expected finish_reason 'tool_calls', got %v", resp.Choices[0].FinishReason)
	}
	if len(resp.Choices[0].Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.Choices[0].Message.ToolCalls))
	}
	if resp.Choices[0].Message.ToolCalls[0].Function.Name != "get_current_weather" {
		t.Fatalf("expected 'get_current_weather', got %s", resp.Choices[0].Message.ToolCalls[0].Function.Name)
	}
}

func TestToChatCompletionLengthWinsOverToolCalls(t *testing.T) {
	r := api.ChatResponse{
		Model: "test-model",
		Message: api.Message{
			Role:      api.RoleAssistant,
			ToolCalls: []api.ToolCall{{ID: "1", Function: api.ToolCallFunction{Name: "f", Arguments: "{}"}}},
		},
		Done:       true,
		DoneReason: api.FinishLength,
	}

	resp := ToChatCompletion("chatcmpl-3", r)

	if resp.Choices[0].FinishReason == nil || *resp.Choices[0].FinishReason != "length" {
		t.Fatalf("expected finish_reason 'length' to win over a completed tool call, got %v", resp.Choices[0].FinishReason)
	}
}

func TestToChunkLengthWinsOverToolCalls(t *testing.T) {
	r := api.ChatResponse{
		Model:      "test-model",
		Message:    api.Message{Role: api.RoleAssistant},
		Done:       true,
		DoneReason: api.FinishLength,
	}

	chunk := ToChunk("chatcmpl-4", r, true)

	if chunk.Choices[0].FinishReason == nil || *chunk.Choices[0].FinishReason != "length" {
		t.Fatalf("expected finish_reason 'length' even though a tool call was already sent, got %v", chunk.Choices[0].FinishReason)
	}
}

func TestToListCompletion(t *testing.T) {
	models := []api.ModelInfo{
		{Name: "test-model", ModifiedAt: time.Date(2024, 6, 17, 13, 45, 0, 0, time.UTC)},
	}

	resp := ToListCompletion(models)

	if resp.Object != "list" {
		t.Fatalf("expected 'list', got %s", resp.Object)
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "test-model" {
		t.Fatalf("expected 1 model 'test-model', got %+v", resp.Data)
	}
}

func TestFromToolCallsRejectsInvalidArguments(t *testing.T) {
	_, err := FromToolCalls([]ToolCall{
		{ID: "1", Function: struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}{Name: "f", Arguments: "not json"}},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
