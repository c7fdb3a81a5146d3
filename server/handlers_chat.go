package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/engine"
	"github.com/fastllm/gateway/openai"
	"github.com/fastllm/gateway/sse"
	"github.com/fastllm/gateway/stats"
	"github.com/fastllm/gateway/template"
	"github.com/fastllm/gateway/thinking"
	"github.com/fastllm/gateway/toolcall"
)

func (s *Server) checkModel(model string) error {
	if model != "" && s.cfg.ModelName != "" && !strings.EqualFold(model, s.cfg.ModelName) {
		return api.ErrModelNotFound(model)
	}
	return nil
}

// renderChatPrompt injects tool/JSON-mode system text when the active
// template doesn't natively support it, then renders the full prompt. It
// returns the tool-call dialect to parse model output against: DialectNone
// when the request carries no tools.
func (s *Server) renderChatPrompt(req api.ChatRequest) (string, toolcall.Dialect, error) {
	caps := s.template.Capabilities()
	messages := req.Messages

	dialect := toolcall.DialectNone
	if len(req.Tools) > 0 {
		dialect = s.dialect
		if !caps.SupportsTools {
			messages = template.InjectSystemText(messages, template.ToolSystemPrompt(req.Tools, req.ToolChoice))
		}
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type != "" && req.ResponseFormat.Type != "text" {
		messages = template.InjectSystemText(messages, template.JSONModeSystemPrompt(req.ResponseFormat))
	}

	var buf bytes.Buffer
	err := s.template.Execute(&buf, template.Values{
		Messages:            messages,
		Tools:               req.Tools,
		AddGenerationPrompt: true,
		Now:                 time.Now(),
	})
	return buf.String(), dialect, err
}

func (s *Server) handleChatCompletions(c *gin.Context) {
	var wire openai.ChatCompletionRequest
	if err := bindJSON(c, &wire); err != nil {
		writeError(c, err)
		return
	}

	chatReq, err := openai.FromChatRequest(wire)
	if err != nil {
		writeConversionError(c, err)
		return
	}
	if err := s.checkModel(chatReq.Model); err != nil {
		writeError(c, err)
		return
	}

	prompt, dialect, err := s.renderChatPrompt(*chatReq)
	if err != nil {
		writeError(c, api.ErrInvalidRequest("template: %v", err))
		return
	}

	id := requestID()
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	s.trackConversation(id, cancel)
	defer s.untrackConversation(id)

	gen := s.stats.Begin("chat")
	model := chatReq.Model
	if model == "" {
		model = s.cfg.ModelName
	}

	if chatReq.Stream {
		s.streamChat(c, ctx, id, model, prompt, chatReq.Options, dialect, chatReq.StreamUsage, gen)
		return
	}
	s.completeChat(c, ctx, id, model, prompt, chatReq.Options, dialect, gen)
}

func (s *Server) completeChat(c *gin.Context, ctx context.Context, id, model, prompt string, opts api.Options, dialect toolcall.Dialect, gen *stats.Generation) {
	var contentBuf, reasoningBuf strings.Builder
	var toolCalls []api.ToolCall
	var doneReason api.FinishReason

	thinker := &thinking.Parser{Markers: thinking.DefaultMarkers}
	parser := toolcall.Resolve(dialect)

	err := s.dispatcher.Run(ctx, func(ctx context.Context) error {
		if tokens, err := s.engine.Encode(ctx, prompt); err == nil {
			gen.PromptTokens(len(tokens))
		}

		return s.engine.Completion(ctx, engine.CompletionRequest{Prompt: prompt, Options: opts}, func(tok engine.Token) {
			if tok.Done {
				doneReason = tok.DoneReason
			} else {
				gen.Token()
			}

			reasoning, remaining := thinker.AddContent(tok.Text)
			reasoningBuf.WriteString(reasoning)

			for _, ev := range parser.Add(remaining, tok.Done) {
				if ev.Content != "" {
					contentBuf.WriteString(ev.Content)
				}
				if ev.ToolCall != nil {
					call := *ev.ToolCall
					call.Index = len(toolCalls)
					toolCalls = append(toolCalls, call)
				}
			}
		})
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := api.ChatResponse{
		Model:     model,
		CreatedAt: time.Now(),
		Message: api.Message{
			Role:             api.RoleAssistant,
			Content:          contentBuf.String(),
			ReasoningContent: reasoningBuf.String(),
			ToolCalls:        toolCalls,
		},
		Done:       true,
		DoneReason: doneReason,
		Metrics:    gen.Finish(),
	}
	c.JSON(http.StatusOK, openai.ToChatCompletion(id, resp))
}

func (s *Server) streamChat(c *gin.Context, ctx context.Context, id, model, prompt string, opts api.Options, dialect toolcall.Dialect, includeUsage bool, gen *stats.Generation) {
	writer, err := sse.NewWriter(c.Writer)
	if err != nil {
		writeError(c, api.NewStatusError(http.StatusInternalServerError, api.ErrTypeInternal, "streaming not supported by response writer"))
		return
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	thinker := &thinking.Parser{Markers: thinking.DefaultMarkers}
	parser := toolcall.Resolve(dialect)

	var toolCallSent bool
	var toolCalls []api.ToolCall
	var doneReason api.FinishReason

	send := func(msg api.Message, done bool) {
		r := api.ChatResponse{Model: model, Done: done, DoneReason: doneReason, Message: msg}
		chunk := openai.ToChunk(id, r, toolCallSent)
		if err := writer.Send(chunk); err != nil {
			cancelStream()
		}
	}

	runErr := s.dispatcher.Run(streamCtx, func(ctx context.Context) error {
		if tokens, err := s.engine.Encode(ctx, prompt); err == nil {
			gen.PromptTokens(len(tokens))
		}

		send(api.Message{Role: api.RoleAssistant}, false)

		return s.engine.Completion(ctx, engine.CompletionRequest{Prompt: prompt, Options: opts}, func(tok engine.Token) {
			if tok.Done {
				doneReason = tok.DoneReason
			} else {
				gen.Token()
			}

			reasoning, remaining := thinker.AddContent(tok.Text)
			if reasoning != "" {
				send(api.Message{ReasoningContent: reasoning}, false)
			}

			for _, ev := range parser.Add(remaining, tok.Done) {
				if ev.Content != "" {
					send(api.Message{Content: ev.Content}, false)
				}
				if ev.ToolCall != nil {
					call := *ev.ToolCall
					call.Index = len(toolCalls)
					toolCalls = append(toolCalls, call)
					toolCallSent = true
					send(api.Message{ToolCalls: []api.ToolCall{call}}, false)
				}
			}

			if tok.Done {
				send(api.Message{}, true)
			}
		})
	})
	if runErr != nil {
		// Headers are already committed once streaming starts; there is no
		// way to report this as a normal error response at this point.
		return
	}

	if includeUsage {
		metrics := gen.Finish()
		usage := openai.ToUsage(metrics)
		_ = writer.Send(openai.ChatCompletionChunk{
			ID:                id,
			Object:            "chat.completion.chunk",
			Created:           time.Now().Unix(),
			Model:             model,
			SystemFingerprint: fmt.Sprintf("fastllm-%s", model),
			Choices:           []openai.ChunkChoice{},
			Usage:             &usage,
		})
	} else {
		gen.Finish()
	}
	writer.Done()
}
