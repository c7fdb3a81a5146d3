package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/engine"
	"github.com/fastllm/gateway/openai"
	"github.com/fastllm/gateway/sse"
	"github.com/fastllm/gateway/stats"
)

// handleCompletions serves the raw text-completion endpoint: the prompt is
// sent to the engine unmodified, with no chat template and no tool-call or
// thinking parsing, since those are chat-specific concerns.
func (s *Server) handleCompletions(c *gin.Context) {
	var wire openai.CompletionRequest
	if err := bindJSON(c, &wire); err != nil {
		writeError(c, err)
		return
	}

	genReq, err := openai.FromCompleteRequest(wire)
	if err != nil {
		writeConversionError(c, err)
		return
	}
	if err := s.checkModel(genReq.Model); err != nil {
		writeError(c, err)
		return
	}

	id := requestID()
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	gen := s.stats.Begin("completion")
	model := genReq.Model
	if model == "" {
		model = s.cfg.ModelName
	}

	if genReq.Stream {
		s.streamCompletion(c, ctx, id, model, genReq, gen)
		return
	}
	s.completeText(c, ctx, id, model, genReq, gen)
}

func (s *Server) completeText(c *gin.Context, ctx context.Context, id, model string, req api.GenerateRequest, gen *stats.Generation) {
	var textBuf strings.Builder
	var doneReason api.FinishReason

	err := s.dispatcher.Run(ctx, func(ctx context.Context) error {
		if tokens, err := s.engine.Encode(ctx, req.Prompt); err == nil {
			gen.PromptTokens(len(tokens))
		}
		return s.engine.Completion(ctx, engine.CompletionRequest{Prompt: req.Prompt, Options: req.Options}, func(tok engine.Token) {
			if tok.Done {
				doneReason = tok.DoneReason
				return
			}
			gen.Token()
			textBuf.WriteString(tok.Text)
		})
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := api.GenerateResponse{
		Model:      model,
		CreatedAt:  time.Now(),
		Response:   textBuf.String(),
		Done:       true,
		DoneReason: doneReason,
		Metrics:    gen.Finish(),
	}
	c.JSON(http.StatusOK, openai.ToCompletion(id, resp))
}

func (s *Server) streamCompletion(c *gin.Context, ctx context.Context, id, model string, req api.GenerateRequest, gen *stats.Generation) {
	writer, err := sse.NewWriter(c.Writer)
	if err != nil {
		writeError(c, api.NewStatusError(http.StatusInternalServerError, api.ErrTypeInternal, "streaming not supported by response writer"))
		return
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	runErr := s.dispatcher.Run(streamCtx, func(ctx context.Context) error {
		if tokens, err := s.engine.Encode(ctx, req.Prompt); err == nil {
			gen.PromptTokens(len(tokens))
		}
		return s.engine.Completion(ctx, engine.CompletionRequest{Prompt: req.Prompt, Options: req.Options}, func(tok engine.Token) {
			resp := api.GenerateResponse{Model: model, Done: tok.Done, DoneReason: tok.DoneReason, Response: tok.Text}
			if !tok.Done {
				gen.Token()
			}
			if err := writer.Send(openai.ToCompleteChunk(id, resp)); err != nil {
				cancelStream()
			}
		})
	})
	if runErr != nil {
		return
	}

	gen.Finish()
	writer.Done()
}
