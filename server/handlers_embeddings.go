package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/openai"
)

// embeddingsRequest mirrors openai's EmbedRequest shape but accepts the
// OpenAI "input" field as either a single string or an array, and an
// optional encoding_format.
type embeddingsRequest struct {
	Model          string          `json:"model"`
	Input          json.RawMessage `json:"input"`
	EncodingFormat string          `json:"encoding_format"`
}

func (r embeddingsRequest) inputs() ([]string, error) {
	var one string
	if err := json.Unmarshal(r.Input, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(r.Input, &many); err == nil {
		return many, nil
	}
	return nil, api.ErrInvalidRequest("input must be a string or array of strings")
}

func (s *Server) handleEmbeddings(c *gin.Context) {
	var req embeddingsRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	inputs, err := req.inputs()
	if err != nil {
		writeError(c, err)
		return
	}
	if len(inputs) == 0 {
		writeError(c, api.ErrInvalidRequest("input must not be empty"))
		return
	}

	ctx := c.Request.Context()
	resp := api.EmbedResponse{Embeddings: make([][]float32, len(inputs))}

	err = s.dispatcher.Run(ctx, func(ctx context.Context) error {
		for i, in := range inputs {
			vec, err := s.engine.Embedding(ctx, in)
			if err != nil {
				return api.ErrEngineFailure(err)
			}
			resp.Embeddings[i] = vec
			tokens, err := s.engine.Encode(ctx, in)
			if err == nil {
				resp.PromptEvalCount += len(tokens)
			}
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	model := req.Model
	if model == "" {
		model = s.cfg.ModelName
	}
	c.JSON(http.StatusOK, openai.ToEmbeddingList(model, resp, req.EncodingFormat))
}
