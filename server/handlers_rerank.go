package server

import (
	"context"
	"math"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/openai"
)

// handleRerank scores documents against a query by cosine similarity over
// the engine's embedding vectors -- there is no dedicated rerank primitive
// on the engine adapter, so this is the embedding contract applied twice
// and compared, per the gateway's "sort by cosine similarity descending"
// wire contract.
func (s *Server) handleRerank(c *gin.Context) {
	var req openai.RerankRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.Query == "" || len(req.Documents) == 0 {
		writeError(c, api.ErrInvalidRequest("query and documents are required"))
		return
	}

	ctx := c.Request.Context()
	var results []api.RerankResult

	err := s.dispatcher.Run(ctx, func(ctx context.Context) error {
		queryVec, err := s.engine.Embedding(ctx, req.Query)
		if err != nil {
			return api.ErrEngineFailure(err)
		}

		results = make([]api.RerankResult, len(req.Documents))
		for i, doc := range req.Documents {
			vec, err := s.engine.Embedding(ctx, doc)
			if err != nil {
				return api.ErrEngineFailure(err)
			}
			results[i] = api.RerankResult{
				Index:          i,
				RelevanceScore: cosineSimilarity(queryVec, vec),
				Document:       doc,
			}
		}
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if req.TopN > 0 && req.TopN < len(results) {
		results = results[:req.TopN]
	}

	model := req.Model
	if model == "" {
		model = s.cfg.ModelName
	}
	c.JSON(http.StatusOK, openai.ToRerankResponse(model, results))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
