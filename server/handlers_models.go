package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
	"github.com/fastllm/gateway/openai"
)

// handleModels reports the single model the process was started with. The
// gateway fronts one engine, so the list always has at most one entry.
func (s *Server) handleModels(c *gin.Context) {
	var models []api.ModelInfo
	if s.cfg.ModelName != "" {
		models = append(models, api.ModelInfo{Name: s.cfg.ModelName, ModifiedAt: s.startedAt})
	}
	c.JSON(http.StatusOK, openai.ToListCompletion(models))
}
