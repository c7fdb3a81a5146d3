package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fastllm/gateway/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}

func (s *Server) handleMetrics(c *gin.Context) {
	st := s.dispatcher.Stats()
	s.stats.SetOccupancy(st.Active, st.Queued)
	promhttp.HandlerFor(s.stats.Registry(), promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleSlots(c *gin.Context) {
	st := s.dispatcher.Stats()
	c.JSON(http.StatusOK, gin.H{
		"active": st.Active,
		"queued": st.Queued,
		"max":    st.MaxActive,
	})
}

func (s *Server) handleProps(c *gin.Context) {
	ready := s.engine.Ready(c.Request.Context()) == nil
	c.JSON(http.StatusOK, gin.H{
		"model":      s.cfg.ModelName,
		"ready":      ready,
		"uptime":     time.Since(s.startedAt).String(),
		"max_active": s.cfg.MaxActive,
		"max_queued": s.cfg.MaxQueued,
		"dev_mode":   s.cfg.DevMode,
	})
}

func (s *Server) handleDevDisabled(c *gin.Context) {
	writeError(c, api.ErrEndpointDisabled(c.Request.URL.Path))
}

func (s *Server) handleCancel(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	s.mu.Lock()
	if cancel, ok := s.conversations[req.ConversationID]; ok {
		cancel()
		delete(s.conversations, req.ConversationID)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleActiveConversations(c *gin.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"conversations": ids})
}

func (s *Server) trackConversation(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.conversations[id] = cancel
	s.mu.Unlock()
}

func (s *Server) untrackConversation(id string) {
	s.mu.Lock()
	delete(s.conversations, id)
	s.mu.Unlock()
}
