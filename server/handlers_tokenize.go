package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
)

func (s *Server) handleTokenize(c *gin.Context) {
	var req api.TokenizeRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	var tokens []int
	err := s.dispatcher.Run(c.Request.Context(), func(ctx context.Context) error {
		t, err := s.engine.Encode(ctx, req.Content)
		if err != nil {
			return api.ErrEngineFailure(err)
		}
		tokens = t
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if !req.WithPieces {
		c.JSON(http.StatusOK, gin.H{"tokens": tokens})
		return
	}

	pieces := make([]api.TokenPiece, len(tokens))
	for i, id := range tokens {
		piece, _ := s.engine.Decode(c.Request.Context(), []int{id})
		pieces[i] = api.TokenPiece{ID: id, Piece: piece}
	}
	c.JSON(http.StatusOK, gin.H{"tokens": pieces})
}

func (s *Server) handleDetokenize(c *gin.Context) {
	var req api.DetokenizeRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	var content string
	err := s.dispatcher.Run(c.Request.Context(), func(ctx context.Context) error {
		text, err := s.engine.Decode(ctx, req.Tokens)
		if err != nil {
			return api.ErrEngineFailure(err)
		}
		content = text
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}
