package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListConversations(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	activeOnly := false
	if raw := c.Query("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		activeOnly = parsed
	}

	conversations, err := s.conversations.List(c.Request.Context(), accountID, activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (s *Server) TopConversations(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		limit = parsed
	}

	conversations, err := s.conversations.Top(c.Request.Context(), accountID, limit, c.Query("order_by"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (s *Server) MarkConversationInactive(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.conversations.MarkInactive(c.Request.Context(), accountID, c.Param("phone")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "inactive"})
}
