package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) UsageHistory(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	months := 12
	if raw := c.Query("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 120 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		months = parsed
	}

	records, err := s.usage.History(c.Request.Context(), accountID, months)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": records})
}
