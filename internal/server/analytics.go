package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/lemur767/assistext-backend-sub001/internal/analytics/domain"
)

func (s *Server) Dashboard(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	data, err := s.analytics.Dashboard(c.Request.Context(), accountID, c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) MessageAnalytics(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	series, err := s.analytics.MessageAnalytics(c.Request.Context(), accountID, c.Query("period"), c.Query("breakdown"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) ClientAnalytics(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	activity, err := s.analytics.ClientActivity(c.Request.Context(), accountID, c.Query("period"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": activity})
}

func (s *Server) ExportAnalytics(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req analyticsdomain.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.analytics.Export(c.Request.Context(), accountID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
