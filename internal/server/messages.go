package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	"github.com/lemur767/assistext-backend-sub001/pkg/db/pagination"
)

func (s *Server) IngestMessage(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req messagedomain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.AccountID = accountID

	result, err := s.messages.Ingest(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Deduplicated {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (s *Server) ListMessages(c *gin.Context) {
	accountID, ok := accountFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	messages, info, err := s.messages.List(c.Request.Context(), messagedomain.ListRequest{
		AccountID:   accountID,
		ClientPhone: c.Query("client_phone"),
		Pagination:  page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":  messages,
		"page_info": info,
	})
}
