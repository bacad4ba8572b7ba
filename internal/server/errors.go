package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/lemur767/assistext-backend-sub001/internal/analytics/domain"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware renders the last collected error as a JSON
// envelope after the handler chain runs.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, usagedomain.ErrInvalidAccount),
		errors.Is(err, usagedomain.ErrInvalidPeriod),
		errors.Is(err, usagedomain.ErrInvalidCount),
		errors.Is(err, usagedomain.ErrInvalidAmount),
		errors.Is(err, conversationdomain.ErrInvalidAccount),
		errors.Is(err, conversationdomain.ErrInvalidPhone),
		errors.Is(err, conversationdomain.ErrInvalidDirection),
		errors.Is(err, conversationdomain.ErrInvalidScore),
		errors.Is(err, conversationdomain.ErrInvalidOrderBy),
		errors.Is(err, messagedomain.ErrInvalidAccount),
		errors.Is(err, messagedomain.ErrInvalidPhone),
		errors.Is(err, messagedomain.ErrInvalidDirection),
		errors.Is(err, messagedomain.ErrInvalidCursor),
		errors.Is(err, analyticsdomain.ErrInvalidAccount),
		errors.Is(err, analyticsdomain.ErrInvalidFormat),
		errors.Is(err, analyticsdomain.ErrInvalidSection):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, conversationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
