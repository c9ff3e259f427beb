package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neilfarmer/mopenstack/internal/glance"
	keystonedomain "github.com/neilfarmer/mopenstack/internal/keystone/domain"
	novadomain "github.com/neilfarmer/mopenstack/internal/nova/domain"
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
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

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
		c.Header("Content-Type", "application/json")
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
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "the request you have made requires authentication",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "bad_request",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, keystonedomain.ErrInvalidCredentials),
		errors.Is(err, keystonedomain.ErrTokenInvalid):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, keystonedomain.ErrDomainNotFound),
		errors.Is(err, keystonedomain.ErrProjectNotFound),
		errors.Is(err, keystonedomain.ErrUserNotFound),
		errors.Is(err, keystonedomain.ErrRoleNotFound),
		errors.Is(err, novadomain.ErrFlavorNotFound),
		errors.Is(err, novadomain.ErrServerNotFound),
		errors.Is(err, novadomain.ErrKeyPairNotFound),
		errors.Is(err, glance.ErrImageNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, novadomain.ErrFlavorNameTaken),
		errors.Is(err, novadomain.ErrFlavorInUse),
		errors.Is(err, novadomain.ErrKeyPairNameTaken),
		errors.Is(err, novadomain.ErrInvalidServerState):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, keystonedomain.ErrUnsupportedAuthMethod),
		errors.Is(err, novadomain.ErrBadRequest):
		return true
	default:
		return false
	}
}

// classifyErrorForLog tags request-log lines for the logging middleware.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "internal", payload.Type
	case status == http.StatusUnauthorized:
		return "auth", payload.Type
	default:
		return "client", payload.Type
	}
}
