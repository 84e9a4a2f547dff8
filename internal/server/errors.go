package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]any    `json:"details,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errs.New(errs.Unauthorized, "unauthorized", "authentication required")
	ErrForbidden          = errs.New(errs.Forbidden, "forbidden", "you do not have permission to do this")
	ErrNotFound           = errs.New(errs.NotFound, "not_found", "not found")
	ErrRateLimited        = errs.New(errs.RateLimited, "rate_limited", "too many requests, slow down")
	ErrServiceUnavailable = errs.New(errs.Unavailable, "service_unavailable", "service unavailable")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

var statusByKind = map[errs.Kind]int{
	errs.NotFound:          http.StatusNotFound,
	errs.Conflict:          http.StatusConflict,
	errs.Forbidden:         http.StatusForbidden,
	errs.ResourceExhausted: http.StatusUnprocessableEntity,
	errs.InvalidArgument:   http.StatusBadRequest,
	errs.Unauthorized:      http.StatusUnauthorized,
	errs.RateLimited:       http.StatusTooManyRequests,
	errs.Unavailable:       http.StatusServiceUnavailable,
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    "invalid_request",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
	}

	if e, ok := errs.As(err); ok {
		if status, known := statusByKind[e.Kind]; known {
			return status, errorPayload{
				Type:    string(e.Kind),
				Code:    e.Code,
				Message: e.Message,
				Details: e.Details,
			}
		}
		// Internal errors expose only the code and public message.
		return http.StatusInternalServerError, errorPayload{
			Type:    string(errs.Internal),
			Code:    e.Code,
			Message: e.Message,
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    string(errs.Internal),
		Code:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog feeds the request logger.
func classifyErrorForLog(err error) (string, string) {
	if vErr := asValidationErrors(err); vErr != nil {
		return "validation_error", "invalid_request"
	}
	if e, ok := errs.As(err); ok {
		return string(e.Kind), e.Code
	}
	return string(errs.Internal), "internal_error"
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}
