package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	archivedomain "github.com/smallbiznis/flyroom/internal/archive/domain"
	backupdomain "github.com/smallbiznis/flyroom/internal/backup/domain"
	"github.com/smallbiznis/flyroom/pkg/db/pagination"
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
	Type       string                         `json:"type"`
	Message    string                         `json:"message"`
	Errors     []ValidationError              `json:"errors,omitempty"`
	Validation *backupdomain.ValidationResult `json:"validation,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTenantRequired     = errors.New("tenant_required")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var snapErr *backupdomain.InvalidSnapshotError
	if errors.As(err, &snapErr) {
		payload := errorPayload{
			Type:       "invalid_snapshot",
			Message:    "backup file validation failed",
			Validation: snapErr.Validation,
		}
		if snapErr.Validation != nil {
			for _, msg := range snapErr.Validation.Errors {
				payload.Errors = append(payload.Errors, ValidationError{
					Field:   "file",
					Code:    "invalid_snapshot",
					Message: msg,
				})
			}
		}
		return http.StatusUnprocessableEntity, payload
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, backupdomain.ErrImportInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "another import is running for this tenant",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, archivedomain.ErrEncryptionKeyInvalid),
		errors.Is(err, archivedomain.ErrBlobStore):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code the request logger
// attaches to failed requests.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrTenantRequired),
		errors.Is(err, backupdomain.ErrInvalidTenant),
		errors.Is(err, backupdomain.ErrInvalidConflictMode),
		errors.Is(err, backupdomain.ErrInvalidDocument),
		errors.Is(err, pagination.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, backupdomain.ErrTenantNotFound),
		errors.Is(err, archivedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrTenantRequired):
		return "invalid_tenant"
	case errors.Is(err, backupdomain.ErrInvalidTenant):
		return "invalid_tenant"
	case errors.Is(err, backupdomain.ErrInvalidConflictMode):
		return "invalid_conflict_mode"
	case errors.Is(err, backupdomain.ErrInvalidDocument):
		return "invalid_file"
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "invalid_page_token"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_tenant":
		return "X-Tenant-ID header is required"
	case "invalid_conflict_mode":
		return "conflict_mode must be one of fail, skip, overwrite"
	case "invalid_file":
		return "file is not a valid JSON backup"
	default:
		return "invalid value"
	}
}
