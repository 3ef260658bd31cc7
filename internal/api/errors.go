package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/reelgen-api/internal/api/shared"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/frames"
	"github.com/phrazzld/reelgen-api/internal/generation"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"github.com/phrazzld/reelgen-api/internal/service/auth"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// Machine-readable error codes returned in ErrorResponse.Code.
const (
	CodeRetryLater               = "retry_later"
	CodeUnprocessableInput       = "unprocessable_input"
	CodeRegenerationLimitReached = "regeneration_limit_reached"
	CodeRegenerationInProgress   = "regeneration_in_progress"
	CodeScriptRequired           = "script_required"
	CodeUpstreamUnavailable      = "upstream_unavailable"
	CodeInvalidRequest           = "invalid_request"
	CodeNotFound                 = "not_found"
	CodeUnauthorized             = "unauthorized"
	CodeInternal                 = "internal_error"
)

// apiError is the client-facing view of an internal error.
type apiError struct {
	status  int
	code    string
	message string
}

// classifyError maps internal errors to a status, a code and a safe message.
// Order matters: provider outcomes are checked before the generation errors
// that wrap them, and the script precondition before generic validation.
func classifyError(err error) apiError {
	switch {
	case err == nil:
		return apiError{http.StatusInternalServerError, CodeInternal, "An unexpected error occurred"}

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return apiError{http.StatusUnauthorized, CodeUnauthorized, "Invalid token"}

	case errors.Is(err, retry.ErrRetriesExhausted),
		errors.Is(err, retry.ErrTransientUpstreamTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return apiError{http.StatusServiceUnavailable, CodeRetryLater, "The generation service is busy, please retry later"}

	case errors.Is(err, retry.ErrUnprocessableInput):
		return apiError{http.StatusUnprocessableEntity, CodeUnprocessableInput, "The input cannot be processed"}

	case errors.Is(err, generation.ErrRegenerationLimitExceeded):
		return apiError{http.StatusTooManyRequests, CodeRegenerationLimitReached, "No regenerations left"}

	case errors.Is(err, generation.ErrConcurrentRegeneration),
		errors.Is(err, store.ErrConflict):
		return apiError{http.StatusConflict, CodeRegenerationInProgress, "The content was regenerated concurrently, reload it"}

	case errors.Is(err, generation.ErrScriptRequired):
		return apiError{http.StatusConflict, CodeScriptRequired, "Generate the script first"}

	case errors.Is(err, retry.ErrUpstreamService),
		errors.Is(err, retry.ErrResponseParse),
		errors.Is(err, retry.ErrEmptyContent),
		errors.Is(err, generation.ErrGenerationFailed):
		return apiError{http.StatusBadGateway, CodeUpstreamUnavailable, "The generation service is unavailable"}

	case errors.Is(err, store.ErrVideoTaskNotFound):
		return apiError{http.StatusNotFound, CodeNotFound, "Video task not found"}

	case errors.Is(err, store.ErrNotFound):
		return apiError{http.StatusNotFound, CodeNotFound, "Not found"}

	case errors.Is(err, frames.ErrEmptyBatch):
		return apiError{http.StatusBadRequest, CodeInvalidRequest, "At least one frame is required"}

	case errors.Is(err, domain.ErrInvalidID):
		return apiError{http.StatusBadRequest, CodeInvalidRequest, "Invalid ID"}

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, store.ErrInvalidEntity):
		return apiError{http.StatusBadRequest, CodeInvalidRequest, "Invalid request"}

	default:
		return apiError{http.StatusInternalServerError, CodeInternal, "An unexpected error occurred"}
	}
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	return classifyError(err).status
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	return classifyError(err).message
}

// HandleAPIError writes the error response for err and logs the redacted
// cause. defaultMsg, when set, replaces the generic message of 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	e := classifyError(err)
	if e.status == http.StatusInternalServerError && defaultMsg != "" {
		e.message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, e.status, e.code, e.message, err)
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url", "http_url":
		return "invalid URL"
	case "min", "gt", "gte":
		return "too small"
	case "max", "lt", "lte":
		return "too large"
	case "unique":
		return "duplicate values"
	default:
		return "validation failed"
	}
}
