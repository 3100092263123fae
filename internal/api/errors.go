package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/easystock/internal/types"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConflict   = "USER_ALREADY_EXISTS"
	CodeInternal   = "INTERNAL_ERROR"

	genericErrorMessage = "Something went wrong. Please try again later."
)

// StatusFor maps a domain error to its HTTP status, code and client-safe message.
func StatusFor(err error) (int, string, string) {
	var (
		validationErr *types.ValidationError
		conflictErr   *types.ConflictError
		authErr       *types.AuthError
		tokenErr      *types.TokenError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, CodeValidation, validationErr.Message
	case errors.As(err, &conflictErr):
		return http.StatusConflict, CodeConflict, conflictErr.Message
	case errors.As(err, &authErr):
		return authErr.Status, authErr.Code, authErr.Message
	case errors.As(err, &tokenErr):
		return http.StatusBadRequest, tokenErr.Code, tokenErr.Message
	default:
		return http.StatusInternalServerError, CodeInternal, genericErrorMessage
	}
}

// HandleError writes err as a JSON error body. Unexpected errors are logged and masked.
func HandleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	CodedErrorResponse(w, r, status, code, message)
}

// HandleMessageError is HandleError for endpoints that answer with a bare `{message}` body.
func HandleMessageError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, _, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
		message = "Something went wrong. Please try again."
	}
	WriteJSONResponse(w, r, status, MessageBody{Message: message})
}
