package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/verihire/verihire-backend/internal/domain/errors"
)

// writeError maps an error onto the uniform envelope. Domain errors carry
// their own status codes; everything else is a 500 with a generic message
// so internals never leak to callers.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code, message, details := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func classifyError(err error) (status int, code, message string, details any) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		var d any
		if len(appErr.Details) > 0 {
			d = appErr.Details
		}
		return appErr.StatusCode, appErr.Code, appErr.Message, d
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", fields
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, "INVALID_JSON", "malformed JSON body", nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, "INVALID_JSON", "JSON field has wrong type", typeErr.Field
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "REQUEST_TIMEOUT", "request timed out", nil
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred", nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
