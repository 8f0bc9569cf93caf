// Package respond writes JSON responses and maps domain error kinds to HTTP
// status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/relata/relata/internal/model"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteDomainError classifies a domain error by kind and writes the matching
// status. Unrecognized errors are internal.
func WriteDomainError(w http.ResponseWriter, err error) {
	WriteError(w, StatusFor(err), err.Error())
}

// StatusFor maps the error taxonomy to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidPropertyValue),
		errors.Is(err, model.ErrUnsupportedActionType):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAlreadyArchived),
		errors.Is(err, model.ErrAlreadyAssociated),
		errors.Is(err, model.ErrNoActiveAssociation),
		errors.Is(err, model.ErrMinimumContactsViolation),
		errors.Is(err, model.ErrCannotRemovePrimary),
		errors.Is(err, model.ErrDuplicateExecution):
		return http.StatusConflict
	case errors.Is(err, model.ErrForbiddenMutation):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
