package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/immoflow/reconcile/internal/adapter/http/dto"
	"github.com/immoflow/reconcile/internal/adapter/http/middleware"
	"github.com/immoflow/reconcile/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Success: false,
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientRole),
		errors.Is(err, domain.ErrNoOrganization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNoTransactionIDs),
		errors.Is(err, domain.ErrNoConditions),
		errors.Is(err, domain.ErrInvalidField),
		errors.Is(err, domain.ErrInvalidOperator),
		errors.Is(err, domain.ErrInvalidActionType),
		errors.Is(err, domain.ErrEmptyAction),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrPasswordTooWeak):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// callerFrom extracts the authenticated user from the request context.
func callerFrom(r *http.Request) *domain.User {
	user, _ := r.Context().Value(middleware.UserContextKey).(*domain.User)
	return user
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
