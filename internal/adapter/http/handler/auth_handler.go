package handler

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/immoflow/reconcile/internal/adapter/http/dto"
	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/infrastructure/auth"
	"github.com/immoflow/reconcile/internal/usecase"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userUC     *usecase.UserUseCase
	jwtManager *auth.JWTManager
	auditRepo  usecase.AuditRepository
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userUC *usecase.UserUseCase, jwtManager *auth.JWTManager, auditRepo usecase.AuditRepository) *AuthHandler {
	return &AuthHandler{
		userUC:     userUC,
		jwtManager: jwtManager,
		auditRepo:  auditRepo,
	}
}

// Login verifies credentials against the user store and issues a token
// scoped to the user's organization.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.userUC.Authenticate(r.Context(), usecase.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials", "")
		return
	}

	token, err := h.jwtManager.Generate(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token", err.Error())
		return
	}

	// Best-effort; a failing audit write never fails the login.
	_ = h.auditRepo.Create(r.Context(), &domain.AuditLog{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Action:         string(domain.AuditActionUserLogin),
		ResourceType:   domain.AuditResourceUser,
		ResourceID:     user.ID,
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
		RequestID:      chimiddleware.GetReqID(r.Context()),
		Status:         string(domain.AuditStatusSuccess),
		CreatedAt:      time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token: token,
		User:  *dto.UserFromDomain(user),
	})
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := callerFrom(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
