package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/immoflow/reconcile/internal/adapter/http/dto"
	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

// UserHandler handles user management endpoints. Routes using it are
// mounted behind the admin role check.
type UserHandler struct {
	userUC *usecase.UserUseCase
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC *usecase.UserUseCase) *UserHandler {
	return &UserHandler{userUC: userUC}
}

// Create creates a user in the caller's organization.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.userUC.CreateUser(r.Context(), usecase.CreateUserInput{
		Email:          req.Email,
		Name:           req.Name,
		Password:       req.Password,
		OrganizationID: caller.OrganizationID,
		Role:           domain.Role(req.Role),
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create user", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.UserFromDomain(user))
}

// List lists the caller's organization users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	users, err := h.userUC.ListUsers(r.Context(), caller.OrganizationID,
		parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list users", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.UsersFromDomain(users))
}

// Get retrieves a user by ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user ID", "")
		return
	}

	user, err := h.userUC.GetUser(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get user", err.Error())

		return
	}

	// Admins only see users of their own organization.
	if user.OrganizationID != caller.OrganizationID {
		writeError(w, http.StatusNotFound, "user not found", "")
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}

// Update updates a user in the caller's organization.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user ID", "")
		return
	}

	existing, err := h.userUC.GetUser(r.Context(), id)
	if err != nil || existing.OrganizationID != caller.OrganizationID {
		writeError(w, http.StatusNotFound, "user not found", "")
		return
	}

	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.userUC.UpdateUser(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to update user", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
