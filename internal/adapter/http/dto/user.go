package dto

import (
	"time"

	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// CreateUserRequest represents a request to create a user. The organization
// is taken from the caller's token, not from the body.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents a partial user update.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	Active   *bool   `json:"active,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ToUseCaseInput converts the request to use case input.
func (r *UpdateUserRequest) ToUseCaseInput(id string) usecase.UpdateUserInput {
	input := usecase.UpdateUserInput{
		ID:       id,
		Name:     r.Name,
		Active:   r.Active,
		Password: r.Password,
	}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		input.Role = &role
	}
	return input
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Role           string    `json:"role"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// UserFromDomain converts a domain user to a response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		OrganizationID: u.OrganizationID,
		Role:           string(u.Role),
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// UsersFromDomain converts domain users to responses.
func UsersFromDomain(users []*domain.User) []*UserResponse {
	result := make([]*UserResponse, len(users))
	for i, u := range users {
		result[i] = UserFromDomain(u)
	}
	return result
}
