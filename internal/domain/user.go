package domain

import (
	"errors"
	"time"
)

// User represents an authenticated caller. The organization id is always
// derived server-side from the verified token, never from request payloads.
type User struct {
	ID             string
	Email          string
	Name           string
	HashedPassword string
	OrganizationID string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Active         bool
}

// Role represents a user's access level within an organization.
type Role string

const (
	// RoleAdmin has full access to all operations
	RoleAdmin Role = "admin"

	// RoleOperator can match transactions and manage rules
	RoleOperator Role = "operator"

	// RoleViewer can only view transactions and rules, no mutations
	RoleViewer Role = "viewer"
)

// Valid roles
var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleViewer:   true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanMatch checks if the role can classify transactions
func (r Role) CanMatch() bool {
	return r == RoleAdmin || r == RoleOperator
}

// CanManageRules checks if the role can create rules
func (r Role) CanManageRules() bool {
	return r == RoleAdmin || r == RoleOperator
}

// CanViewAll checks if the role can view all resources
func (r Role) CanViewAll() bool {
	// All authenticated users can view
	return r.IsValid()
}

// Authentication errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
	ErrNoOrganization   = errors.New("caller has no organization")
)
