package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrPasswordTooWeak = errors.New("password does not meet requirements")
)

// Validation constants
const (
	MaxRuleNameLength     = 255
	MaxConditionsPerRule  = 20
	MaxConditionValueSize = 500
	MaxBulkTransactionIDs = 5000
	MinPasswordLength     = 8
	MaxPasswordLength     = 128
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateConditions validates a rule's condition list.
func ValidateConditions(conditions []Condition) error {
	if len(conditions) == 0 {
		return ErrNoConditions
	}

	if len(conditions) > MaxConditionsPerRule {
		return fmt.Errorf("%w: at most %d conditions allowed", ErrNoConditions, MaxConditionsPerRule)
	}

	for _, c := range conditions {
		if !c.Field.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidField, c.Field)
		}

		if !c.Operator.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidOperator, c.Operator)
		}

		if c.Value == "" {
			return fmt.Errorf("%w: condition on %q has empty value", ErrNoConditions, c.Field)
		}

		if len(c.Value) > MaxConditionValueSize {
			return fmt.Errorf("%w: condition value exceeds %d characters", ErrNoConditions, MaxConditionValueSize)
		}
	}

	return nil
}

// ValidateRuleName validates a rule name.
func ValidateRuleName(name string) error {
	if len(name) > MaxRuleNameLength {
		return fmt.Errorf("rule name exceeds %d characters", MaxRuleNameLength)
	}

	return nil
}

// ValidateTransactionIDs validates a bulk id list.
func ValidateTransactionIDs(ids []string) error {
	if len(ids) == 0 {
		return ErrNoTransactionIDs
	}

	if len(ids) > MaxBulkTransactionIDs {
		return fmt.Errorf("%w: at most %d ids per request", ErrNoTransactionIDs, MaxBulkTransactionIDs)
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidatePassword validates password strength
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooWeak, MinPasswordLength)
	}

	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must not exceed %d characters", ErrPasswordTooWeak, MaxPasswordLength)
	}

	// Check for at least one uppercase, one lowercase, and one number
	hasUpper := regexp.MustCompile(`[A-Z]`).MatchString(password)
	hasLower := regexp.MustCompile(`[a-z]`).MatchString(password)
	hasNumber := regexp.MustCompile(`[0-9]`).MatchString(password)

	if !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("%w: must contain uppercase, lowercase, and numbers", ErrPasswordTooWeak)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
