package domain

import "errors"

var (
	// Transaction errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoTransactionIDs    = errors.New("no transaction ids supplied")

	// Rule errors
	ErrRuleNotFound      = errors.New("rule not found")
	ErrNoConditions      = errors.New("rule has no conditions")
	ErrInvalidField      = errors.New("unknown condition field")
	ErrInvalidOperator   = errors.New("unknown condition operator")
	ErrInvalidActionType = errors.New("unknown rule action type")
	ErrEmptyAction       = errors.New("rule action carries no data")
)
