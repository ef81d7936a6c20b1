package core

import "fmt"

// ValidationError — malformed or missing input field. Maps to HTTP 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// AuthorizationError — the acting user does not own the product.
// Maps to HTTP 403.
type AuthorizationError struct {
	ProductID uint
	UserID    uint
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %d is not the owner of product %d", e.UserID, e.ProductID)
}

// InvalidOperationError — the request breaks a business rule (self-purchase,
// unknown sort method). Maps to HTTP 400.
type InvalidOperationError struct {
	Op     string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}
