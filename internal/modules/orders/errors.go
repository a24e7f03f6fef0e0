package orders

import "fmt"

// ValidationError is client-fixable input trouble; the message is safe
// to surface verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation %s: %s", e.Field, e.Message)
}

// PriceMismatchError means the submitted amount does not match the
// catalog price: possible tampering or a stale client. Handlers log it
// with the client IP.
type PriceMismatchError struct {
	ServiceType string
	Amount      float64
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch: %.2f for %q", e.Amount, e.ServiceType)
}
