package gateway

import "fmt"

// APIError is a non-2xx response from the gateway. The gateway's own
// message is preserved for diagnostics; credentials never appear in it.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cashfree %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("cashfree %d", e.StatusCode)
}
