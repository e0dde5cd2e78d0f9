package api

import "fmt"

// NetworkError indicates the request never produced a backend response.
// Retryable: the next scheduled poll will try again.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError indicates the backend answered with a failure envelope or a
// non-success HTTP status. Not retryable without a different request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// AuthError indicates an HTTP 401. This escalates beyond the kitchen core:
// the session must clear its credential and return to login.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "authentication failed"
}
