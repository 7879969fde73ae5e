package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned before any network activity when a live
	// provider is selected without an API key.
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnsupportedProvider is returned for provider names without a Spec.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// HTTPError is a non-2xx response. Body is kept for diagnostics only.
type HTTPError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API request to %s failed with status %d", e.Provider, e.StatusCode)
}

// ResponseShapeError is a 2xx response whose JSON lacks the expected text path.
type ResponseShapeError struct {
	Provider Provider
	Path     string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("unexpected response format from %s: missing %s", e.Provider, e.Path)
}

// NetworkError wraps transport failures and undecodable response bodies.
type NetworkError struct {
	Provider Provider
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Error kinds as reported to the UI and stored in history.
const (
	KindMissingCredential   = "missing_credential"
	KindUnsupportedProvider = "unsupported_provider"
	KindHTTP                = "http_error"
	KindResponseShape       = "response_shape"
	KindNetwork             = "network"
	KindUnknown             = "unknown"
)

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	var httpErr *HTTPError
	var shapeErr *ResponseShapeError
	var netErr *NetworkError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrUnsupportedProvider):
		return KindUnsupportedProvider
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &shapeErr):
		return KindResponseShape
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindUnknown
	}
}
