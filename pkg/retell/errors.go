package retell

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for platform failures. Use errors.Is to test an *APIError against them.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
	ErrDecode       = errors.New("decode error")
)

// APIError is a non-2xx answer from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("retell: status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// DecodeError reports a conversation-flow document that cannot be turned into a flow.
type DecodeError struct {
	NodeID string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("decode node %q: %s: %s", e.NodeID, e.Field, e.Reason)
}

// EncodeError reports a node or edge that has no representation on the wire.
type EncodeError struct {
	NodeID string
	EdgeID string
	Reason string
}

func (e *EncodeError) Error() string {
	if e.EdgeID == "" {
		return fmt.Sprintf("encode node %q: %s", e.NodeID, e.Reason)
	}
	return fmt.Sprintf("encode node %q edge %q: %s", e.NodeID, e.EdgeID, e.Reason)
}
