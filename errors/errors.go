package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrNotConfigured indicates that required configuration is absent
	ErrNotConfigured = errors.New("not configured")

	// ErrAgentUnavailable indicates that the routed-to agent is not registered
	ErrAgentUnavailable = errors.New("agent unavailable")

	// ErrEmptyResponse indicates that an agent invocation yielded no text
	ErrEmptyResponse = errors.New("no response from agent")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")
)
