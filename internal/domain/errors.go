package domain

import "errors"

var (
	// ErrInvalidArgument signals a malformed or empty caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProductNotFound signals an unknown catalog product id.
	ErrProductNotFound = errors.New("product not found")
	// ErrSessionNotFound signals a missing recommendation session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrProfileNotFound signals a missing shopper profile.
	ErrProfileNotFound = errors.New("shopper profile not found")

	// ErrAIDisabled signals that no Cohere credentials are configured.
	ErrAIDisabled = errors.New("ai features disabled")
	// ErrAIUnavailable signals a remote model failure (timeout, HTTP error,
	// malformed response, open circuit breaker).
	ErrAIUnavailable = errors.New("ai service unavailable")
	// ErrBudgetExhausted signals that the shared per-request time budget ran out
	// before a remote call could be dispatched.
	ErrBudgetExhausted = errors.New("ai time budget exhausted")
	// ErrEmbeddingShapeMismatch signals an embed response with the wrong vector count.
	ErrEmbeddingShapeMismatch = errors.New("embedding response shape mismatch")
)
