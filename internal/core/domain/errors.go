package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a CMS document type the normaliser does not handle.
	// It is a skip signal, not a failure.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrContentSourceUnavailable indicates the CMS content source is not configured.
	ErrContentSourceUnavailable = errors.New("content source unavailable")

	// ErrMissingSecret indicates a required shared secret is not configured.
	ErrMissingSecret = errors.New("secret not configured")

	// Infrastructure failure classes. Use the typed errors below to construct them.

	// ErrEmbeddingProvider indicates the embedding provider rejected or failed a request.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrStoreUnavailable indicates the vector store could not complete an operation.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDimensionMismatch indicates vectors of different sizes were mixed.
	// This is a configuration error and halts a sync run.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidSignature indicates a webhook signature was missing or wrong.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// UnsupportedDocumentTypeError reports a CMS type with no normalisation case.
type UnsupportedDocumentTypeError struct {
	Type string
}

func (e *UnsupportedDocumentTypeError) Error() string {
	return fmt.Sprintf("unsupported document type %q", e.Type)
}

// Unwrap returns ErrUnsupportedType.
func (e *UnsupportedDocumentTypeError) Unwrap() error { return ErrUnsupportedType }

// EmbeddingProviderError wraps a failure from the embedding provider.
// Transient errors (rate limits, network, 5xx) may be retried; others fail the document.
type EmbeddingProviderError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *EmbeddingProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, kind, e.Err)
}

// Unwrap returns both the class sentinel and the underlying cause.
func (e *EmbeddingProviderError) Unwrap() []error { return []error{ErrEmbeddingProvider, e.Err} }

// StoreUnavailableError wraps a vector store failure for a single operation.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns both the class sentinel and the underlying cause.
func (e *StoreUnavailableError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

// DimensionMismatchError reports a vector whose size differs from the established dimension.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Unwrap returns ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// InvalidWebhookSignatureError reports why a webhook request was rejected.
type InvalidWebhookSignatureError struct {
	Reason string
}

func (e *InvalidWebhookSignatureError) Error() string {
	return "invalid webhook signature: " + e.Reason
}

// Unwrap returns ErrInvalidSignature.
func (e *InvalidWebhookSignatureError) Unwrap() error { return ErrInvalidSignature }

// IsTransient reports whether err is an embedding provider error worth retrying.
func IsTransient(err error) bool {
	var providerErr *EmbeddingProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}
	return false
}

// IsFatal reports whether err indicates process-level misconfiguration
// that must abort a sync run rather than be recorded per document.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrMissingSecret) ||
		errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrVectorStoreUnavailable)
}

// NewEmbeddingProviderError classifies a provider failure by HTTP status.
// A zero status means the request never completed (network, timeout) and
// is treated as transient, as are 408, 429 and every 5xx.
func NewEmbeddingProviderError(provider string, status int, err error) *EmbeddingProviderError {
	transient := status == 0 || status == 408 || status == 429 || status >= 500
	return &EmbeddingProviderError{Provider: provider, StatusCode: status, Transient: transient, Err: err}
}
