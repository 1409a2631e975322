// Package common defines shared sentinel errors used across the service
// layers. Callers should use errors.Is to match these values; details are
// attached by wrapping, e.g. fmt.Errorf("%w: chunk 3", common.ErrOutOfRange).
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Protocol-level errors surfaced to upload clients.
	ErrValidation   = errors.New("validation error")
	ErrInvalidState = errors.New("invalid session state")
	ErrOutOfRange   = errors.New("chunk index out of range")
	ErrSizeMismatch = errors.New("chunk size mismatch")

	// Assembly failures keep chunk blobs for inspection; the session is
	// marked failed and is not retried automatically.
	ErrAssembly = errors.New("assembly failed")

	// Infrastructure-level errors (blob or metadata store I/O). Chunk
	// uploads failing with ErrStorage are safe to retry.
	ErrStorage = errors.New("storage error")

	ErrInternal = errors.New("internal error")
)
