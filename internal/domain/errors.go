package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidTag      = errors.New("invalid tag: must be 1-64 characters")
	ErrInvalidPayload  = errors.New("payload must be valid JSON of at most 64 KiB")
	ErrInvalidPosition = errors.New("position must be a non-negative index")
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrRegistrationTag rejects a registration tag on the plain enqueue
	// path. It matches ErrInvalidTag under errors.Is.
	ErrRegistrationTag = fmt.Errorf("%w: registrations are queued via POST /api/v1/queue/register", ErrInvalidTag)

	// ErrConcurrentModification is reported by a blob repository when a
	// write raced with another writer. The durability writer retries once.
	ErrConcurrentModification = errors.New("concurrent modification of stored blob")

	// ErrSessionRequired is returned by a provider when the remote side has
	// no session for this client and a registration must run first.
	ErrSessionRequired = errors.New("session required: registration must run first")

	// ErrPermanent marks a provider failure that retrying cannot fix.
	ErrPermanent = errors.New("permanent request failure")
)
