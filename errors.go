package keyloom

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingStore is returned when no key record store is provided.
	ErrMissingStore = errors.New("key record store is required")

	// ErrKeyGeneration is returned when entropy or the algorithm
	// implementation fails during key creation. Not retried automatically.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrEncryption is returned when sealing or wrapping fails, typically
	// on a malformed key or unsupported algorithm.
	ErrEncryption = errors.New("encryption failed")

	// ErrDecryption is returned when opening or unwrapping fails: wrong
	// key, tampering, or corruption. Always fails closed.
	ErrDecryption = errors.New("decryption failed")

	// ErrConflict is returned when creating a key record would produce two
	// simultaneously active records for the same tuple. Callers should
	// re-read state and retry.
	ErrConflict = errors.New("active key record conflict")

	// ErrRecordNotFound is returned when no matching key record exists.
	ErrRecordNotFound = errors.New("key record not found")

	// ErrRateLimited is returned when scheduled rotation exceeds the
	// allowed frequency. Never returned for emergency revocation.
	ErrRateLimited = errors.New("rotation rate limit exceeded")

	// ErrNegotiation is returned when participant devices share no common
	// algorithm.
	ErrNegotiation = errors.New("no common algorithm")

	// ErrNotReady is returned when algorithm retirement is attempted
	// before the full device fleet is ready for the replacement.
	ErrNotReady = errors.New("fleet not ready for algorithm retirement")

	// ErrInvalidBackup is returned when a backup blob is malformed or the
	// password is wrong.
	ErrInvalidBackup = errors.New("invalid backup")

	// ErrBackupUserMismatch is returned when a backup blob is bound to a
	// different user than the one restoring it.
	ErrBackupUserMismatch = errors.New("backup belongs to a different user")
)

// KeyloomError is implemented by all engine errors.
type KeyloomError interface {
	error
	KeyloomError() // marker method
}

// EncryptionError represents a failure to seal a payload or wrap a key.
type EncryptionError struct {
	Reason string
	Err    error
}

func (e *EncryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encryption failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("encryption failed: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *EncryptionError) Is(target error) bool {
	return target == ErrEncryption
}

// KeyloomError implements the KeyloomError interface.
func (e *EncryptionError) KeyloomError() {}

// DecryptionError represents a failure to open a payload or unwrap a key.
// Stage names the pipeline step ("envelope", "integrity", "aead", "unwrap")
// but never carries key material or partial plaintext.
type DecryptionError struct {
	Stage string
	Err   error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed at %s", e.Stage)
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryption
}

// KeyloomError implements the KeyloomError interface.
func (e *DecryptionError) KeyloomError() {}

// ConflictError reports a violated one-active-record precondition.
type ConflictError struct {
	Tuple KeyTuple
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("active key record conflict for %s", e.Tuple)
}

// Is implements errors.Is for sentinel error matching.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// KeyloomError implements the KeyloomError interface.
func (e *ConflictError) KeyloomError() {}

// RateLimitError reports a throttled scheduled rotation.
type RateLimitError struct {
	ConversationID string
	RetryAfter     time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rotation rate limit exceeded for conversation %s, retry after %v", e.ConversationID, e.RetryAfter)
}

// Is implements errors.Is for sentinel error matching.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// KeyloomError implements the KeyloomError interface.
func (e *RateLimitError) KeyloomError() {}

// NegotiationError reports that no algorithm is common to all devices.
type NegotiationError struct {
	// DeviceCount is the number of devices considered.
	DeviceCount int
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("no common algorithm across %d devices", e.DeviceCount)
}

// Is implements errors.Is for sentinel error matching.
func (e *NegotiationError) Is(target error) bool {
	return target == ErrNegotiation
}

// KeyloomError implements the KeyloomError interface.
func (e *NegotiationError) KeyloomError() {}
