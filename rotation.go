package keyloom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keyloom/keyloom-go/internal/crypto"
)

// RotationOutcome tags the result of a scheduled rotation attempt. It
// replaces exception-driven control flow: being throttled or losing a
// race is an outcome, not an error.
type RotationOutcome string

const (
	// OutcomeRotated means a new key was generated and distributed.
	OutcomeRotated RotationOutcome = "rotated"
	// OutcomeRateLimited means the rotation window is exhausted; no state
	// changed. Retry after RetryAfter.
	OutcomeRateLimited RotationOutcome = "rate-limited"
	// OutcomeConflict means a concurrent rotation won the race; no further
	// devices were touched. Re-read state and retry if still needed.
	OutcomeConflict RotationOutcome = "conflict"
)

// RotationResult reports the outcome of a scheduled rotation.
type RotationResult struct {
	Outcome RotationOutcome
	// NewKey is the freshly generated symmetric key, set when Outcome is
	// OutcomeRotated. Callers seal new messages with it.
	NewKey []byte
	// Distribution summarizes the per-device fan-out of the new key.
	Distribution *DistributionResult
	// RetryAfter is how long to wait when rate-limited.
	RetryAfter time.Duration
}

// RotateConversation performs a scheduled rotation: it generates a fresh
// symmetric key and supersedes every device's active record with one
// wrapping the new key. Retired records keep their wrapped key so past
// ciphertext stays decryptable; the new key never decrypts old ciphertext
// and the old key never decrypts new.
//
// Scheduled rotations are rate-limited per conversation. The limiter runs
// on the engine clock, so tests can simulate the window elapsing.
func (e *Engine) RotateConversation(ctx context.Context, conversationID string, devices []*Device) (*RotationResult, error) {
	now := e.now()
	lim := e.limiter(conversationID)

	reservation := lim.ReserveN(now, 1)
	if !reservation.OK() {
		return &RotationResult{Outcome: OutcomeRateLimited}, nil
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		e.log.WithField("conversation", conversationID).
			WithField("retry_after", delay).
			Warn("scheduled rotation rate limited")
		return &RotationResult{Outcome: OutcomeRateLimited, RetryAfter: delay}, nil
	}

	newKey, err := GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}

	dist, err := e.Distribute(ctx, conversationID, newKey, devices, RotateExisting)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return &RotationResult{Outcome: OutcomeConflict}, nil
		}
		return nil, err
	}

	e.emit(Event{Type: EventKeyRotated, ConversationID: conversationID})

	return &RotationResult{
		Outcome:      OutcomeRotated,
		NewKey:       newKey,
		Distribution: dist,
	}, nil
}

// RevocationResult reports an emergency revocation.
type RevocationResult struct {
	// Revoked is the compromised record after revocation.
	Revoked *KeyRecord
	// Replacement is the new active record for the compromised tuple.
	Replacement *KeyRecord
	// NewKey is the replacement symmetric key for the conversation.
	NewKey []byte
	// Distribution summarizes the re-wrap of the new key for the
	// remaining devices.
	Distribution *DistributionResult
}

// EmergencyRevoke revokes a compromised record and creates its replacement
// in one atomic store operation, then redistributes a fresh symmetric key
// to every other device. It bypasses the rotation rate limiter: a security
// response is never throttled.
//
// The in-memory wrapped key of the revoked record is zeroized; the store
// keeps only the forensic digest once the record is soft-deleted.
func (e *Engine) EmergencyRevoke(ctx context.Context, record *KeyRecord, reason string, devices []*Device) (*RevocationResult, error) {
	var target *Device
	others := make([]*Device, 0, len(devices))
	for _, d := range devices {
		if d.ID == record.DeviceID {
			target = d
		} else {
			others = append(others, d)
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: device %s not in participant set", ErrRecordNotFound, record.DeviceID)
	}

	newKey, err := GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}

	alg, raw, err := crypto.DecodePublicKey(target.PublicKey)
	if err != nil {
		return nil, &EncryptionError{Reason: "malformed public key", Err: err}
	}
	wrapped, err := crypto.Wrap(alg, raw, newKey)
	if err != nil {
		return nil, &EncryptionError{Reason: "key wrap", Err: err}
	}

	now := e.now()
	replacement := newKeyRecord(record.Tuple(), target.PublicKey, wrapped, wrapStrength(alg, raw), now)
	rev := &Revocation{Reason: reason, At: now}

	if err := e.store.ReplaceActive(ctx, record.ID, replacement, rev); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, &ConflictError{Tuple: record.Tuple()}
		}
		return nil, err
	}

	// Scrub the caller's copy of the revoked key material.
	crypto.Zero(record.WrappedKey)
	record.WrappedKey = nil
	record.IsActive = false
	record.RevokedAt = &now
	record.RevocationReason = reason

	e.emit(Event{
		Type:           EventKeyRevoked,
		ConversationID: record.ConversationID,
		UserID:         record.UserID,
		DeviceID:       record.DeviceID,
		Algorithm:      record.Algorithm,
		Reason:         reason,
		At:             now,
	})
	e.emit(Event{
		Type:           EventKeyAvailable,
		ConversationID: record.ConversationID,
		UserID:         target.UserID,
		DeviceID:       target.ID,
		Algorithm:      alg,
	})

	dist, err := e.Distribute(ctx, record.ConversationID, newKey, others, RotateExisting)
	if err != nil {
		return nil, err
	}

	e.log.WithField("conversation", record.ConversationID).
		WithField("device", record.DeviceID).
		WithField("reason", reason).
		Warn("emergency revocation complete")

	return &RevocationResult{
		Revoked:      record,
		Replacement:  replacement,
		NewKey:       newKey,
		Distribution: dist,
	}, nil
}
