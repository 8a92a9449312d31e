package keyloom

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyloom/keyloom-go/internal/crypto"
)

// ExistingKeyPolicy controls what Distribute does for a device that
// already holds an active record for the tuple.
type ExistingKeyPolicy string

const (
	// SkipExisting leaves the device's current active record in place.
	SkipExisting ExistingKeyPolicy = "skip"
	// RotateExisting replaces the device's current active record with one
	// wrapping the supplied key.
	RotateExisting ExistingKeyPolicy = "rotate"
)

// DeviceWarning records why distribution skipped a device.
type DeviceWarning struct {
	DeviceID string
	Reason   string
}

// DistributionResult summarizes a fan-out.
type DistributionResult struct {
	// Created holds the new active records, for fresh and rotated tuples.
	Created []*KeyRecord
	// Skipped lists devices that already held an active record and were
	// left alone under SkipExisting.
	Skipped []string
	// Warnings lists devices that could not receive the key. Distribution
	// to the remaining devices proceeds regardless.
	Warnings []DeviceWarning
}

// Distribute wraps the symmetric key for every participant device and
// creates an active record per device. A device with an invalid key or
// untrusted state is skipped with a warning; distribution never fails as a
// whole for a single bad device. Only a store failure aborts.
//
// Calling Distribute again for an already-covered device is governed by
// policy: SkipExisting no-ops, RotateExisting supersedes the old record.
func (e *Engine) Distribute(ctx context.Context, conversationID string, symmetricKey []byte, devices []*Device, policy ExistingKeyPolicy) (*DistributionResult, error) {
	result := &DistributionResult{}

	for _, device := range devices {
		if err := e.distributeOne(ctx, conversationID, symmetricKey, device, policy, result); err != nil {
			return nil, err
		}
	}

	e.log.WithField("conversation", conversationID).
		WithField("created", len(result.Created)).
		WithField("warnings", len(result.Warnings)).
		Info("key distribution complete")

	return result, nil
}

// distributeOne handles a single device. Validation and wrap failures
// become warnings; store failures other than ErrConflict propagate and
// abort the fan-out.
func (e *Engine) distributeOne(ctx context.Context, conversationID string, symmetricKey []byte, device *Device, policy ExistingKeyPolicy, result *DistributionResult) error {
	warn := func(reason string) {
		result.Warnings = append(result.Warnings, DeviceWarning{DeviceID: device.ID, Reason: reason})
	}

	if !device.Trusted() {
		warn(fmt.Sprintf("device trust state is %q", device.Trust))
		return nil
	}

	alg, raw, err := crypto.DecodePublicKey(device.PublicKey)
	if err != nil {
		warn("malformed public key: " + err.Error())
		return nil
	}
	if err := crypto.ValidatePublicKey(alg, raw); err != nil {
		warn("invalid public key: " + err.Error())
		return nil
	}

	tuple := KeyTuple{
		ConversationID: conversationID,
		UserID:         device.UserID,
		DeviceID:       device.ID,
		Algorithm:      alg,
	}

	existing, err := e.store.ActiveRecord(ctx, tuple)
	switch {
	case err == nil:
		if policy == SkipExisting {
			result.Skipped = append(result.Skipped, device.ID)
			return nil
		}
		return e.rotateTuple(ctx, existing, device, symmetricKey, result)
	case errors.Is(err, ErrRecordNotFound):
		// fresh tuple
	default:
		return err
	}

	wrapped, err := crypto.Wrap(alg, raw, symmetricKey)
	if err != nil {
		warn("wrap failed: " + err.Error())
		return nil
	}

	rec := newKeyRecord(tuple, device.PublicKey, wrapped, wrapStrength(alg, raw), e.now())
	if err := e.store.CreateActive(ctx, rec); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost a race with a concurrent distribution for this tuple.
			warn("concurrent record creation")
			return nil
		}
		return err
	}

	result.Created = append(result.Created, rec)
	e.emit(Event{
		Type:           EventKeyAvailable,
		ConversationID: conversationID,
		UserID:         device.UserID,
		DeviceID:       device.ID,
		Algorithm:      alg,
	})
	return nil
}

// rotateTuple replaces a device's active record with one wrapping the
// supplied key.
func (e *Engine) rotateTuple(ctx context.Context, old *KeyRecord, device *Device, symmetricKey []byte, result *DistributionResult) error {
	alg, raw, err := crypto.DecodePublicKey(device.PublicKey)
	if err != nil {
		result.Warnings = append(result.Warnings, DeviceWarning{DeviceID: device.ID, Reason: "malformed public key: " + err.Error()})
		return nil
	}

	wrapped, err := crypto.Wrap(alg, raw, symmetricKey)
	if err != nil {
		result.Warnings = append(result.Warnings, DeviceWarning{DeviceID: device.ID, Reason: "wrap failed: " + err.Error()})
		return nil
	}

	rec := newKeyRecord(old.Tuple(), device.PublicKey, wrapped, wrapStrength(alg, raw), e.now())
	if err := e.store.ReplaceActive(ctx, old.ID, rec, nil); err != nil {
		return err
	}

	result.Created = append(result.Created, rec)
	e.emit(Event{
		Type:           EventKeyAvailable,
		ConversationID: old.ConversationID,
		UserID:         device.UserID,
		DeviceID:       device.ID,
		Algorithm:      alg,
	})
	return nil
}

// wrapStrength reports the recorded key strength in bits for a wrap key.
func wrapStrength(alg Algorithm, raw []byte) int {
	return crypto.PublicKeyStrength(alg, raw)
}
