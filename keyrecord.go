package keyloom

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keyloom/keyloom-go/internal/crypto"
)

// KeyStatus is the lifecycle state of a key record.
type KeyStatus string

const (
	// StatusActive records wrap the key used for new ciphertext.
	StatusActive KeyStatus = "active"
	// StatusInactive records were superseded by rotation. Their wrapped
	// key still decrypts ciphertext sealed before the rotation.
	StatusInactive KeyStatus = "inactive"
	// StatusRevoked is terminal; the wrapped key material is treated as
	// non-recoverable.
	StatusRevoked KeyStatus = "revoked"
)

// KeyTuple identifies the unit of key-state serialization: at most one
// active record may exist per tuple at any time.
type KeyTuple struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	DeviceID       string    `json:"device_id"`
	Algorithm      Algorithm `json:"algorithm"`
}

func (t KeyTuple) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", t.ConversationID, t.UserID, t.DeviceID, t.Algorithm)
}

// KeyRecord is one wrapped symmetric key for one
// (conversation, user, device, algorithm) tuple.
//
// Records are append-only: rotation and revocation never mutate the
// wrapped key of an existing record; they deactivate it and create a new
// one with a strictly higher version.
type KeyRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	KeyTuple

	// DeviceFingerprint is the fingerprint of the device public key the
	// wrapped key was produced for.
	DeviceFingerprint string `json:"device_fingerprint"`
	// WrappedKey is the symmetric key encrypted under the device public
	// key. Nil after secure deletion.
	WrappedKey []byte `json:"wrapped_key,omitempty"`
	// DevicePublicKey is the self-describing device public key used for
	// wrapping.
	DevicePublicKey string `json:"public_key"`
	// KeyStrength is the wrap key strength in bits.
	KeyStrength int `json:"key_strength"`
	// Version increases strictly on every new record for the tuple.
	Version int `json:"key_version"`
	// IsActive marks the record usable for new ciphertext.
	IsActive bool `json:"is_active"`
	// WrappedKeyDigest is the forensic SHA-256 digest of the wrapped key,
	// preserved through soft deletion.
	WrappedKeyDigest string `json:"wrapped_key_digest,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	// RevokedAt is set when the record is revoked.
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	// RevocationReason records why the record was revoked.
	RevocationReason string `json:"revocation_reason,omitempty"`
	// DeletedAt is set by soft deletion; forensic fields survive it.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Status derives the lifecycle state.
func (r *KeyRecord) Status() KeyStatus {
	switch {
	case r.RevokedAt != nil:
		return StatusRevoked
	case r.IsActive:
		return StatusActive
	default:
		return StatusInactive
	}
}

// Tuple returns the record's composite identity.
func (r *KeyRecord) Tuple() KeyTuple {
	return r.KeyTuple
}

// Clone returns a deep copy. Stores hand out clones so callers cannot
// mutate persisted state.
func (r *KeyRecord) Clone() *KeyRecord {
	cp := *r
	if r.WrappedKey != nil {
		cp.WrappedKey = append([]byte(nil), r.WrappedKey...)
	}
	if r.RevokedAt != nil {
		at := *r.RevokedAt
		cp.RevokedAt = &at
	}
	if r.DeletedAt != nil {
		at := *r.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}

// newKeyRecord assembles an active record for a freshly wrapped key.
// publicKey is the self-describing wrap key, which is the device's own key
// during distribution but a newly generated one during migration.
// The version is assigned by the store when the record is persisted.
func newKeyRecord(tuple KeyTuple, publicKey string, wrapped []byte, strength int, at time.Time) *KeyRecord {
	return &KeyRecord{
		ID:                uuid.NewString(),
		KeyTuple:          tuple,
		DeviceFingerprint: crypto.Fingerprint(publicKey),
		WrappedKey:        wrapped,
		DevicePublicKey:   publicKey,
		KeyStrength:       strength,
		IsActive:          true,
		WrappedKeyDigest:  crypto.ContentHash(wrapped),
		CreatedAt:         at,
	}
}
