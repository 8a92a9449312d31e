package keyloom

import (
	"github.com/keyloom/keyloom-go/internal/crypto"
)

// TrustState describes whether a device may receive wrapped keys.
type TrustState string

const (
	// TrustTrusted devices participate in key distribution.
	TrustTrusted TrustState = "trusted"
	// TrustUntrusted devices are skipped with a warning.
	TrustUntrusted TrustState = "untrusted"
	// TrustRevoked devices are permanently excluded.
	TrustRevoked TrustState = "revoked"
)

// Device is a named endpoint belonging to one user.
type Device struct {
	// ID uniquely identifies the device.
	ID string `json:"device_id"`
	// UserID is the owning user.
	UserID string `json:"user_id"`
	// PublicKey is the device's self-describing public key
	// ("<algorithm>.<base64url>").
	PublicKey string `json:"public_key"`
	// SupportedAlgorithms is the device's declared capability set.
	SupportedAlgorithms []Algorithm `json:"supported_algorithms"`
	// QuantumReady indicates the device has operationally verified its
	// post-quantum support. Declared capability alone is insufficient for
	// readiness checks.
	QuantumReady bool `json:"quantum_ready"`
	// Trust is the device's trust state.
	Trust TrustState `json:"trust_state"`
}

// Fingerprint derives the device fingerprint from its current public key.
// Rotating the device keypair changes the fingerprint, which invalidates
// prior wrapped-key records for new ciphertext.
func (d *Device) Fingerprint() string {
	return crypto.Fingerprint(d.PublicKey)
}

// Supports reports whether the device declares support for alg.
func (d *Device) Supports(alg Algorithm) bool {
	for _, a := range d.SupportedAlgorithms {
		if a == alg {
			return true
		}
	}
	return false
}

// SupportsFamily reports whether any declared algorithm belongs to the
// family.
func (d *Device) SupportsFamily(f AlgorithmFamily) bool {
	for _, a := range d.SupportedAlgorithms {
		if a.Family() == f {
			return true
		}
	}
	return false
}

// KeyAlgorithm returns the algorithm embedded in the device's public key.
func (d *Device) KeyAlgorithm() (Algorithm, error) {
	alg, _, err := crypto.DecodePublicKey(d.PublicKey)
	return alg, err
}

// Trusted reports whether the device may receive wrapped keys.
func (d *Device) Trusted() bool {
	return d.Trust == TrustTrusted
}
