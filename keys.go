package keyloom

import (
	"errors"
	"fmt"

	"github.com/keyloom/keyloom-go/internal/crypto"
)

// KeyPair holds generated asymmetric key material for one algorithm.
// Private keys never enter key records or backups; they are handed to the
// caller for delivery to the owning device.
type KeyPair = crypto.KeyPair

// GenerateKeyPair creates an asymmetric keypair for the given algorithm.
// strength is the RSA modulus size in bits (2048-4096, zero selects 3072)
// and is ignored for KEM algorithms. The public key wire form embeds the
// algorithm identifier.
func GenerateKeyPair(alg Algorithm, strength int) (*KeyPair, error) {
	kp, err := crypto.GenerateKeyPair(alg, strength)
	if err != nil {
		if errors.Is(err, crypto.ErrKeyGenerationFailed) {
			return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
		}
		return nil, &EncryptionError{Reason: "keypair generation", Err: err}
	}
	return kp, nil
}

// GenerateSymmetricKey returns a fresh 256-bit conversation key from the
// CSPRNG.
func GenerateSymmetricKey() ([]byte, error) {
	key, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return key, nil
}

// WrapSymmetricKey wraps a symmetric key under a self-describing device
// public key.
func WrapSymmetricKey(symmetricKey []byte, devicePublicKey string) ([]byte, error) {
	alg, raw, err := crypto.DecodePublicKey(devicePublicKey)
	if err != nil {
		return nil, &EncryptionError{Reason: "malformed public key", Err: err}
	}
	wrapped, err := crypto.Wrap(alg, raw, symmetricKey)
	if err != nil {
		return nil, &EncryptionError{Reason: "key wrap", Err: err}
	}
	return wrapped, nil
}

// UnwrapSymmetricKey recovers a symmetric key using the device private key.
func UnwrapSymmetricKey(alg Algorithm, privateKey, wrapped []byte) ([]byte, error) {
	key, err := crypto.Unwrap(alg, privateKey, wrapped)
	if err != nil {
		return nil, &DecryptionError{Stage: "unwrap", Err: err}
	}
	return key, nil
}

// KeyedIntegrity computes an HMAC-SHA-256 forensic tag over data under a
// subkey derived from the symmetric key. Independent of the AEAD tag.
func KeyedIntegrity(data, symmetricKey []byte) ([]byte, error) {
	ikey, err := crypto.IntegrityKey(symmetricKey)
	if err != nil {
		return nil, &EncryptionError{Reason: "integrity key derivation", Err: err}
	}
	return crypto.IntegrityTag(ikey, data), nil
}

// ContentHash returns the SHA-256 hex digest of data, used for
// deduplication and forensics.
func ContentHash(data []byte) string {
	return crypto.ContentHash(data)
}
