package crypto

import "errors"

var (
	// ErrKeyGenerationFailed is returned when the entropy source or the
	// algorithm implementation fails during key generation.
	ErrKeyGenerationFailed = errors.New("key generation failed")

	// ErrUnknownAlgorithm is returned for algorithm identifiers outside the
	// closed enumeration.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrInvalidPublicKey is returned when a public key is malformed or does
	// not match its declared algorithm.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey is returned when a private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidKeySize is returned when a symmetric key has the wrong size.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when an AES-GCM nonce has the wrong size.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidWrappedKey is returned when a wrapped key blob is too short
	// or structurally malformed.
	ErrInvalidWrappedKey = errors.New("invalid wrapped key")

	// ErrDecryptionFailed is returned when authenticated decryption or
	// unwrapping fails. The cause (wrong key, tampering, corruption) is
	// deliberately not distinguished.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidStrength is returned when a requested key strength is
	// outside the supported range for the algorithm.
	ErrInvalidStrength = errors.New("invalid key strength")
)
