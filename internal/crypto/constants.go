package crypto

const (
	// WrapContext is the HKDF context string for deriving key-encryption
	// keys from KEM shared secrets.
	WrapContext = "keyloom:wrap:v1"

	// IntegrityContext is the HKDF context string for deriving the HMAC
	// integrity subkey from a symmetric key.
	IntegrityContext = "keyloom:integrity:v1"

	// SymmetricKeySize is the size of a conversation symmetric key in bytes.
	SymmetricKeySize = 32

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// HMACTagSize is the size of an HMAC-SHA-256 integrity tag in bytes.
	HMACTagSize = 32

	// EnvelopeNonceSize is the size of the anti-replay nonce attached to
	// encrypted envelopes, in bytes.
	EnvelopeNonceSize = 16

	// MinRSABits is the smallest accepted RSA modulus size.
	MinRSABits = 2048
	// DefaultRSABits is the RSA modulus size used when no strength is requested.
	DefaultRSABits = 3072
	// MaxRSABits is the largest accepted RSA modulus size.
	MaxRSABits = 4096
)
