package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// IntegrityKey derives the HMAC subkey for envelope integrity tags from a
// symmetric key. Domain separation from the AEAD key is provided by the
// HKDF context string.
func IntegrityKey(symmetricKey []byte) ([]byte, error) {
	return DeriveKey(symmetricKey, nil, []byte(IntegrityContext), HMACTagSize)
}

// IntegrityTag computes an HMAC-SHA-256 tag over data.
func IntegrityTag(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifyIntegrityTag checks an HMAC-SHA-256 tag in constant time.
func VerifyIntegrityTag(key, data, tag []byte) bool {
	return hmac.Equal(IntegrityTag(key, data), tag)
}

// ContentHash returns the SHA-256 hex digest of data. Used for forensic
// tamper-evidence and deduplication, independent of the AEAD tag.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the hex SHA-256 fingerprint of a public key's wire
// form. The fingerprint changes whenever the key material changes.
func Fingerprint(encodedPublicKey string) string {
	sum := sha256.Sum256([]byte(encodedPublicKey))
	return hex.EncodeToString(sum[:])
}
