package keyloom

import (
	"encoding/binary"
	"time"

	"github.com/keyloom/keyloom-go/internal/crypto"
)

// timeNow is the clock used for envelope timestamps.
// It can be overridden for testing.
var timeNow = time.Now

// EncryptedEnvelope is the wire and storage representation of one
// encrypted message body.
//
// The integrity tag binds ciphertext, IV, nonce, and timestamp, so
// replaying an old envelope under a new timestamp is detectable as
// tampering.
type EncryptedEnvelope struct {
	// Data is the AES-256-GCM ciphertext with the AEAD tag appended,
	// standard base64.
	Data string `json:"data"`
	// IV is the AEAD nonce, unique per encryption call, standard base64.
	IV string `json:"iv"`
	// HMAC is the HMAC-SHA-256 integrity tag over
	// ciphertext || iv || nonce || timestamp, standard base64.
	HMAC string `json:"hmac"`
	// Timestamp is the envelope creation time as unix seconds. Used for
	// forensic ordering, not cryptographic freshness.
	Timestamp int64 `json:"timestamp"`
	// Nonce is 16 random bytes for anti-replay and deduplication,
	// URL-safe base64.
	Nonce string `json:"nonce"`
	// Fields holds caller-supplied extras (transcripts, file metadata),
	// each independently sealed with the same key but its own IV.
	Fields map[string]*SealedField `json:"fields,omitempty"`
}

// SealedField is one independently sealed extra field of an envelope.
type SealedField struct {
	Data string `json:"data"`
	IV   string `json:"iv"`
}

// EncodeEnvelope seals plaintext under the symmetric key and produces a
// complete envelope. Each extra field is sealed separately with its own
// IV. Encrypting the same plaintext twice yields different ciphertext and
// IV values.
func EncodeEnvelope(plaintext, symmetricKey []byte, extra map[string][]byte) (*EncryptedEnvelope, error) {
	iv, ciphertext, err := crypto.Seal(symmetricKey, plaintext)
	if err != nil {
		return nil, &EncryptionError{Reason: "seal", Err: err}
	}

	nonce, err := crypto.RandomBytes(crypto.EnvelopeNonceSize)
	if err != nil {
		return nil, &EncryptionError{Reason: "nonce", Err: err}
	}

	ts := timeNow().UTC().Unix()

	ikey, err := crypto.IntegrityKey(symmetricKey)
	if err != nil {
		return nil, &EncryptionError{Reason: "integrity key derivation", Err: err}
	}
	tag := crypto.IntegrityTag(ikey, integrityMessage(ciphertext, iv, nonce, ts))

	env := &EncryptedEnvelope{
		Data:      crypto.ToBase64(ciphertext),
		IV:        crypto.ToBase64(iv),
		HMAC:      crypto.ToBase64(tag),
		Timestamp: ts,
		Nonce:     crypto.ToBase64URL(nonce),
	}

	for name, value := range extra {
		fieldIV, fieldCT, err := crypto.Seal(symmetricKey, value)
		if err != nil {
			return nil, &EncryptionError{Reason: "seal field " + name, Err: err}
		}
		if env.Fields == nil {
			env.Fields = make(map[string]*SealedField, len(extra))
		}
		env.Fields[name] = &SealedField{
			Data: crypto.ToBase64(fieldCT),
			IV:   crypto.ToBase64(fieldIV),
		}
	}

	return env, nil
}

// DecodeEnvelope verifies the integrity tag and opens the ciphertext.
// Any failure, whether a malformed envelope, tag mismatch, or AEAD
// failure, returns a DecryptionError and no plaintext. Partial recovery is
// never attempted.
func DecodeEnvelope(env *EncryptedEnvelope, symmetricKey []byte) ([]byte, error) {
	ciphertext, err := crypto.FromBase64(env.Data)
	if err != nil {
		return nil, &DecryptionError{Stage: "envelope", Err: err}
	}
	iv, err := crypto.FromBase64(env.IV)
	if err != nil {
		return nil, &DecryptionError{Stage: "envelope", Err: err}
	}
	tag, err := crypto.FromBase64(env.HMAC)
	if err != nil {
		return nil, &DecryptionError{Stage: "envelope", Err: err}
	}
	nonce, err := crypto.FromBase64URL(env.Nonce)
	if err != nil {
		return nil, &DecryptionError{Stage: "envelope", Err: err}
	}

	ikey, err := crypto.IntegrityKey(symmetricKey)
	if err != nil {
		return nil, &DecryptionError{Stage: "integrity", Err: err}
	}
	if !crypto.VerifyIntegrityTag(ikey, integrityMessage(ciphertext, iv, nonce, env.Timestamp), tag) {
		return nil, &DecryptionError{Stage: "integrity"}
	}

	plaintext, err := crypto.Open(symmetricKey, iv, ciphertext)
	if err != nil {
		return nil, &DecryptionError{Stage: "aead", Err: err}
	}
	return plaintext, nil
}

// DecodeField opens one independently sealed extra field.
func DecodeField(env *EncryptedEnvelope, name string, symmetricKey []byte) ([]byte, error) {
	field, ok := env.Fields[name]
	if !ok {
		return nil, &DecryptionError{Stage: "envelope"}
	}

	ciphertext, err := crypto.FromBase64(field.Data)
	if err != nil {
		return nil, &DecryptionError{Stage: "envelope", Err: err}
	}
	iv, err := crypto.FromBase64(field.IV)
	if err != nil {
		return nil, &DecryptionError{Stage: "envelope", Err: err}
	}

	plaintext, err := crypto.Open(symmetricKey, iv, ciphertext)
	if err != nil {
		return nil, &DecryptionError{Stage: "aead", Err: err}
	}
	return plaintext, nil
}

// integrityMessage builds the byte string bound by the integrity tag:
// ciphertext || iv || nonce || timestamp (8 bytes big-endian).
func integrityMessage(ciphertext, iv, nonce []byte, timestamp int64) []byte {
	msg := make([]byte, 0, len(ciphertext)+len(iv)+len(nonce)+8)
	msg = append(msg, ciphertext...)
	msg = append(msg, iv...)
	msg = append(msg, nonce...)
	msg = binary.BigEndian.AppendUint64(msg, uint64(timestamp))
	return msg
}
