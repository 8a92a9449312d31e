package keyloom

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/keyloom/keyloom-go/internal/crypto"
)

// BackupVersion is the current backup format version.
const BackupVersion = 1

// Argon2id parameters for the backup key derivation.
const (
	backupArgonTime    = 3
	backupArgonMemory  = 64 * 1024
	backupArgonThreads = 4
	backupSaltSize     = 16
)

// Backup is a password-encrypted export of one user's key records.
//
// The blob never contains private keys: records hold only wrapped keys,
// which are useless without the device private keys that never leave
// their devices. The user binding is enforced twice: the cleartext header
// is checked before any key derivation, and the user ID is bound into the
// AEAD additional data so a tampered header cannot pass decryption.
type Backup struct {
	// Version is the backup format version. MUST be 1.
	Version int `json:"version"`
	// UserID is the owner; restoration for any other user is rejected.
	UserID string `json:"user_id"`
	// Salt is the argon2id salt (base64url, 16 bytes decoded).
	Salt string `json:"salt"`
	// Nonce is the ChaCha20-Poly1305 nonce (base64url).
	Nonce string `json:"nonce"`
	// Time, Memory, and Threads are the argon2id parameters used.
	Time    uint32 `json:"argon2_time"`
	Memory  uint32 `json:"argon2_memory"`
	Threads uint8  `json:"argon2_threads"`
	// Ciphertext is the sealed record list (base64url).
	Ciphertext string `json:"ciphertext"`
	// ExportedAt is the export timestamp. Informational only.
	ExportedAt time.Time `json:"exported_at"`
}

// Validate checks the backup structure without deriving any keys.
func (b *Backup) Validate() error {
	if b.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, b.Version)
	}
	if b.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidBackup)
	}
	salt, err := crypto.FromBase64URL(b.Salt)
	if err != nil || len(salt) != backupSaltSize {
		return fmt.Errorf("%w: bad salt", ErrInvalidBackup)
	}
	nonce, err := crypto.FromBase64URL(b.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSize {
		return fmt.Errorf("%w: bad nonce", ErrInvalidBackup)
	}
	if b.Ciphertext == "" {
		return fmt.Errorf("%w: empty ciphertext", ErrInvalidBackup)
	}
	if b.Time == 0 || b.Memory == 0 || b.Threads == 0 {
		return fmt.Errorf("%w: bad kdf parameters", ErrInvalidBackup)
	}
	return nil
}

// ExportBackup serializes all of the user's key records into a
// password-encrypted blob.
func (e *Engine) ExportBackup(ctx context.Context, userID, password string) ([]byte, error) {
	records, err := e.store.RecordsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}

	salt, err := crypto.RandomBytes(backupSaltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.RandomBytes(chacha20poly1305.NonceSize)
	if err != nil {
		return nil, err
	}

	key := argon2.IDKey([]byte(password), salt, backupArgonTime, backupArgonMemory, backupArgonThreads, chacha20poly1305.KeySize)
	defer crypto.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, nonce, payload, []byte(userID))

	backup := &Backup{
		Version:    BackupVersion,
		UserID:     userID,
		Salt:       crypto.ToBase64URL(salt),
		Nonce:      crypto.ToBase64URL(nonce),
		Time:       backupArgonTime,
		Memory:     backupArgonMemory,
		Threads:    backupArgonThreads,
		Ciphertext: crypto.ToBase64URL(sealed),
		ExportedAt: e.now(),
	}
	return json.Marshal(backup)
}

// RestoreBackup decrypts a backup blob and returns the contained records.
// The blob must belong to userID; cross-user restoration is rejected
// before any decryption is attempted. The records are returned to the
// caller, not written to the store.
func (e *Engine) RestoreBackup(ctx context.Context, userID, password string, blob []byte) ([]*KeyRecord, error) {
	backup, err := InspectBackup(blob)
	if err != nil {
		return nil, err
	}
	if backup.UserID != userID {
		return nil, ErrBackupUserMismatch
	}

	salt, _ := crypto.FromBase64URL(backup.Salt)
	nonce, _ := crypto.FromBase64URL(backup.Nonce)
	sealed, err := crypto.FromBase64URL(backup.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrInvalidBackup)
	}

	key := argon2.IDKey([]byte(password), salt, backup.Time, backup.Memory, backup.Threads, chacha20poly1305.KeySize)
	defer crypto.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	payload, err := aead.Open(nil, nonce, sealed, []byte(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: wrong password or corrupted blob", ErrInvalidBackup)
	}

	var records []*KeyRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrInvalidBackup)
	}
	return records, nil
}

// InspectBackup parses and validates a backup blob's cleartext header
// without deriving keys or decrypting.
func InspectBackup(blob []byte) (*Backup, error) {
	var backup Backup
	if err := json.Unmarshal(blob, &backup); err != nil {
		return nil, fmt.Errorf("%w: malformed blob", ErrInvalidBackup)
	}
	if err := backup.Validate(); err != nil {
		return nil, err
	}
	return &backup, nil
}
