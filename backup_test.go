package keyloom_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keyloom "github.com/keyloom/keyloom-go"
)

func seedUserRecords(t *testing.T, engine *keyloom.Engine) {
	t.Helper()
	ctx := context.Background()

	device, _ := newTestDevice(t, "alice", "alice-dev", keyloom.AlgorithmHybrid)
	convKey := testSymmetricKey(t)
	_, err := engine.Distribute(ctx, "conv-1", convKey, []*keyloom.Device{device}, keyloom.SkipExisting)
	require.NoError(t, err)
	_, err = engine.Distribute(ctx, "conv-2", convKey, []*keyloom.Device{device}, keyloom.SkipExisting)
	require.NoError(t, err)
}

func TestBackup_RoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedUserRecords(t, engine)

	blob, err := engine.ExportBackup(ctx, "alice", "correct horse battery staple")
	require.NoError(t, err)

	records, err := engine.RestoreBackup(ctx, "alice", "correct horse battery staple", blob)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "alice", rec.UserID)
		assert.NotEmpty(t, rec.WrappedKey)
	}
}

func TestBackup_WrongPassword(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedUserRecords(t, engine)

	blob, err := engine.ExportBackup(ctx, "alice", "right password")
	require.NoError(t, err)

	records, err := engine.RestoreBackup(ctx, "alice", "wrong password", blob)
	assert.ErrorIs(t, err, keyloom.ErrInvalidBackup)
	assert.Nil(t, records)
}

func TestBackup_CrossUserRejected(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedUserRecords(t, engine)

	blob, err := engine.ExportBackup(ctx, "alice", "password")
	require.NoError(t, err)

	_, err = engine.RestoreBackup(ctx, "mallory", "password", blob)
	assert.ErrorIs(t, err, keyloom.ErrBackupUserMismatch)
}

func TestBackup_TamperedHeaderFailsDecryption(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedUserRecords(t, engine)

	blob, err := engine.ExportBackup(ctx, "alice", "password")
	require.NoError(t, err)

	// Rewriting the owner in the cleartext header gets past the header
	// check but the user binding in the AEAD additional data does not budge.
	var backup keyloom.Backup
	require.NoError(t, json.Unmarshal(blob, &backup))
	backup.UserID = "mallory"
	forged, err := json.Marshal(&backup)
	require.NoError(t, err)

	_, err = engine.RestoreBackup(ctx, "mallory", "password", forged)
	assert.ErrorIs(t, err, keyloom.ErrInvalidBackup)
}

func TestBackup_TamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedUserRecords(t, engine)

	blob, err := engine.ExportBackup(ctx, "alice", "password")
	require.NoError(t, err)

	var backup keyloom.Backup
	require.NoError(t, json.Unmarshal(blob, &backup))
	backup.Ciphertext = backup.Ciphertext[1:] + "A"
	forged, err := json.Marshal(&backup)
	require.NoError(t, err)

	_, err = engine.RestoreBackup(ctx, "alice", "password", forged)
	assert.ErrorIs(t, err, keyloom.ErrInvalidBackup)
}

func TestInspectBackup(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	seedUserRecords(t, engine)

	blob, err := engine.ExportBackup(ctx, "alice", "password")
	require.NoError(t, err)

	backup, err := keyloom.InspectBackup(blob)
	require.NoError(t, err)
	assert.Equal(t, keyloom.BackupVersion, backup.Version)
	assert.Equal(t, "alice", backup.UserID)
	assert.False(t, backup.ExportedAt.IsZero())
}

func TestInspectBackup_Malformed(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"not json", []byte("not json at all")},
		{"empty object", []byte("{}")},
		{"wrong version", []byte(`{"version":9,"user_id":"alice"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := keyloom.InspectBackup(tt.blob)
			assert.ErrorIs(t, err, keyloom.ErrInvalidBackup)
		})
	}
}

func TestBackup_NoPrivateKeys(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	device, kp := newTestDevice(t, "alice", "alice-dev", keyloom.AlgorithmHybrid)
	convKey := testSymmetricKey(t)
	_, err := engine.Distribute(ctx, "conv-1", convKey, []*keyloom.Device{device}, keyloom.SkipExisting)
	require.NoError(t, err)

	blob, err := engine.ExportBackup(ctx, "alice", "password")
	require.NoError(t, err)

	records, err := engine.RestoreBackup(ctx, "alice", "password", blob)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// The record wraps the conversation key under the device public key;
	// without the device private key it stays sealed, and the private key
	// itself is nowhere in the blob.
	assert.NotContains(t, string(blob), string(kp.PrivateKey))
	got, err := keyloom.UnwrapSymmetricKey(keyloom.AlgorithmHybrid, kp.PrivateKey, records[0].WrappedKey)
	require.NoError(t, err)
	assert.Equal(t, convKey, got)
}
