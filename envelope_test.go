package keyloom_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keyloom "github.com/keyloom/keyloom-go"
)

func testSymmetricKey(t *testing.T) []byte {
	t.Helper()
	key, err := keyloom.GenerateSymmetricKey()
	require.NoError(t, err)
	return key
}

func TestEncodeDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"text", []byte("the quick brown fox")},
		{"unicode", []byte("grüße aus münchen 🎉")},
		{"binary", []byte{0x00, 0x01, 0xfe, 0xff}},
	}

	key := testSymmetricKey(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := keyloom.EncodeEnvelope(tt.plaintext, key, nil)
			require.NoError(t, err)
			assert.NotZero(t, env.Timestamp)
			assert.NotEmpty(t, env.Nonce)

			got, err := keyloom.DecodeEnvelope(env, key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestEncodeEnvelope_NonDeterministic(t *testing.T) {
	key := testSymmetricKey(t)
	plaintext := []byte("identical plaintext")

	seenIV := make(map[string]bool)
	seenData := make(map[string]bool)
	seenNonce := make(map[string]bool)
	for i := 0; i < 50; i++ {
		env, err := keyloom.EncodeEnvelope(plaintext, key, nil)
		require.NoError(t, err)
		assert.False(t, seenIV[env.IV], "iv repeated on envelope %d", i)
		assert.False(t, seenData[env.Data], "ciphertext repeated on envelope %d", i)
		assert.False(t, seenNonce[env.Nonce], "nonce repeated on envelope %d", i)
		seenIV[env.IV] = true
		seenData[env.Data] = true
		seenNonce[env.Nonce] = true
	}
}

func TestDecodeEnvelope_Tampered(t *testing.T) {
	key := testSymmetricKey(t)

	fresh := func(t *testing.T) *keyloom.EncryptedEnvelope {
		env, err := keyloom.EncodeEnvelope([]byte("payload"), key, nil)
		require.NoError(t, err)
		return env
	}

	tests := []struct {
		name   string
		mutate func(*keyloom.EncryptedEnvelope)
	}{
		{"data swapped", func(e *keyloom.EncryptedEnvelope) {
			other := fresh(t)
			e.Data = other.Data
		}},
		{"iv swapped", func(e *keyloom.EncryptedEnvelope) {
			other := fresh(t)
			e.IV = other.IV
		}},
		{"hmac swapped", func(e *keyloom.EncryptedEnvelope) {
			other := fresh(t)
			e.HMAC = other.HMAC
		}},
		{"nonce swapped", func(e *keyloom.EncryptedEnvelope) {
			other := fresh(t)
			e.Nonce = other.Nonce
		}},
		{"timestamp shifted", func(e *keyloom.EncryptedEnvelope) {
			e.Timestamp++
		}},
		{"data not base64", func(e *keyloom.EncryptedEnvelope) {
			e.Data = "!!not base64!!"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := fresh(t)
			tt.mutate(env)
			plaintext, err := keyloom.DecodeEnvelope(env, key)
			assert.ErrorIs(t, err, keyloom.ErrDecryption)
			assert.Nil(t, plaintext, "no partial plaintext on failure")
		})
	}
}

func TestDecodeEnvelope_WrongKey(t *testing.T) {
	key := testSymmetricKey(t)
	env, err := keyloom.EncodeEnvelope([]byte("secret"), key, nil)
	require.NoError(t, err)

	other := testSymmetricKey(t)
	_, err = keyloom.DecodeEnvelope(env, other)
	assert.ErrorIs(t, err, keyloom.ErrDecryption)

	var derr *keyloom.DecryptionError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "integrity", derr.Stage)
}

func TestEnvelope_ExtraFields(t *testing.T) {
	key := testSymmetricKey(t)
	env, err := keyloom.EncodeEnvelope([]byte("body"), key, map[string][]byte{
		"transcript": []byte("call transcript text"),
		"file_meta":  []byte(`{"name":"report.pdf"}`),
	})
	require.NoError(t, err)
	require.Len(t, env.Fields, 2)

	// Fields are sealed independently with their own IVs.
	assert.NotEqual(t, env.IV, env.Fields["transcript"].IV)
	assert.NotEqual(t, env.Fields["transcript"].IV, env.Fields["file_meta"].IV)

	transcript, err := keyloom.DecodeField(env, "transcript", key)
	require.NoError(t, err)
	assert.Equal(t, []byte("call transcript text"), transcript)

	_, err = keyloom.DecodeField(env, "missing", key)
	assert.ErrorIs(t, err, keyloom.ErrDecryption)

	other := testSymmetricKey(t)
	_, err = keyloom.DecodeField(env, "transcript", other)
	assert.ErrorIs(t, err, keyloom.ErrDecryption)
}

func TestEnvelope_JSONShape(t *testing.T) {
	key := testSymmetricKey(t)
	env, err := keyloom.EncodeEnvelope([]byte("body"), key, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, name := range []string{"data", "iv", "hmac", "timestamp", "nonce"} {
		assert.Contains(t, fields, name)
	}
	assert.NotContains(t, fields, "fields", "empty extras are omitted")

	var decoded keyloom.EncryptedEnvelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	plaintext, err := keyloom.DecodeEnvelope(&decoded, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), plaintext)
}
