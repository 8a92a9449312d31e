package crypto

import (
	"bytes"
	"testing"
)

// seqReader yields a deterministic byte stream.
type seqReader struct{ next byte }

func (r *seqReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

func TestSetRandReaderForTesting_Deterministic(t *testing.T) {
	restore := SetRandReaderForTesting(&seqReader{})
	key1, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatal(err)
	}
	kp1, err := GenerateKeyPair(AlgMLKEM768, 0)
	if err != nil {
		t.Fatal(err)
	}
	restore()

	restore = SetRandReaderForTesting(&seqReader{})
	key2, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatal(err)
	}
	kp2, err := GenerateKeyPair(AlgMLKEM768, 0)
	if err != nil {
		t.Fatal(err)
	}
	restore()

	if !bytes.Equal(key1, key2) {
		t.Error("symmetric keys differ under the same reader stream")
	}
	if !bytes.Equal(kp1.PrivateKey, kp2.PrivateKey) {
		t.Error("derived keypairs differ under the same reader stream")
	}

	// With the hook restored, fresh entropy flows again.
	key3, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(key1, key3) {
		t.Error("restore did not reinstate the CSPRNG")
	}
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	if !bytes.Equal(b, []byte{0, 0, 0, 0}) {
		t.Errorf("Zero() left %v", b)
	}
}

func TestGenerateSymmetricKey_Size(t *testing.T) {
	key, err := GenerateSymmetricKey()
	if err != nil {
		t.Fatal(err)
	}
	if len(key) != SymmetricKeySize {
		t.Errorf("key length = %d, want %d", len(key), SymmetricKeySize)
	}
}
