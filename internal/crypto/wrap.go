package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

// Wrap encrypts a symmetric key under a recipient public key.
//
// For RSA-OAEP the symmetric key is encrypted directly. For KEM algorithms
// the construction is encapsulate, derive a key-encryption key with
// HKDF-SHA-512, then seal the symmetric key with AES-256-GCM; the blob is
// ct_kem || nonce || sealed.
func Wrap(alg Algorithm, publicKey, symmetricKey []byte) ([]byte, error) {
	if len(symmetricKey) != SymmetricKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(symmetricKey), SymmetricKeySize)
	}

	switch alg {
	case AlgRSAOAEP:
		return wrapRSA(publicKey, symmetricKey)
	case AlgMLKEM768, AlgHybrid:
		return wrapKEM(alg, publicKey, symmetricKey)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}

// Unwrap recovers a symmetric key from a wrapped blob using the matching
// private key. It fails closed with ErrDecryptionFailed on a wrong key,
// tampering, or corruption.
func Unwrap(alg Algorithm, privateKey, wrapped []byte) ([]byte, error) {
	switch alg {
	case AlgRSAOAEP:
		return unwrapRSA(privateKey, wrapped)
	case AlgMLKEM768, AlgHybrid:
		return unwrapKEM(alg, privateKey, wrapped)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}

func wrapRSA(publicKey, symmetricKey []byte) ([]byte, error) {
	pub, err := x509.ParsePKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), reader(), rsaPub, symmetricKey, []byte(WrapContext))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return wrapped, nil
}

func unwrapRSA(privateKey, wrapped []byte) ([]byte, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	rsaPriv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPrivateKey)
	}

	key, err := rsa.DecryptOAEP(sha256.New(), nil, rsaPriv, wrapped, []byte(WrapContext))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(key) != SymmetricKeySize {
		return nil, ErrDecryptionFailed
	}
	return key, nil
}

func wrapKEM(alg Algorithm, publicKey, symmetricKey []byte) ([]byte, error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, err
	}

	pub, err := scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	var ctKem, sharedSecret []byte
	if randReader != nil {
		seed, err := RandomBytes(scheme.EncapsulationSeedSize())
		if err != nil {
			return nil, err
		}
		ctKem, sharedSecret, err = scheme.EncapsulateDeterministically(pub, seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
	} else {
		ctKem, sharedSecret, err = scheme.Encapsulate(pub)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
	}
	defer Zero(sharedSecret)

	kek, err := deriveWrapKey(sharedSecret, ctKem)
	if err != nil {
		return nil, err
	}
	defer Zero(kek)

	nonce, err := RandomBytes(AESNonceSize)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, symmetricKey, ctKem)

	out := make([]byte, 0, len(ctKem)+AESNonceSize+len(sealed))
	out = append(out, ctKem...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

func unwrapKEM(alg Algorithm, privateKey, wrapped []byte) ([]byte, error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, err
	}

	ctSize := scheme.CiphertextSize()
	if len(wrapped) < ctSize+AESNonceSize+AESTagSize {
		return nil, fmt.Errorf("%w: blob too short", ErrInvalidWrappedKey)
	}

	priv, err := scheme.UnmarshalBinaryPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	ctKem := wrapped[:ctSize]
	nonce := wrapped[ctSize : ctSize+AESNonceSize]
	sealed := wrapped[ctSize+AESNonceSize:]

	sharedSecret, err := scheme.Decapsulate(priv, ctKem)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer Zero(sharedSecret)

	kek, err := deriveWrapKey(sharedSecret, ctKem)
	if err != nil {
		return nil, err
	}
	defer Zero(kek)

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	key, err := gcm.Open(nil, nonce, sealed, ctKem)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(key) != SymmetricKeySize {
		return nil, ErrDecryptionFailed
	}
	return key, nil
}

// deriveWrapKey derives the AES key-encryption key from a KEM shared
// secret. The salt is the SHA-256 hash of the KEM ciphertext so each
// encapsulation yields an independent KEK.
func deriveWrapKey(sharedSecret, ctKem []byte) ([]byte, error) {
	saltHash := sha256.Sum256(ctKem)
	return DeriveKey(sharedSecret, saltHash[:], []byte(WrapContext), AESKeySize)
}
