package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
)

// KeyPair holds generated asymmetric key material for one algorithm.
//
// For RSA the keys are DER-encoded (PKIX public, PKCS#8 private). For KEM
// algorithms they are the circl binary marshalings.
type KeyPair struct {
	// Algorithm is the wrap algorithm this keypair serves.
	Algorithm Algorithm
	// PublicKey is the raw public key bytes.
	PublicKey []byte
	// PrivateKey is the raw private key bytes.
	PrivateKey []byte
	// Strength is the key strength in bits (RSA modulus size, or the KEM
	// parameter-set size).
	Strength int
	// PublicKeyEncoded is the self-describing wire form of the public key.
	PublicKeyEncoded string
}

// kemStrength is the nominal parameter-set strength recorded for KEM keys.
const kemStrength = 768

// GenerateKeyPair creates a keypair for the given algorithm. strength is
// the RSA modulus size in bits and ignored for KEM algorithms; zero selects
// the default.
func GenerateKeyPair(alg Algorithm, strength int) (*KeyPair, error) {
	switch alg {
	case AlgRSAOAEP:
		return generateRSAKeyPair(strength)
	case AlgMLKEM768, AlgHybrid:
		return generateKEMKeyPair(alg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}

func generateRSAKeyPair(bits int) (*KeyPair, error) {
	if bits == 0 {
		bits = DefaultRSABits
	}
	if bits < MinRSABits || bits > MaxRSABits {
		return nil, fmt.Errorf("%w: %d bits", ErrInvalidStrength, bits)
	}

	priv, err := rsa.GenerateKey(reader(), bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}

	return &KeyPair{
		Algorithm:        AlgRSAOAEP,
		PublicKey:        pubBytes,
		PrivateKey:       privBytes,
		Strength:         bits,
		PublicKeyEncoded: EncodePublicKey(AlgRSAOAEP, pubBytes),
	}, nil
}

func generateKEMKeyPair(alg Algorithm) (*KeyPair, error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, err
	}

	var pubBytes, privBytes []byte
	if randReader != nil {
		// Deterministic derivation path for tests with a fixed reader.
		seed, err := RandomBytes(scheme.SeedSize())
		if err != nil {
			return nil, err
		}
		pub, priv := scheme.DeriveKeyPair(seed)
		pubBytes, _ = pub.MarshalBinary()
		privBytes, _ = priv.MarshalBinary()
	} else {
		pub, priv, err := scheme.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
		}
		// MarshalBinary never fails for freshly generated keys.
		pubBytes, _ = pub.MarshalBinary()
		privBytes, _ = priv.MarshalBinary()
	}

	return &KeyPair{
		Algorithm:        alg,
		PublicKey:        pubBytes,
		PrivateKey:       privBytes,
		Strength:         kemStrength,
		PublicKeyEncoded: EncodePublicKey(alg, pubBytes),
	}, nil
}

// PublicKeyStrength returns the strength in bits recorded for a public
// key: the RSA modulus size, or the KEM parameter-set size.
func PublicKeyStrength(alg Algorithm, raw []byte) int {
	if alg == AlgRSAOAEP {
		if pub, err := x509.ParsePKIXPublicKey(raw); err == nil {
			if rsaPub, ok := pub.(*rsa.PublicKey); ok {
				return rsaPub.N.BitLen()
			}
		}
		return 0
	}
	return kemStrength
}

// ValidatePublicKey checks that raw is a structurally valid public key for
// the algorithm. It parses the key material without performing any
// cryptographic operation.
func ValidatePublicKey(alg Algorithm, raw []byte) error {
	switch alg {
	case AlgRSAOAEP:
		pub, err := x509.ParsePKIXPublicKey(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
		}
		if bits := rsaPub.N.BitLen(); bits < MinRSABits {
			return fmt.Errorf("%w: %d-bit modulus below minimum", ErrInvalidPublicKey, bits)
		}
		return nil
	case AlgMLKEM768, AlgHybrid:
		scheme, err := kemScheme(alg)
		if err != nil {
			return err
		}
		if _, err := scheme.UnmarshalBinaryPublicKey(raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
}
