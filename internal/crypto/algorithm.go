package crypto

import (
	"fmt"
	"strings"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/hybrid"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// Algorithm identifies a symmetric-key wrap algorithm. The set is a closed
// enumeration; identifiers outside it are rejected during parsing.
type Algorithm string

const (
	// AlgRSAOAEP is classical RSA-OAEP with SHA-256.
	AlgRSAOAEP Algorithm = "rsa-oaep-sha256"
	// AlgMLKEM768 is the post-quantum ML-KEM-768 KEM.
	AlgMLKEM768 Algorithm = "ml-kem-768"
	// AlgHybrid is the X25519 + ML-KEM-768 hybrid KEM.
	AlgHybrid Algorithm = "x25519-ml-kem-768"
)

// Family classifies algorithms for negotiation and readiness checks.
type Family string

const (
	// FamilyClassical covers pre-quantum asymmetric algorithms.
	FamilyClassical Family = "classical"
	// FamilyPostQuantum covers pure post-quantum KEMs.
	FamilyPostQuantum Family = "post-quantum"
	// FamilyHybrid covers combined classical + post-quantum constructions.
	FamilyHybrid Family = "hybrid"
)

// ParseAlgorithm validates an algorithm identifier string.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgRSAOAEP, AlgMLKEM768, AlgHybrid:
		return Algorithm(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// Valid reports whether a is part of the closed enumeration.
func (a Algorithm) Valid() bool {
	_, err := ParseAlgorithm(string(a))
	return err == nil
}

// Family returns the algorithm's family classification.
func (a Algorithm) Family() Family {
	switch a {
	case AlgMLKEM768:
		return FamilyPostQuantum
	case AlgHybrid:
		return FamilyHybrid
	default:
		return FamilyClassical
	}
}

// Rank orders algorithms by preference for negotiation: hybrid beats pure
// post-quantum, which beats classical.
func (a Algorithm) Rank() int {
	switch a {
	case AlgHybrid:
		return 3
	case AlgMLKEM768:
		return 2
	case AlgRSAOAEP:
		return 1
	}
	return 0
}

func (a Algorithm) String() string { return string(a) }

// kemScheme returns the circl KEM scheme backing a KEM algorithm.
func kemScheme(a Algorithm) (kem.Scheme, error) {
	switch a {
	case AlgMLKEM768:
		return mlkem768.Scheme(), nil
	case AlgHybrid:
		return hybrid.X25519MLKEM768(), nil
	}
	return nil, fmt.Errorf("%w: %q is not a KEM algorithm", ErrUnknownAlgorithm, a)
}

// EncodePublicKey produces the self-describing wire form of a public key:
// "<algorithm>.<base64url(raw)>".
func EncodePublicKey(a Algorithm, raw []byte) string {
	return string(a) + "." + ToBase64URL(raw)
}

// DecodePublicKey parses a self-describing public key. The algorithm
// identifier is validated before any key bytes are decoded.
func DecodePublicKey(s string) (Algorithm, []byte, error) {
	id, b64, ok := strings.Cut(s, ".")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing algorithm prefix", ErrInvalidPublicKey)
	}
	alg, err := ParseAlgorithm(id)
	if err != nil {
		return "", nil, err
	}
	raw, err := FromBase64URL(b64)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) == 0 {
		return "", nil, fmt.Errorf("%w: empty key material", ErrInvalidPublicKey)
	}
	return alg, raw, nil
}
