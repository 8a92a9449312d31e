package keyloom

import (
	"github.com/keyloom/keyloom-go/internal/crypto"
)

// Algorithm identifies a symmetric-key wrap algorithm.
type Algorithm = crypto.Algorithm

// AlgorithmFamily classifies algorithms for negotiation and readiness.
type AlgorithmFamily = crypto.Family

const (
	// AlgorithmRSAOAEP is classical RSA-OAEP with SHA-256.
	AlgorithmRSAOAEP = crypto.AlgRSAOAEP
	// AlgorithmMLKEM768 is the post-quantum ML-KEM-768 KEM.
	AlgorithmMLKEM768 = crypto.AlgMLKEM768
	// AlgorithmHybrid is the X25519 + ML-KEM-768 hybrid KEM.
	AlgorithmHybrid = crypto.AlgHybrid

	// FamilyClassical covers pre-quantum asymmetric algorithms.
	FamilyClassical = crypto.FamilyClassical
	// FamilyPostQuantum covers pure post-quantum KEMs.
	FamilyPostQuantum = crypto.FamilyPostQuantum
	// FamilyHybrid covers combined classical + post-quantum constructions.
	FamilyHybrid = crypto.FamilyHybrid
)

// ParseAlgorithm validates an algorithm identifier string against the
// closed enumeration.
func ParseAlgorithm(s string) (Algorithm, error) {
	return crypto.ParseAlgorithm(s)
}
