// Package crypto provides the cryptographic primitives for the keyloom
// engine: key generation, symmetric-key wrapping, authenticated encryption,
// and integrity hashing.
//
// # Algorithm Suite
//
// Three wrap algorithms are supported:
//
//   - RSA-OAEP-SHA-256: classical asymmetric encryption of the symmetric
//     key. Modulus sizes of 2048, 3072, or 4096 bits.
//
//   - ML-KEM-768 (NIST FIPS 203): post-quantum key encapsulation. The
//     shared secret feeds HKDF-SHA-512 to derive a key-encryption key,
//     which seals the symmetric key with AES-256-GCM.
//
//   - X25519-ML-KEM-768: hybrid KEM combining X25519 with ML-KEM-768 to
//     hedge against either primitive being broken. Same wrap construction
//     as ML-KEM-768.
//
// Message payloads are sealed with AES-256-GCM under a 256-bit symmetric
// key. A separate HMAC-SHA-256 integrity subkey, derived from the same
// symmetric key with HKDF domain separation, binds envelope metadata.
//
// # Critical Security Notes
//
// AES-GCM nonces MUST be unique for each encryption with the same key.
// Every Seal call draws a fresh nonce from the CSPRNG; nonces are never
// derived from counters.
//
// Tag verification happens before any plaintext is produced. A failed
// Open returns no partial data.
//
// # Public Key Encoding
//
// Public keys are self-describing: the wire form is the algorithm
// identifier, a dot, and the URL-safe base64 encoding of the raw key
// bytes. Parsing rejects unknown identifiers before touching key material.
package crypto
