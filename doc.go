// Package keyloom implements end-to-end encryption key management and
// message cryptography for multi-party, multi-device messaging.
//
// Every conversation has a symmetric key that seals message payloads with
// AES-256-GCM. The symmetric key is wrapped per participant device under
// that device's asymmetric public key, using classical RSA-OAEP,
// post-quantum ML-KEM-768, or the X25519-ML-KEM-768 hybrid. The engine
// distributes wrapped keys to device fleets, rotates and revokes them,
// and negotiates and migrates between algorithm families while both
// remain valid.
//
// Basic usage:
//
//	engine, err := keyloom.New(memstore.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	key, err := keyloom.GenerateSymmetricKey()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Wrap the key for every participant device
//	result, err := engine.Distribute(ctx, "conv-1", key, devices, keyloom.SkipExisting)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Seal and open message payloads
//	env, err := keyloom.EncodeEnvelope([]byte("hello"), key, nil)
//	plaintext, err := keyloom.DecodeEnvelope(env, key)
//
// Persistence is delegated to a KeyRecordStore; the store/memstore and
// store/badgerstore packages provide in-memory and on-disk adapters.
// Transport, authorization, and delivery of key-change notifications are
// external collaborators: the engine only emits events through an
// EventSink.
package keyloom
