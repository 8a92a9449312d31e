package keyloom

import (
	"context"
	"errors"

	"github.com/keyloom/keyloom-go/internal/crypto"
)

// Negotiate determines the best mutually supported algorithm across the
// participant devices: the intersection of all capability sets, preferring
// hybrid, then pure post-quantum, then classical. Returns a
// NegotiationError if the intersection is empty.
func Negotiate(devices []*Device) (Algorithm, error) {
	if len(devices) == 0 {
		return "", &NegotiationError{}
	}

	counts := make(map[Algorithm]int)
	for _, d := range devices {
		seen := make(map[Algorithm]bool)
		for _, a := range d.SupportedAlgorithms {
			if a.Valid() && !seen[a] {
				seen[a] = true
				counts[a]++
			}
		}
	}

	var best Algorithm
	for alg, n := range counts {
		if n == len(devices) && alg.Rank() > best.Rank() {
			best = alg
		}
	}
	if best == "" {
		return "", &NegotiationError{DeviceCount: len(devices)}
	}
	return best, nil
}

// DeviceReadiness reports one device's readiness for a target algorithm.
type DeviceReadiness struct {
	// Ready requires both declared capability and operational verification.
	Ready bool
	// HasCapability means the device's declared set contains the target
	// family.
	HasCapability bool
	// Operational means the device has verified its support at runtime.
	// Declared capability alone is insufficient.
	Operational bool
}

// ReadinessReport is the fleet-wide migration readiness assessment for a
// conversation.
type ReadinessReport struct {
	ConversationID string
	OverallReady   bool
	PerDevice      map[string]DeviceReadiness
	// MissingCapabilities lists devices lacking the target family.
	MissingCapabilities []string
	// RecommendedAlgorithm is the strongest commonly supported algorithm,
	// empty when the devices share none.
	RecommendedAlgorithm Algorithm
}

// AssessReadiness reports whether every participant device is ready for
// the target algorithm. A device is ready only if its declared capability
// set contains the target's family AND its operational readiness flag is
// set; capability advertised but not yet verified does not count.
func (e *Engine) AssessReadiness(ctx context.Context, conversationID string, devices []*Device, target Algorithm) (*ReadinessReport, error) {
	if !target.Valid() {
		return nil, &NegotiationError{DeviceCount: len(devices)}
	}

	report := &ReadinessReport{
		ConversationID: conversationID,
		OverallReady:   len(devices) > 0,
		PerDevice:      make(map[string]DeviceReadiness, len(devices)),
	}

	family := target.Family()
	for _, d := range devices {
		r := DeviceReadiness{
			HasCapability: d.SupportsFamily(family),
			Operational:   operationallyReady(d, family),
		}
		r.Ready = r.HasCapability && r.Operational
		report.PerDevice[d.ID] = r

		if !r.HasCapability {
			report.MissingCapabilities = append(report.MissingCapabilities, d.ID)
		}
		if !r.Ready {
			report.OverallReady = false
		}
	}

	if alg, err := Negotiate(devices); err == nil {
		report.RecommendedAlgorithm = alg
	}

	return report, nil
}

// operationallyReady applies the runtime verification check. Classical
// algorithms need no quantum verification; post-quantum and hybrid
// families require the device's QuantumReady flag.
func operationallyReady(d *Device, family AlgorithmFamily) bool {
	if family == FamilyClassical {
		return true
	}
	return d.QuantumReady
}

// MigrationResult reports the records and key material created by a
// migration step.
type MigrationResult struct {
	// Created holds the new-algorithm records, active alongside the
	// legacy ones.
	Created []*KeyRecord
	// DeviceKeys maps device ID to the freshly generated target-algorithm
	// keypair. Private keys must be delivered to the owning devices
	// out of band; the engine does not retain them.
	DeviceKeys map[string]*KeyPair
	// Skipped lists devices that already hold an active target record.
	Skipped []string
	// Warnings lists devices that could not be migrated.
	Warnings []DeviceWarning
}

// Migrate introduces the target algorithm to a conversation. For every
// device holding an active record under another algorithm it generates a
// target-algorithm keypair, wraps the conversation key under it, and
// activates the new record alongside the legacy one. Both stay active
// simultaneously; messages may use either during migration, and ciphertext
// sealed under the legacy key remains decryptable. No cutover is forced;
// use RetireAlgorithm once the fleet is ready.
func (e *Engine) Migrate(ctx context.Context, conversationID string, symmetricKey []byte, devices []*Device, target Algorithm) (*MigrationResult, error) {
	if !target.Valid() {
		return nil, &NegotiationError{DeviceCount: len(devices)}
	}

	state, err := e.KeyState(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	e.emit(Event{
		Type:           EventMigrationStarted,
		ConversationID: conversationID,
		Algorithm:      target,
	})

	result := &MigrationResult{DeviceKeys: make(map[string]*KeyPair)}

	for _, device := range devices {
		warn := func(reason string) {
			result.Warnings = append(result.Warnings, DeviceWarning{DeviceID: device.ID, Reason: reason})
		}

		if !device.Trusted() {
			warn("device trust state is " + string(device.Trust))
			continue
		}

		tuple := KeyTuple{
			ConversationID: conversationID,
			UserID:         device.UserID,
			DeviceID:       device.ID,
			Algorithm:      target,
		}
		if state.ActiveFor(tuple) != nil {
			result.Skipped = append(result.Skipped, device.ID)
			continue
		}

		hasLegacy := false
		for _, rec := range state.Active {
			if rec.DeviceID == device.ID && rec.Algorithm != target {
				hasLegacy = true
				break
			}
		}
		if !hasLegacy {
			// Device never held a key in this conversation; distribution,
			// not migration, covers it.
			continue
		}

		kp, err := GenerateKeyPair(target, 0)
		if err != nil {
			warn("keypair generation failed")
			continue
		}

		wrapped, err := crypto.Wrap(target, kp.PublicKey, symmetricKey)
		if err != nil {
			warn("wrap failed: " + err.Error())
			continue
		}

		rec := newKeyRecord(tuple, kp.PublicKeyEncoded, wrapped, kp.Strength, e.now())
		if err := e.store.CreateActive(ctx, rec); err != nil {
			if errors.Is(err, ErrConflict) {
				result.Skipped = append(result.Skipped, device.ID)
				continue
			}
			return nil, err
		}

		result.Created = append(result.Created, rec)
		result.DeviceKeys[device.ID] = kp
		e.emit(Event{
			Type:           EventKeyAvailable,
			ConversationID: conversationID,
			UserID:         device.UserID,
			DeviceID:       device.ID,
			Algorithm:      target,
		})
	}

	return result, nil
}

// RetireAlgorithm deactivates every active legacy-algorithm record in the
// conversation. It refuses with ErrNotReady unless AssessReadiness reports
// the whole fleet ready for the replacement algorithm. Deactivated records
// keep their wrapped keys, so history stays decryptable.
func (e *Engine) RetireAlgorithm(ctx context.Context, conversationID string, devices []*Device, legacy, replacement Algorithm) error {
	report, err := e.AssessReadiness(ctx, conversationID, devices, replacement)
	if err != nil {
		return err
	}
	if !report.OverallReady {
		return ErrNotReady
	}

	state, err := e.KeyState(ctx, conversationID)
	if err != nil {
		return err
	}

	for _, rec := range state.Active {
		if rec.Algorithm != legacy {
			continue
		}
		if err := e.store.Deactivate(ctx, rec.ID, rec.Tuple()); err != nil {
			if errors.Is(err, ErrConflict) {
				// Already superseded concurrently; the goal is met.
				continue
			}
			return err
		}
	}

	e.emit(Event{
		Type:           EventAlgorithmRetired,
		ConversationID: conversationID,
		Algorithm:      legacy,
	})
	return nil
}
