package keyloom

import (
	"context"
	"time"
)

// Revocation carries the reason and time of an emergency revocation
// through ReplaceActive.
type Revocation struct {
	Reason string
	At     time.Time
}

// KeyRecordStore is the persistence collaborator for key records.
//
// Implementations must make each method a single atomic unit: the
// precondition check (no conflicting active record, or the expected old
// record still being active) and the write happen inside one transaction.
// Two concurrent ReplaceActive calls for the same tuple must produce
// exactly one winner; the loser gets ErrConflict.
//
// Version numbers are assigned by the store: CreateActive continues the
// tuple's version sequence, ReplaceActive assigns old version + 1.
type KeyRecordStore interface {
	// CreateActive inserts rec as the active record for its tuple.
	// Fails with ErrConflict if an active record already exists.
	// On success rec.Version is set.
	CreateActive(ctx context.Context, rec *KeyRecord) error

	// ReplaceActive atomically deactivates the record identified by oldID
	// and inserts replacement as the tuple's new active record. If rev is
	// non-nil the old record is revoked rather than merely deactivated.
	// Fails with ErrConflict if oldID is no longer the tuple's active
	// record.
	ReplaceActive(ctx context.Context, oldID string, replacement *KeyRecord, rev *Revocation) error

	// Deactivate atomically flips the record identified by oldID from
	// active to inactive without a replacement. Used when retiring an
	// algorithm family. Fails with ErrConflict if oldID is no longer the
	// tuple's active record.
	Deactivate(ctx context.Context, oldID string, tuple KeyTuple) error

	// ActiveRecord returns the active record for a tuple, or
	// ErrRecordNotFound.
	ActiveRecord(ctx context.Context, tuple KeyTuple) (*KeyRecord, error)

	// ActiveRecords returns all active records for a conversation across
	// devices and algorithms.
	ActiveRecords(ctx context.Context, conversationID string) ([]*KeyRecord, error)

	// RecordsForUser returns all of a user's records, active or not,
	// across conversations. Used for backup export.
	RecordsForUser(ctx context.Context, userID string) ([]*KeyRecord, error)

	// Record returns a record by ID, or ErrRecordNotFound.
	Record(ctx context.Context, id string) (*KeyRecord, error)

	// SoftDelete scrubs the wrapped key material of a record while
	// preserving its forensic digest and metadata.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// ConversationKeyState is the derived view of a conversation's currently
// active records across devices and algorithms.
type ConversationKeyState struct {
	ConversationID string
	Active         []*KeyRecord
}

// Algorithms lists the distinct algorithms with at least one active
// record, ordered by preference rank (strongest first).
func (s *ConversationKeyState) Algorithms() []Algorithm {
	seen := make(map[Algorithm]bool)
	var algs []Algorithm
	for _, rec := range s.Active {
		if !seen[rec.Algorithm] {
			seen[rec.Algorithm] = true
			algs = append(algs, rec.Algorithm)
		}
	}
	for i := 1; i < len(algs); i++ {
		for j := i; j > 0 && algs[j].Rank() > algs[j-1].Rank(); j-- {
			algs[j], algs[j-1] = algs[j-1], algs[j]
		}
	}
	return algs
}

// DevicesWith returns the device IDs holding an active record for alg.
func (s *ConversationKeyState) DevicesWith(alg Algorithm) []string {
	var ids []string
	for _, rec := range s.Active {
		if rec.Algorithm == alg {
			ids = append(ids, rec.DeviceID)
		}
	}
	return ids
}

// ActiveFor returns the active record for a tuple, or nil.
func (s *ConversationKeyState) ActiveFor(tuple KeyTuple) *KeyRecord {
	for _, rec := range s.Active {
		if rec.Tuple() == tuple {
			return rec
		}
	}
	return nil
}

// KeyState loads the derived key state for a conversation.
func (e *Engine) KeyState(ctx context.Context, conversationID string) (*ConversationKeyState, error) {
	active, err := e.store.ActiveRecords(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &ConversationKeyState{ConversationID: conversationID, Active: active}, nil
}
