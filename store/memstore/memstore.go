// Package memstore provides an in-memory KeyRecordStore. It backs tests
// and single-process deployments; the atomic unit is a store-wide mutex.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	keyloom "github.com/keyloom/keyloom-go"
)

// Store is an in-memory key record store.
type Store struct {
	mu       sync.Mutex
	records  map[string]*keyloom.KeyRecord
	active   map[keyloom.KeyTuple]string
	versions map[keyloom.KeyTuple]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records:  make(map[string]*keyloom.KeyRecord),
		active:   make(map[keyloom.KeyTuple]string),
		versions: make(map[keyloom.KeyTuple]int),
	}
}

// CreateActive implements keyloom.KeyRecordStore.
func (s *Store) CreateActive(_ context.Context, rec *keyloom.KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tuple := rec.Tuple()
	if _, ok := s.active[tuple]; ok {
		return &keyloom.ConflictError{Tuple: tuple}
	}

	s.versions[tuple]++
	rec.Version = s.versions[tuple]
	s.records[rec.ID] = rec.Clone()
	s.active[tuple] = rec.ID
	return nil
}

// ReplaceActive implements keyloom.KeyRecordStore.
func (s *Store) ReplaceActive(_ context.Context, oldID string, replacement *keyloom.KeyRecord, rev *keyloom.Revocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tuple := replacement.Tuple()
	currentID, ok := s.active[tuple]
	if !ok || currentID != oldID {
		return &keyloom.ConflictError{Tuple: tuple}
	}

	old := s.records[oldID]
	old.IsActive = false
	if rev != nil {
		at := rev.At
		old.RevokedAt = &at
		old.RevocationReason = rev.Reason
	}

	replacement.Version = old.Version + 1
	s.versions[tuple] = replacement.Version
	s.records[replacement.ID] = replacement.Clone()
	s.active[tuple] = replacement.ID
	return nil
}

// Deactivate implements keyloom.KeyRecordStore.
func (s *Store) Deactivate(_ context.Context, oldID string, tuple keyloom.KeyTuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	currentID, ok := s.active[tuple]
	if !ok || currentID != oldID {
		return &keyloom.ConflictError{Tuple: tuple}
	}

	s.records[oldID].IsActive = false
	delete(s.active, tuple)
	return nil
}

// ActiveRecord implements keyloom.KeyRecordStore.
func (s *Store) ActiveRecord(_ context.Context, tuple keyloom.KeyTuple) (*keyloom.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.active[tuple]
	if !ok {
		return nil, keyloom.ErrRecordNotFound
	}
	return s.records[id].Clone(), nil
}

// ActiveRecords implements keyloom.KeyRecordStore.
func (s *Store) ActiveRecords(_ context.Context, conversationID string) ([]*keyloom.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*keyloom.KeyRecord
	for tuple, id := range s.active {
		if tuple.ConversationID == conversationID {
			out = append(out, s.records[id].Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

// RecordsForUser implements keyloom.KeyRecordStore.
func (s *Store) RecordsForUser(_ context.Context, userID string) ([]*keyloom.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*keyloom.KeyRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

// Record implements keyloom.KeyRecordStore.
func (s *Store) Record(_ context.Context, id string) (*keyloom.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, keyloom.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// SoftDelete implements keyloom.KeyRecordStore. The wrapped key material
// is dropped; the forensic digest and metadata survive.
func (s *Store) SoftDelete(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return keyloom.ErrRecordNotFound
	}
	rec.WrappedKey = nil
	rec.DeletedAt = &at
	return nil
}

// sortRecords orders records deterministically for stable results.
func sortRecords(recs []*keyloom.KeyRecord) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.ConversationID != b.ConversationID {
			return a.ConversationID < b.ConversationID
		}
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		if a.Algorithm != b.Algorithm {
			return a.Algorithm < b.Algorithm
		}
		return a.Version < b.Version
	})
}
