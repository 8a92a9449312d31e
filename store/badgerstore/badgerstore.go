// Package badgerstore provides a BadgerDB-backed KeyRecordStore. Badger
// transactions supply the atomic unit the engine's state transitions
// require: precondition check and write commit together or not at all.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	keyloom "github.com/keyloom/keyloom-go"
)

const (
	recordPrefix = "rec/"
	activePrefix = "active/"

	// tupleSep joins tuple components in index keys. Unit separator keeps
	// IDs with slashes unambiguous.
	tupleSep = "\x1f"
)

// Store is a badger-backed key record store.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func activeKey(t keyloom.KeyTuple) []byte {
	return []byte(activePrefix + strings.Join([]string{
		t.ConversationID, t.UserID, t.DeviceID, string(t.Algorithm),
	}, tupleSep))
}

func getRecord(txn *badger.Txn, id string) (*keyloom.KeyRecord, error) {
	item, err := txn.Get(recordKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, keyloom.ErrRecordNotFound
		}
		return nil, err
	}
	var rec keyloom.KeyRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

func putRecord(txn *badger.Txn, rec *keyloom.KeyRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(rec.ID), val)
}

// wrapTxnErr maps badger's optimistic-concurrency conflict onto the
// engine's conflict sentinel so callers retry the same way for both.
func wrapTxnErr(err error, tuple keyloom.KeyTuple) error {
	if errors.Is(err, badger.ErrConflict) {
		return &keyloom.ConflictError{Tuple: tuple}
	}
	return err
}

// CreateActive implements keyloom.KeyRecordStore.
func (s *Store) CreateActive(_ context.Context, rec *keyloom.KeyRecord) error {
	tuple := rec.Tuple()
	err := s.db.Update(func(txn *badger.Txn) error {
		akey := activeKey(tuple)

		if _, err := txn.Get(akey); err == nil {
			return &keyloom.ConflictError{Tuple: tuple}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		// Continue the tuple's version sequence across deactivations.
		last, err := lastVersion(txn, tuple)
		if err != nil {
			return err
		}
		rec.Version = last + 1

		if err := putRecord(txn, rec); err != nil {
			return err
		}
		return txn.Set(akey, []byte(rec.ID))
	})
	return wrapTxnErr(err, tuple)
}

// ReplaceActive implements keyloom.KeyRecordStore.
func (s *Store) ReplaceActive(_ context.Context, oldID string, replacement *keyloom.KeyRecord, rev *keyloom.Revocation) error {
	tuple := replacement.Tuple()
	err := s.db.Update(func(txn *badger.Txn) error {
		akey := activeKey(tuple)

		item, err := txn.Get(akey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &keyloom.ConflictError{Tuple: tuple}
			}
			return err
		}
		currentID, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(currentID) != oldID {
			return &keyloom.ConflictError{Tuple: tuple}
		}

		old, err := getRecord(txn, oldID)
		if err != nil {
			return err
		}
		old.IsActive = false
		if rev != nil {
			at := rev.At
			old.RevokedAt = &at
			old.RevocationReason = rev.Reason
		}
		if err := putRecord(txn, old); err != nil {
			return err
		}

		replacement.Version = old.Version + 1
		if err := putRecord(txn, replacement); err != nil {
			return err
		}
		return txn.Set(akey, []byte(replacement.ID))
	})
	return wrapTxnErr(err, tuple)
}

// Deactivate implements keyloom.KeyRecordStore.
func (s *Store) Deactivate(_ context.Context, oldID string, tuple keyloom.KeyTuple) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		akey := activeKey(tuple)

		item, err := txn.Get(akey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &keyloom.ConflictError{Tuple: tuple}
			}
			return err
		}
		currentID, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(currentID) != oldID {
			return &keyloom.ConflictError{Tuple: tuple}
		}

		old, err := getRecord(txn, oldID)
		if err != nil {
			return err
		}
		old.IsActive = false
		if err := putRecord(txn, old); err != nil {
			return err
		}
		return txn.Delete(akey)
	})
	return wrapTxnErr(err, tuple)
}

// ActiveRecord implements keyloom.KeyRecordStore.
func (s *Store) ActiveRecord(_ context.Context, tuple keyloom.KeyTuple) (*keyloom.KeyRecord, error) {
	var rec *keyloom.KeyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(activeKey(tuple))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return keyloom.ErrRecordNotFound
			}
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err = getRecord(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ActiveRecords implements keyloom.KeyRecordStore.
func (s *Store) ActiveRecords(_ context.Context, conversationID string) ([]*keyloom.KeyRecord, error) {
	var out []*keyloom.KeyRecord
	prefix := []byte(activePrefix + conversationID + tupleSep)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := getRecord(txn, string(id))
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordsForUser implements keyloom.KeyRecordStore.
func (s *Store) RecordsForUser(_ context.Context, userID string) ([]*keyloom.KeyRecord, error) {
	var out []*keyloom.KeyRecord
	prefix := []byte(recordPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec keyloom.KeyRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if rec.UserID == userID {
				out = append(out, rec.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Record implements keyloom.KeyRecordStore.
func (s *Store) Record(_ context.Context, id string) (*keyloom.KeyRecord, error) {
	var rec *keyloom.KeyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SoftDelete implements keyloom.KeyRecordStore.
func (s *Store) SoftDelete(_ context.Context, id string, at time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		rec.WrappedKey = nil
		rec.DeletedAt = &at
		return putRecord(txn, rec)
	})
}

// lastVersion finds the highest version ever used for a tuple by scanning
// the tuple's records. Called inside the creating transaction.
func lastVersion(txn *badger.Txn, tuple keyloom.KeyTuple) (int, error) {
	last := 0
	prefix := []byte(recordPrefix)

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec keyloom.KeyRecord
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return 0, err
		}
		if rec.Tuple() == tuple && rec.Version > last {
			last = rec.Version
		}
	}
	return last, nil
}
