// Package boltstore is a single-file persistent key/value backend for the
// four contracts' state: one bucket per domain, JSON-encoded records,
// get/put/delete/iterate helpers that each run in their own transaction,
// the same shape as services/identity-gateway/store.go's
// bucket-per-domain BoltDB store.
package boltstore

import (
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketBalances   = []byte("token.balances")
	bucketAllowances = []byte("token.allowances")
	bucketDevices    = []byte("registry.devices")
	bucketEvents     = []byte("gridservice.events")
	bucketParticipations = []byte("gridservice.participations")
	bucketProposals  = []byte("governance.proposals")
	bucketAudit      = []byte("governance.audit")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("boltstore: record not found")
)

var allBuckets = [][]byte{
	bucketBalances, bucketAllowances, bucketDevices,
	bucketEvents, bucketParticipations, bucketProposals, bucketAudit,
}

// Store wraps a bbolt database with bucket-scoped JSON get/put/delete/iterate
// helpers. It holds no contract logic of its own; it is a persistence
// adapter a host process uses to snapshot/restore contract state between
// runs.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the BoltDB file at path, ensuring every
// domain bucket exists.
func Open(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// get decodes the record at key in bucket into dest, reporting ErrNotFound
// when absent.
func (s *Store) get(bucket []byte, key string, dest any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucket).Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, dest)
	})
}

// put JSON-encodes value and stores it at key in bucket.
func (s *Store) put(bucket []byte, key string, value any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		payload, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put([]byte(key), payload)
	})
}

// delete removes key from bucket, a no-op if absent.
func (s *Store) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

// forEach decodes every record in bucket, calling fn with its key. fn's
// error stops iteration early and is returned to the caller.
func (s *Store) forEach(bucket []byte, newDest func() any, fn func(key string, dest any) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			dest := newDest()
			if err := json.Unmarshal(v, dest); err != nil {
				return err
			}
			return fn(string(k), dest)
		})
	})
}
