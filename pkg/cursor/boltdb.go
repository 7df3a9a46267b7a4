package cursor

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketCursors = []byte("cursors")

// ErrNotFound is returned by Load when no cursor is stored for the
// subscriber.
var ErrNotFound = errors.New("cursor not found")

// record is the stored form; the timestamp lets operators prune cursors
// of subscribers that never came back.
type record struct {
	Cursor  string    `json:"cursor"`
	SavedAt time.Time `json:"saved_at"`
}

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed cursor store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "signalbus.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCursors); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketCursors, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save upserts the cursor for a subscriber identity.
func (s *BoltStore) Save(subscriberID, cursor string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCursors)
		data, err := json.Marshal(record{Cursor: cursor, SavedAt: time.Now()})
		if err != nil {
			return err
		}
		return b.Put([]byte(subscriberID), data)
	})
}

// Load returns the stored cursor for a subscriber identity.
func (s *BoltStore) Load(subscriberID string) (string, error) {
	var rec record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCursors)
		data := b.Get([]byte(subscriberID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, subscriberID)
		}
		return json.Unmarshal(data, &rec)
	})
	return rec.Cursor, err
}

// Delete removes the stored cursor for a subscriber identity.
func (s *BoltStore) Delete(subscriberID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCursors).Delete([]byte(subscriberID))
	})
}

// List returns all stored cursors keyed by subscriber identity.
func (s *BoltStore) List() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCursors)
		return b.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out[string(k)] = rec.Cursor
			return nil
		})
	})
	return out, err
}
