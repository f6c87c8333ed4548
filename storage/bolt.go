package storage

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cyberpaste/cyberpaste/models"
)

var pasteBucket = []byte("pastes")

// BoltStore implements PasteStore using BoltDB. Records are JSON-encoded
// under their id; Bolt's single-writer transactions make the view-counter
// read-modify-write atomic without extra coordination.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens a BoltDB-backed store located at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pasteBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Insert saves a paste, rejecting duplicate ids.
func (b *BoltStore) Insert(ctx context.Context, paste *models.Paste) error {
	data, err := json.Marshal(paste)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(pasteBucket)
		if bucket.Get([]byte(paste.ID)) != nil {
			return ErrDuplicateID
		}
		return bucket.Put([]byte(paste.ID), data)
	})
}

// Get retrieves a paste by id, or (nil, nil) when absent.
func (b *BoltStore) Get(ctx context.Context, id string) (*models.Paste, error) {
	var paste *models.Paste
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(pasteBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		paste = &models.Paste{}
		return json.Unmarshal(data, paste)
	})
	if err != nil {
		return nil, err
	}
	return paste, nil
}

// Exists checks if a paste exists by id.
func (b *BoltStore) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(pasteBucket).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

// Delete removes a paste. Bolt's bucket delete is a no-op for absent keys.
func (b *BoltStore) Delete(ctx context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pasteBucket).Delete([]byte(id))
	})
}

// IncrementViews bumps the view counter inside a write transaction and
// returns the new count.
func (b *BoltStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(pasteBucket)
		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		var paste models.Paste
		if err := json.Unmarshal(data, &paste); err != nil {
			return err
		}
		paste.Views++
		views = paste.Views
		updated, err := json.Marshal(&paste)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), updated)
	})
	if err != nil {
		return 0, err
	}
	return views, nil
}

// CountAll returns the number of stored records.
func (b *BoltStore) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := b.db.View(func(tx *bolt.Tx) error {
		n = int64(tx.Bucket(pasteBucket).Stats().KeyN)
		return nil
	})
	return n, err
}

// ScanExpired returns ids of records dead as of now.
func (b *BoltStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(pasteBucket).ForEach(func(k, v []byte) error {
			var paste models.Paste
			if err := json.Unmarshal(v, &paste); err != nil {
				return err
			}
			if !paste.IsLive(now) {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	return ids, err
}

// Close closes the database file.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
