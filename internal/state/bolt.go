package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketStacks  = []byte("stacks")
	bucketHistory = []byte("history")
)

// historyLimit is how many previous snapshots are kept per stack.
const historyLimit = 20

// BoltStore keeps snapshots in a bbolt database, with a short history of
// previous serials per stack.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketStacks, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Load implements Store.
func (s *BoltStore) Load(_ context.Context, stack string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketStacks).Get([]byte(stack))
		if data == nil {
			snap = NewSnapshot(stack)
			return nil
		}
		var err error
		snap, err = Decode(data)
		return err
	})
	return snap, err
}

// Save implements Store. The previous snapshot moves to the history bucket.
func (s *BoltStore) Save(_ context.Context, snap *Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		stacks := tx.Bucket(bucketStacks)
		if prev := stacks.Get([]byte(snap.Stack)); prev != nil {
			existing, err := Decode(prev)
			if err != nil {
				return err
			}
			if err := checkLineage(existing, snap); err != nil {
				return fmt.Errorf("%w: stack %s", err, snap.Stack)
			}
			if err := s.archive(tx, existing.Stack, existing.Serial, prev); err != nil {
				return err
			}
		}

		snap.Serial++
		snap.UpdatedAt = s.now().UTC()
		data, err := Encode(snap)
		if err != nil {
			return err
		}
		return stacks.Put([]byte(snap.Stack), data)
	})
}

// archive stores data under history/<stack>/<serial> and trims old entries.
func (s *BoltStore) archive(tx *bolt.Tx, stack string, serial int64, data []byte) error {
	hb, err := tx.Bucket(bucketHistory).CreateBucketIfNotExists([]byte(stack))
	if err != nil {
		return err
	}
	if err := hb.Put(serialKey(serial), data); err != nil {
		return err
	}

	var keys [][]byte
	if err := hb.ForEach(func(k, _ []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	}); err != nil {
		return err
	}
	for len(keys) > historyLimit {
		if err := hb.Delete(keys[0]); err != nil {
			return err
		}
		keys = keys[1:]
	}
	return nil
}

// History returns the archived serials of stack, oldest first.
func (s *BoltStore) History(stack string) ([]int64, error) {
	var serials []int64
	err := s.db.View(func(tx *bolt.Tx) error {
		hb := tx.Bucket(bucketHistory).Bucket([]byte(stack))
		if hb == nil {
			return nil
		}
		return hb.ForEach(func(k, _ []byte) error {
			n, err := strconv.ParseInt(string(k), 10, 64)
			if err != nil {
				return err
			}
			serials = append(serials, n)
			return nil
		})
	})
	return serials, err
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// serialKey zero-pads so keys sort numerically.
func serialKey(serial int64) []byte {
	return []byte(fmt.Sprintf("%020d", serial))
}
