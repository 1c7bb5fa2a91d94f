// internal/cache/bolt.go
package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"repo-notion-sync/internal/model"
)

const (
	boltBucketRepos = "repositories" // key: URL -> boltRecord JSON
	boltBucketOrder = "order"        // key: big-endian sequence -> URL
)

type boltRecord struct {
	Seq        uint64           `json:"seq"`
	Repository model.Repository `json:"repository"`
}

// BoltStore keeps the cache in a bbolt file keyed by URL, so an upsert
// touches one key instead of rewriting every row.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the bbolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	if err := db.Update(createBuckets); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func createBuckets(tx *bbolt.Tx) error {
	if _, err := tx.CreateBucketIfNotExists([]byte(boltBucketRepos)); err != nil {
		return err
	}
	if _, err := tx.CreateBucketIfNotExists([]byte(boltBucketOrder)); err != nil {
		return err
	}

	return nil
}

// Close releases the file lock.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// Reset drops both buckets and recreates them empty.
func (b *BoltStore) Reset() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{boltBucketRepos, boltBucketOrder} {
			if tx.Bucket([]byte(name)) == nil {
				continue
			}
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}
		}

		return createBuckets(tx)
	})
}

// Upsert stores rec under its URL. A replaced record moves to the end of
// the load order, matching CSVStore.
func (b *BoltStore) Upsert(rec model.Repository) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		var (
			repos = tx.Bucket([]byte(boltBucketRepos))
			order = tx.Bucket([]byte(boltBucketOrder))
		)

		if existing := repos.Get([]byte(rec.URL)); existing != nil {
			var old boltRecord
			if err := json.Unmarshal(existing, &old); err != nil {
				return err
			}
			if err := order.Delete(seqKey(old.Seq)); err != nil {
				return err
			}
		}

		seq, err := order.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(&boltRecord{Seq: seq, Repository: rec})
		if err != nil {
			return err
		}

		if err := repos.Put([]byte(rec.URL), data); err != nil {
			return err
		}

		return order.Put(seqKey(seq), []byte(rec.URL))
	})
}

// Load returns every record in upsert order.
func (b *BoltStore) Load() ([]model.Repository, error) {
	records := []model.Repository{}

	err := b.db.View(func(tx *bbolt.Tx) error {
		var (
			repos = tx.Bucket([]byte(boltBucketRepos))
			order = tx.Bucket([]byte(boltBucketOrder))
		)

		return order.ForEach(func(_, url []byte) error {
			data := repos.Get(url)
			if data == nil {
				return nil
			}

			var rec boltRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode %s: %w", url, err)
			}
			records = append(records, rec.Repository)

			return nil
		})
	})

	return records, err
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)

	return k
}
