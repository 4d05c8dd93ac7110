package cache

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// Store is a bbolt file shared by every Bolt cache, one bucket per pipeline.
type Store struct {
	db  *bolt.DB
	now Clock
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the clock used by the store and every cache made from it.
func (s *Store) SetClock(now Clock) {
	s.now = now
}

// Tidy deletes every expired entry in every bucket and returns how many went.
func (s *Store) Tidy() (int, error) {
	now := s.now()
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			// Deleting under a live cursor skips keys, so collect first.
			var expired [][]byte
			err := b.ForEach(func(k, v []byte) error {
				var e entry[json.RawMessage]
				if err := json.Unmarshal(v, &e); err != nil || !e.fresh(now) {
					expired = append(expired, append([]byte(nil), k...))
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, k := range expired {
				if err := b.Delete(k); err != nil {
					return fmt.Errorf("deleting %s/%s: %w", name, k, err)
				}
			}
			removed += len(expired)
			return nil
		})
	})

	return removed, err
}

// Bolt is a Cache backed by one bucket of a Store. Values are stored as JSON.
type Bolt[T any] struct {
	store  *Store
	bucket []byte
}

func NewBolt[T any](store *Store, bucket string) (*Bolt[T], error) {
	err := store.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
	}
	return &Bolt[T]{store: store, bucket: []byte(bucket)}, nil
}

func (b *Bolt[T]) Get(key string) (T, bool) {
	var (
		e     entry[T]
		found bool
	)

	err := b.store.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(b.bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		log.WithFields(log.Fields{
			"bucket": string(b.bucket),
			"key":    key,
			"error":  err,
		}).Warn("Unreadable cache entry, treating as miss")
	}

	if !found || !e.fresh(b.store.now()) {
		var zero T
		return zero, false
	}
	return e.Value, true
}

func (b *Bolt[T]) Set(key string, value T, ttl time.Duration) {
	now := b.store.now()
	data, err := json.Marshal(entry[T]{CapturedAt: now, ExpiresAt: now.Add(ttl), Value: value})
	if err == nil {
		err = b.store.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(b.bucket).Put([]byte(key), data)
		})
	}
	if err != nil {
		log.WithFields(log.Fields{
			"bucket": string(b.bucket),
			"key":    key,
			"error":  err,
		}).Error("Failed to write cache entry")
	}
}
