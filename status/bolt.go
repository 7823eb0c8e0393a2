package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"auto_tweet_agent/logging"
)

var (
	boltBucket = []byte("agent_status")
	boltKey    = []byte("last")
)

// BoltStore keeps the record in a BoltDB file so it survives restarts.
type BoltStore struct {
	db     *bolt.DB
	logger logging.Logger
}

// OpenBolt opens (creating if needed) the BoltDB file at path.
func OpenBolt(path string, logger logging.Logger) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt status store requires a path")
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open status db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, logger: logger}, nil
}

func (b *BoltStore) Read(context.Context) Record {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket(boltBucket); bucket != nil {
			if v := bucket.Get(boltKey); v != nil {
				raw = append([]byte(nil), v...)
			}
		}
		return nil
	})
	if err != nil {
		b.logger.WithError(err).Warn("Failed to read status record; reporting default")
		return Default()
	}
	if raw == nil {
		return Default()
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		b.logger.WithError(err).Warn("Malformed status record; reporting default")
		return Default()
	}
	return rec
}

// Write stores rec in a single transaction.
func (b *BoltStore) Write(_ context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put(boltKey, payload)
	})
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
