// Package cache records which site/scenario pairs have already been
// audited, so interrupted bulk runs can resume without repeating work.
package cache

import (
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const BUCKET_NAME = "audits"

// ScanCache is a persistent record of completed audits backed by BoltDB.
type ScanCache struct {
	db *bolt.DB
}

// NewScanCache opens (or creates) the cache database at the given path.
// It is up to the caller to close it when no longer needed.
func NewScanCache(path string) (*ScanCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BUCKET_NAME))
		return err
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to create default bucket")
	}

	return &ScanCache{
		db: db,
	}, nil
}

func key(site, scenario string) []byte {
	return []byte(site + "|" + scenario)
}

// MarkDone records that the site/scenario pair completed at the given time.
func (c *ScanCache) MarkDone(site, scenario string, at time.Time) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BUCKET_NAME)).Put(key(site, scenario), []byte(at.Format(time.RFC3339)))
	})
}

// IsDone reports whether the site/scenario pair has a completion record.
func (c *ScanCache) IsDone(site, scenario string) bool {
	var done bool
	c.db.View(func(tx *bolt.Tx) error {
		done = tx.Bucket([]byte(BUCKET_NAME)).Get(key(site, scenario)) != nil
		return nil
	})

	return done
}

// Len returns the number of completion records.
func (c *ScanCache) Len() int {
	var count int
	c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BUCKET_NAME))
		count = b.Stats().KeyN
		return nil
	})

	return count
}

// Close closes the database.
func (c *ScanCache) Close() error {
	return c.db.Close()
}
