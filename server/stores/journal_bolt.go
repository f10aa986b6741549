package stores

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	reportsBucket = []byte("reports")
	// timeBucket indexes report ids by creation time: big-endian unix nanos
	// followed by the id.
	timeBucket = []byte("reports_by_time")
)

// BoltJournal persists reports in a bbolt file.
type BoltJournal struct {
	db *bbolt.DB
}

// OpenBoltJournal opens (or creates) the database at path.
func OpenBoltJournal(path string) (*BoltJournal, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	journal, err := NewBoltJournal(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

// NewBoltJournal wraps db, building the time index for files written before it existed.
func NewBoltJournal(db *bbolt.DB) (*BoltJournal, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(timeBucket) != nil {
			return nil
		}
		index, err := tx.CreateBucket(timeBucket)
		if err != nil {
			return err
		}
		reports := tx.Bucket(reportsBucket)
		if reports == nil {
			return nil
		}
		return reports.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			return index.Put(timeKey(e), k)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("index journal: %w", err)
	}
	return &BoltJournal{db: db}, nil
}

func timeKey(e Entry) []byte {
	key := make([]byte, 8, 8+len(e.ID))
	binary.BigEndian.PutUint64(key, uint64(e.CreatedAt.UnixNano()))
	return append(key, e.ID...)
}

func (s *BoltJournal) Append(ctx context.Context, entry Entry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(reportsBucket)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(entry.ID)) != nil {
			return ErrReportExists
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(entry.ID), data); err != nil {
			return err
		}
		index, err := tx.CreateBucketIfNotExists(timeBucket)
		if err != nil {
			return err
		}
		return index.Put(timeKey(entry), []byte(entry.ID))
	})
}

func (s *BoltJournal) Get(ctx context.Context, id string) (Entry, error) {
	var entry Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(reportsBucket)
		if bucket == nil {
			return ErrReportNotFound
		}
		val := bucket.Get([]byte(id))
		if val == nil {
			return ErrReportNotFound
		}
		return json.Unmarshal(val, &entry)
	})
	return entry, err
}

// List walks the time index backwards and stops after limit entries.
func (s *BoltJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(reportsBucket)
		index := tx.Bucket(timeBucket)
		if bucket == nil || index == nil {
			return nil
		}
		c := index.Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(entries) == limit {
				break
			}
			val := bucket.Get(id)
			if val == nil {
				continue
			}
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BoltJournal) Close() error {
	return s.db.Close()
}

var _ Journal = (*BoltJournal)(nil)
