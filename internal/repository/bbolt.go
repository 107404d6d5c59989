package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	historyBucket  = "history"
	metadataBucket = "metadata"
	schemaVersion  = 1
	openTimeout    = time.Second
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrNilRecord      = errors.New("cannot save nil record")
	ErrEmptyID        = errors.New("record ID cannot be empty")
)

// BboltRepository keeps download history in a single bbolt file.
type BboltRepository struct {
	db *bbolt.DB
}

var _ Repository = (*BboltRepository)(nil)

// NewBboltRepository opens or creates the history file at dbPath.
// A file held open by another process fails after a short wait.
func NewBboltRepository(dbPath string) (*BboltRepository, error) {
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", dbPath, err)
	}

	repo := &BboltRepository{db: db}

	if err := repo.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// initialize creates the buckets and stamps the schema version.
func (r *BboltRepository) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(historyBucket)); err != nil {
			return fmt.Errorf("create %s bucket: %w", historyBucket, err)
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("create %s bucket: %w", metadataBucket, err)
		}

		return meta.Put([]byte("schema_version"), []byte(strconv.Itoa(schemaVersion)))
	})
}

func (r *BboltRepository) update(fn func(history *bbolt.Bucket) error) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket([]byte(historyBucket)))
	})
}

func (r *BboltRepository) view(fn func(history *bbolt.Bucket) error) error {
	return r.db.View(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket([]byte(historyBucket)))
	})
}

func decode(data []byte) (*Record, error) {
	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	return rec, nil
}

// Save persists a record, replacing any record with the same ID.
func (r *BboltRepository) Save(record *Record) error {
	if record == nil {
		return ErrNilRecord
	}

	if record.ID == uuid.Nil {
		return ErrEmptyID
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	return r.update(func(history *bbolt.Bucket) error {
		return history.Put([]byte(record.ID.String()), data)
	})
}

// Find retrieves a record by ID.
func (r *BboltRepository) Find(id uuid.UUID) (*Record, error) {
	if id == uuid.Nil {
		return nil, ErrEmptyID
	}

	var rec *Record

	err := r.view(func(history *bbolt.Bucket) error {
		v := history.Get([]byte(id.String()))
		if v == nil {
			return ErrRecordNotFound
		}

		var err error
		rec, err = decode(v)

		return err
	})

	return rec, err
}

// FindAll retrieves all records, newest first.
func (r *BboltRepository) FindAll() ([]*Record, error) {
	var records []*Record

	err := r.view(func(history *bbolt.Bucket) error {
		return history.ForEach(func(_, v []byte) error {
			rec, err := decode(v)
			if err != nil {
				return err
			}

			records = append(records, rec)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b *Record) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return records, nil
}

// Delete removes a record.
func (r *BboltRepository) Delete(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrEmptyID
	}

	key := []byte(id.String())

	return r.update(func(history *bbolt.Bucket) error {
		if history.Get(key) == nil {
			return ErrRecordNotFound
		}

		return history.Delete(key)
	})
}

// Prune keeps the newest keep records and deletes the rest.
// It returns how many were deleted.
func (r *BboltRepository) Prune(keep int) (int, error) {
	records, err := r.FindAll()
	if err != nil {
		return 0, err
	}

	keep = max(keep, 0)
	if len(records) <= keep {
		return 0, nil
	}

	stale := records[keep:]

	err = r.update(func(history *bbolt.Bucket) error {
		for _, rec := range stale {
			if err := history.Delete([]byte(rec.ID.String())); err != nil {
				return fmt.Errorf("delete record %s: %w", rec.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(stale), nil
}

func (r *BboltRepository) Close() error {
	return r.db.Close()
}
