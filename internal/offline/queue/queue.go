// Package queue is the device-local durable store of photos that have not
// reached the server yet.
package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
)

const keyPrefix = "photo:"

// ErrNotFound is returned for ids that are not queued.
var ErrNotFound = errors.New("queued photo not found")

// Photo is one captured photo waiting for upload. ID doubles as the client
// reference the server deduplicates on.
type Photo struct {
	ID          uuid.UUID  `json:"id"`
	JobID       uuid.UUID  `json:"jobId"`
	UploadedBy  uuid.UUID  `json:"uploadedBy"`
	Description string     `json:"description"`
	ContentType string     `json:"contentType"`
	Data        []byte     `json:"data"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	ReplacesID  *uuid.UUID `json:"replacesId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
}

// Queue stores photos in pebble under photo:<id>. Every write is synced.
type Queue struct {
	db  *pebble.DB
	now func() time.Time
}

// Open opens or creates the queue in dir. fs may be nil for the OS
// filesystem.
func Open(dir string, fs vfs.FS) (*Queue, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open photo queue: %w", err)
	}
	return &Queue{db: db, now: time.Now}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

func key(id uuid.UUID) []byte {
	return []byte(keyPrefix + id.String())
}

// Enqueue stores p, assigning an id and capture time when missing.
func (q *Queue) Enqueue(p Photo) (Photo, error) {
	if p.JobID == uuid.Nil {
		return Photo{}, errors.New("queued photo needs a job id")
	}
	if len(p.Data) == 0 {
		return Photo{}, errors.New("queued photo has no data")
	}
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return Photo{}, fmt.Errorf("generate queue id: %w", err)
		}
		p.ID = id
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = q.now().UTC()
	}
	if err := q.put(p); err != nil {
		return Photo{}, err
	}
	return p, nil
}

func (q *Queue) put(p Photo) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode queued photo: %w", err)
	}
	if err := q.db.Set(key(p.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("store queued photo: %w", err)
	}
	return nil
}

// Get returns one queued photo.
func (q *Queue) Get(id uuid.UUID) (Photo, error) {
	value, closer, err := q.db.Get(key(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Photo{}, ErrNotFound
		}
		return Photo{}, fmt.Errorf("read queued photo: %w", err)
	}
	defer closer.Close()

	var p Photo
	if err := json.Unmarshal(value, &p); err != nil {
		return Photo{}, fmt.Errorf("decode queued photo %s: %w", id, err)
	}
	return p, nil
}

// List returns every queued photo in capture order.
func (q *Queue) List() ([]Photo, error) {
	iter, err := q.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte("photo;"),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate photo queue: %w", err)
	}
	defer iter.Close()

	items := make([]Photo, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		var p Photo
		if err := json.Unmarshal(bytes.Clone(iter.Value()), &p); err != nil {
			return nil, fmt.Errorf("decode queued photo %s: %w", iter.Key(), err)
		}
		items = append(items, p)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate photo queue: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// Len reports how many photos are queued.
func (q *Queue) Len() (int, error) {
	items, err := q.List()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// RecordFailure bumps the attempt counter and remembers the last error.
func (q *Queue) RecordFailure(id uuid.UUID, cause error) error {
	p, err := q.Get(id)
	if err != nil {
		return err
	}
	p.Attempts++
	if cause != nil {
		p.LastError = cause.Error()
	}
	return q.put(p)
}

// Remove deletes a photo. Removing an id that is not queued is an error so
// callers notice double removal.
func (q *Queue) Remove(id uuid.UUID) error {
	if _, err := q.Get(id); err != nil {
		return err
	}
	if err := q.db.Delete(key(id), pebble.Sync); err != nil {
		return fmt.Errorf("remove queued photo: %w", err)
	}
	return nil
}
