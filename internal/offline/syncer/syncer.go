// Package syncer replays queued photos against the API once the device is
// back online.
package syncer

import (
	"context"
	"errors"
	"sync/atomic"

	"hvac_dispatch_backend/internal/offline/api"
	"hvac_dispatch_backend/internal/offline/queue"
	"hvac_dispatch_backend/internal/photos/transport"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrAlreadyRunning is returned when a pass is requested while one is in flight.
var ErrAlreadyRunning = errors.New("sync already running")

// Store is the local queue the syncer drains.
type Store interface {
	List() ([]queue.Photo, error)
	Remove(id uuid.UUID) error
	RecordFailure(id uuid.UUID, cause error) error
}

// Uploader delivers one photo to the server.
type Uploader interface {
	Upload(ctx context.Context, u api.Upload) (transport.PhotoResponse, error)
}

// Progress is reported after every item.
type Progress struct {
	Synced int
	Failed int
	Total  int
	ItemID uuid.UUID
	Err    error
}

// Result summarises one pass.
type Result struct {
	Total  int
	Synced int
	Failed int
}

// Syncer runs at most one pass at a time.
type Syncer struct {
	store      Store
	uploader   Uploader
	log        *logger.Logger
	running    atomic.Bool
	onProgress func(Progress)
}

func New(store Store, uploader Uploader, log *logger.Logger) *Syncer {
	return &Syncer{store: store, uploader: uploader, log: log}
}

// OnProgress registers a callback invoked after each item.
func (s *Syncer) OnProgress(fn func(Progress)) {
	s.onProgress = fn
}

// Running reports whether a pass is in flight.
func (s *Syncer) Running() bool {
	return s.running.Load()
}

// Run drains the queue in capture order. Items are uploaded one at a time;
// an item is removed locally only after the server accepted its record.
// Failed items stay queued for the next pass.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	items, err := s.store.List()
	if err != nil {
		return Result{}, err
	}

	res := Result{Total: len(items)}
	for _, item := range items {
		itemErr := s.syncOne(ctx, item)
		if itemErr != nil {
			res.Failed++
		} else {
			res.Synced++
		}
		s.report(Progress{Synced: res.Synced, Failed: res.Failed, Total: res.Total, ItemID: item.ID, Err: itemErr})
	}

	if res.Total > 0 {
		s.log.Info("photo sync pass finished", "total", res.Total, "synced", res.Synced, "failed", res.Failed)
	}
	return res, nil
}

func (s *Syncer) syncOne(ctx context.Context, item queue.Photo) error {
	_, err := s.uploader.Upload(ctx, ToUpload(item))
	if err != nil {
		s.log.Warn("queued photo upload failed", "photoId", item.ID, "jobId", item.JobID, "error", err)
		if recErr := s.store.RecordFailure(item.ID, err); recErr != nil {
			s.log.Error("failed to record sync failure", "photoId", item.ID, "error", recErr)
		}
		return err
	}

	if err := s.store.Remove(item.ID); err != nil {
		// The server already holds the photo; a retry is deduplicated by clientRef.
		s.log.Error("failed to dequeue synced photo", "photoId", item.ID, "error", err)
	}
	return nil
}

func (s *Syncer) report(p Progress) {
	if s.onProgress != nil {
		s.onProgress(p)
	}
}

// ToUpload maps a queued photo to an API upload. The local id is the
// client reference.
func ToUpload(p queue.Photo) api.Upload {
	contentType := p.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return api.Upload{
		JobID:       p.JobID,
		ClientRef:   p.ID.String(),
		Description: p.Description,
		ContentType: contentType,
		Data:        p.Data,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		ReplacesID:  p.ReplacesID,
	}
}
