package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"hvac_dispatch_backend/internal/offline/api"
	"hvac_dispatch_backend/internal/offline/netwatch"
	"hvac_dispatch_backend/internal/offline/queue"
	"hvac_dispatch_backend/internal/offline/syncer"
	"hvac_dispatch_backend/platform/logger"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
)

// Capture is a photo taken on the device.
type Capture struct {
	JobID       uuid.UUID
	Description string
	ContentType string
	Data        []byte
	Latitude    *float64
	Longitude   *float64
	ReplacesID  *uuid.UUID
}

// CaptureResult tells the caller where the photo went.
type CaptureResult struct {
	LocalID  uuid.UUID
	Uploaded bool
	PhotoID  uuid.UUID
	Queued   bool
	Cause    error
}

// Store is the queue surface the agent needs.
type Store interface {
	syncer.Store
	Enqueue(p queue.Photo) (queue.Photo, error)
	Close() error
}

// Agent ties the local queue, API client and syncer together.
type Agent struct {
	cfg      Config
	store    Store
	uploader syncer.Uploader
	syncer   *syncer.Syncer
	log      *logger.Logger
}

// Open builds an agent backed by an on-disk queue.
func Open(cfg Config, log *logger.Logger) (*Agent, error) {
	return open(cfg, nil, log)
}

func open(cfg Config, fs vfs.FS, log *logger.Logger) (*Agent, error) {
	q, err := queue.Open(cfg.QueueDir, fs)
	if err != nil {
		return nil, err
	}
	client := api.New(cfg.ServerURL, cfg.AccessToken, api.Options{
		Timeout:    cfg.RequestTimeout,
		RetryCount: cfg.RetryCount,
	})
	return NewAgent(cfg, q, client, log), nil
}

// NewAgent assembles an agent from its parts.
func NewAgent(cfg Config, store Store, uploader syncer.Uploader, log *logger.Logger) *Agent {
	return &Agent{
		cfg:      cfg,
		store:    store,
		uploader: uploader,
		syncer:   syncer.New(store, uploader, log),
		log:      log,
	}
}

func (a *Agent) Close() error {
	return a.store.Close()
}

// Queue exposes the local queue for listing and discarding.
func (a *Agent) Queue() Store {
	return a.store
}

// Syncer returns the agent's single syncer.
func (a *Agent) Syncer() *syncer.Syncer {
	return a.syncer
}

// Online reports the device state. Without a state file the device is
// assumed online and failures decide.
func (a *Agent) Online() bool {
	if a.cfg.NetworkStateFile == "" {
		return true
	}
	state, err := netwatch.ReadState(a.cfg.NetworkStateFile)
	if err != nil {
		a.log.Warn("could not read network state", "error", err)
		return true
	}
	return state != netwatch.StateOffline
}

// Capture uploads the photo directly when the device is online and queues
// it when the server cannot take it now. The local id is reserved up front
// so a direct upload that half-succeeded is deduplicated on replay.
func (a *Agent) Capture(ctx context.Context, c Capture) (CaptureResult, error) {
	if c.JobID == uuid.Nil {
		return CaptureResult{}, errors.New("job id is required")
	}
	if len(c.Data) == 0 {
		return CaptureResult{}, errors.New("photo is empty")
	}
	localID, err := uuid.NewV7()
	if err != nil {
		return CaptureResult{}, fmt.Errorf("generate local id: %w", err)
	}

	item := queue.Photo{
		ID:          localID,
		JobID:       c.JobID,
		UploadedBy:  a.technicianID(),
		Description: c.Description,
		ContentType: c.ContentType,
		Data:        c.Data,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		ReplacesID:  c.ReplacesID,
	}

	var cause error
	if a.Online() {
		photo, err := a.uploader.Upload(ctx, syncer.ToUpload(item))
		if err == nil {
			return CaptureResult{LocalID: localID, Uploaded: true, PhotoID: photo.ID}, nil
		}
		if !shouldQueue(err) {
			return CaptureResult{}, err
		}
		a.log.Info("direct upload failed, queueing photo", "jobId", c.JobID, "error", err)
		cause = err
	}

	stored, err := a.store.Enqueue(item)
	if err != nil {
		return CaptureResult{}, err
	}
	return CaptureResult{LocalID: stored.ID, Queued: true, Cause: cause}, nil
}

// Sync runs one pass over the queue.
func (a *Agent) Sync(ctx context.Context, progress func(syncer.Progress)) (syncer.Result, error) {
	a.syncer.OnProgress(progress)
	return a.syncer.Run(ctx)
}

// Watch syncs on every offline to online transition until ctx is done.
func (a *Agent) Watch(ctx context.Context, progress func(syncer.Progress)) error {
	if a.cfg.NetworkStateFile == "" {
		return errors.New("network_state_file is required to watch")
	}
	a.syncer.OnProgress(progress)
	w := netwatch.New(a.cfg.NetworkStateFile, a.cfg.SettleDelay, func(ctx context.Context) {
		if _, err := a.syncer.Run(ctx); err != nil {
			if errors.Is(err, syncer.ErrAlreadyRunning) {
				a.log.Debug("sync trigger ignored, pass in flight")
				return
			}
			a.log.Error("sync pass failed", "error", err)
		}
	}, a.log)
	return w.Run(ctx)
}

func (a *Agent) technicianID() uuid.UUID {
	id, err := uuid.Parse(a.cfg.TechnicianID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// shouldQueue keeps the photo for later unless the server rejected it for
// a reason the technician has to fix now.
func shouldQueue(err error) bool {
	if api.IsUnreachable(err) {
		return true
	}
	var serverErr *api.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Status >= http.StatusInternalServerError || serverErr.Status == http.StatusTooManyRequests
	}
	return true
}
