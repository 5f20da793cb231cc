// Package service implements photo evidence: uploads, idempotent record
// creation for offline devices and the supervisor review of each photo.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/adapters/storage"
	"hvac_dispatch_backend/internal/events"
	jobdomain "hvac_dispatch_backend/internal/jobs/domain"
	"hvac_dispatch_backend/internal/photos/domain"
	"hvac_dispatch_backend/internal/photos/repository"
	"hvac_dispatch_backend/internal/photos/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	maxDescriptionLength = 500
	maxReasonLength      = 1000
	maxClientRefLength   = 100
	signConcurrency      = 5

	// ListURLTTL is how long photo links in API responses stay valid.
	ListURLTTL = 15 * time.Minute
)

// Service owns photo evidence.
type Service struct {
	repo     Repository
	jobs     JobReader
	store    storage.PhotoStore
	activity ActivityRecorder
	notifier notices.Notifier
	bus      events.Bus
	log      *logger.Logger
}

// Deps groups the collaborators of the photo service.
type Deps struct {
	Repo     Repository
	Jobs     JobReader
	Store    storage.PhotoStore
	Activity ActivityRecorder
	Notifier notices.Notifier
	Bus      events.Bus
	Log      *logger.Logger
}

// New creates the photo service.
func New(d Deps) *Service {
	return &Service{
		repo:     d.Repo,
		jobs:     d.Jobs,
		store:    d.Store,
		activity: d.Activity,
		notifier: d.Notifier,
		bus:      d.Bus,
		log:      d.Log,
	}
}

// UploadInput is a photo received through a multipart request.
type UploadInput struct {
	File        io.Reader
	Size        int64
	ContentType string
	Description string
	ClientRef   string
	ReplacesID  *uuid.UUID
	Latitude    *float64
	Longitude   *float64
}

// StorageKey is the deterministic object key of a photo. name is the device
// queue id when there is one, otherwise the photo id.
func StorageKey(jobID uuid.UUID, name, contentType string) string {
	return jobID.String() + "/" + name + storage.ExtensionFor(contentType)
}

// Upload stores the blob and creates the photo record in one request.
func (s *Service) Upload(ctx context.Context, actor access.Actor, jobID uuid.UUID, in UploadInput) (*transport.PhotoResponse, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := s.store.ValidateContentType(in.ContentType); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := s.store.ValidateFileSize(in.Size); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	description, err := cleanDescription(in.Description)
	if err != nil {
		return nil, err
	}
	if err := validateClientRef(in.ClientRef); err != nil {
		return nil, err
	}
	if err := validateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	job, err := s.ownedJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if existing, ok, err := s.existingForRef(ctx, jobID, in.ClientRef); err != nil || ok {
		return existing, err
	}
	if err := requireInProgress(job); err != nil {
		return nil, err
	}
	if err := s.checkReplaces(ctx, jobID, in.ReplacesID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(in.File, in.Size+1))
	if err != nil {
		return nil, apperr.BadRequest("failed to read uploaded file")
	}
	if int64(len(data)) != in.Size {
		return nil, apperr.Validation("uploaded file size does not match the declared size")
	}

	lat, lng := in.Latitude, in.Longitude
	if lat == nil {
		if exLat, exLng, ok := gpsFromEXIF(data); ok {
			lat, lng = &exLat, &exLng
		}
	}

	photoID := uuid.New()
	name := photoID.String()
	if in.ClientRef != "" {
		name = in.ClientRef
	}
	key := StorageKey(jobID, name, in.ContentType)

	if err := s.store.Put(ctx, key, bytes.NewReader(data), in.Size, in.ContentType); err != nil {
		return nil, apperr.Dependency("failed to store photo", err)
	}

	return s.create(ctx, actor, job, repository.NewPhoto{
		ID:          photoID,
		JobID:       jobID,
		StoragePath: key,
		Description: description,
		UploadedBy:  actor.ID,
		Latitude:    lat,
		Longitude:   lng,
		ReplacesID:  in.ReplacesID,
		ClientRef:   optionalRef(in.ClientRef),
	})
}

// PresignUpload returns a PUT URL for a device that uploads the blob itself.
func (s *Service) PresignUpload(ctx context.Context, actor access.Actor, jobID uuid.UUID, req transport.PresignUploadRequest) (*transport.PresignUploadResponse, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := s.store.ValidateContentType(req.ContentType); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := s.store.ValidateFileSize(req.SizeBytes); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := validateClientRef(req.ClientRef); err != nil {
		return nil, err
	}
	job, err := s.ownedJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	// A device replaying a photo the server already holds gets the record
	// back instead of a new upload URL.
	if existing, ok, err := s.existingForRef(ctx, jobID, req.ClientRef); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return &transport.PresignUploadResponse{AlreadyRecorded: true, Photo: existing}, nil
	}
	if err := requireInProgress(job); err != nil {
		return nil, err
	}

	name := req.ClientRef
	if name == "" {
		name = uuid.NewString()
	}
	presigned, err := s.store.PresignPut(ctx, StorageKey(jobID, name, req.ContentType), storage.PresignedURLTTL)
	if err != nil {
		return nil, apperr.Dependency("failed to create upload url", err)
	}
	return &transport.PresignUploadResponse{
		UploadURL:  presigned.URL,
		StorageKey: presigned.FileKey,
		ExpiresAt:  presigned.ExpiresAt,
	}, nil
}

// CreateRecord registers a blob uploaded through PresignUpload. Repeating the
// call with the same client reference returns the first record.
func (s *Service) CreateRecord(ctx context.Context, actor access.Actor, jobID uuid.UUID, req transport.CreatePhotoRequest) (*transport.PhotoResponse, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	description, err := cleanDescription(req.Description)
	if err != nil {
		return nil, err
	}
	if err := validateClientRef(req.ClientRef); err != nil {
		return nil, err
	}
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(req.StorageKey, jobID.String()+"/") || strings.Contains(req.StorageKey, "..") {
		return nil, apperr.Validation("storage key does not belong to this job")
	}

	job, err := s.ownedJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if existing, ok, err := s.existingForRef(ctx, jobID, req.ClientRef); err != nil || ok {
		return existing, err
	}
	if err := requireInProgress(job); err != nil {
		return nil, err
	}
	if err := s.checkReplaces(ctx, jobID, req.ReplacesID); err != nil {
		return nil, err
	}

	if _, err := s.store.Stat(ctx, req.StorageKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperr.Validation("no uploaded file found for storage key")
		}
		return nil, apperr.Dependency("failed to check uploaded file", err)
	}

	return s.create(ctx, actor, job, repository.NewPhoto{
		ID:          uuid.New(),
		JobID:       jobID,
		StoragePath: req.StorageKey,
		Description: description,
		UploadedBy:  actor.ID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ReplacesID:  req.ReplacesID,
		ClientRef:   optionalRef(req.ClientRef),
	})
}

func (s *Service) create(ctx context.Context, actor access.Actor, job JobRef, np repository.NewPhoto) (*transport.PhotoResponse, error) {
	photo, created, err := s.repo.Create(ctx, np)
	if err != nil {
		return nil, err
	}
	if photo.JobID != job.ID {
		return nil, apperr.Conflict("client reference already used for another job")
	}

	if created {
		action := "Foto agregada"
		if photo.ReplacesID != nil {
			action = "Foto de reemplazo agregada"
		}
		s.record(ctx, activity.NewEntry{
			JobID:       job.ID,
			Action:      action,
			Type:        activity.TypePhotoUpload,
			Details:     map[string]any{"photoId": photo.ID, "description": photo.Description},
			PerformedBy: actor.ID,
		})
		if s.bus != nil {
			s.bus.Publish(ctx, events.PhotoUploaded{
				BaseEvent:    events.NewBaseEvent(),
				PhotoID:      photo.ID,
				JobID:        job.ID,
				UploadedBy:   actor.ID,
				SupervisorID: job.SupervisorID,
				ReplacesID:   photo.ReplacesID,
			})
		}
	}

	resp := s.respond(ctx, photo)
	return &resp, nil
}

// ownedJob loads the job and checks that actor is its technician.
func (s *Service) ownedJob(ctx context.Context, actor access.Actor, jobID uuid.UUID) (JobRef, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return JobRef{}, err
	}
	if !actor.IsTechnicianOf(job.TechnicianID) {
		return JobRef{}, apperr.Forbidden("only the assigned technician can add photos")
	}
	return job, nil
}

func requireInProgress(job JobRef) error {
	if job.Status != string(jobdomain.StatusInProgress) {
		return apperr.InvalidState(fmt.Sprintf("photos can only be added while the job is in_progress (current: %s)", job.Status)).
			WithDetails(map[string]string{"status": job.Status})
	}
	return nil
}

func (s *Service) existingForRef(ctx context.Context, jobID uuid.UUID, ref string) (*transport.PhotoResponse, bool, error) {
	if ref == "" {
		return nil, false, nil
	}
	photo, err := s.repo.GetByClientRef(ctx, ref)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if photo.JobID != jobID {
		return nil, false, apperr.Conflict("client reference already used for another job")
	}
	resp := s.respond(ctx, photo)
	return &resp, true, nil
}

// checkReplaces enforces that a replacement points at a rejected photo of
// the same job.
func (s *Service) checkReplaces(ctx context.Context, jobID uuid.UUID, replacesID *uuid.UUID) error {
	if replacesID == nil {
		return nil
	}
	original, err := s.repo.GetByID(ctx, *replacesID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("replaced photo does not exist")
		}
		return err
	}
	if original.JobID != jobID {
		return apperr.Validation("replaced photo belongs to another job")
	}
	if original.Status != string(domain.StatusRejected) {
		return apperr.Validation("only rejected photos can be replaced")
	}
	return nil
}

// ListForJob returns a job's photos with short-lived links for one of its
// participants.
func (s *Service) ListForJob(ctx context.Context, actor access.Actor, jobID uuid.UUID) ([]transport.PhotoResponse, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !actor.IsDispatcher() && !actor.IsTechnicianOf(job.TechnicianID) && !actor.IsSupervisorOf(job.SupervisorID) {
		return nil, apperr.Forbidden("not a participant of this job")
	}
	return s.SignedPhotos(ctx, jobID, "", ListURLTTL)
}

// SignedPhotos lists a job's photos, optionally narrowed to one review
// status, each with a GET link valid for ttl.
func (s *Service) SignedPhotos(ctx context.Context, jobID uuid.UUID, status domain.ReviewStatus, ttl time.Duration) ([]transport.PhotoResponse, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	photos, err := s.repo.ListByJob(ctx, jobID, string(status))
	if err != nil {
		return nil, err
	}

	out := make([]transport.PhotoResponse, len(photos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i, p := range photos {
		i, p := i, p
		g.Go(func() error {
			url, err := s.store.SignedURL(gctx, p.StoragePath, ttl)
			if err != nil {
				return apperr.Dependency("failed to sign photo link", err)
			}
			out[i] = toResponse(p)
			out[i].URL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Approve marks a pending photo as approved.
func (s *Service) Approve(ctx context.Context, actor access.Actor, photoID uuid.UUID) (*transport.PhotoResponse, error) {
	return s.review(ctx, actor, photoID, true, "")
}

// Reject marks a pending photo as rejected and tells the technician why.
func (s *Service) Reject(ctx context.Context, actor access.Actor, photoID uuid.UUID, req transport.RejectPhotoRequest) (*transport.PhotoResponse, error) {
	reason := sanitize.Text(req.Reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	if len(reason) > maxReasonLength {
		return nil, apperr.Validation("reason is too long")
	}
	return s.review(ctx, actor, photoID, false, reason)
}

func (s *Service) review(ctx context.Context, actor access.Actor, photoID uuid.UUID, approve bool, reason string) (*transport.PhotoResponse, error) {
	photo, err := s.repo.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetJob(ctx, photo.JobID)
	if err != nil {
		return nil, err
	}
	if !actor.IsSupervisorOf(job.SupervisorID) {
		return nil, apperr.Forbidden("only the assigned supervisor can review photos")
	}
	if job.Status != string(jobdomain.StatusSupervisorReview) {
		return nil, apperr.InvalidState(fmt.Sprintf("job is %s, photos can only be reviewed in supervisor_review", job.Status)).
			WithDetails(map[string]string{"jobStatus": job.Status})
	}
	if !domain.ReviewStatus(photo.Status).CanReview() {
		return nil, apperr.InvalidState(fmt.Sprintf("photo is already %s", photo.Status)).
			WithDetails(map[string]string{"status": photo.Status})
	}

	updated, err := s.repo.ApplyReview(ctx, repository.Review{
		PhotoID:    photoID,
		ReviewerID: actor.ID,
		Approve:    approve,
		Reason:     reason,
	})
	if err != nil {
		return nil, err
	}

	action := "Foto aprobada"
	details := map[string]any{"photoId": updated.ID, "status": updated.Status}
	if !approve {
		action = "Foto rechazada: " + reason
		details["reason"] = reason
	}
	s.record(ctx, activity.NewEntry{
		JobID:       job.ID,
		Action:      action,
		Type:        activity.TypePhotoReview,
		Details:     details,
		PerformedBy: actor.ID,
	})
	if s.bus != nil {
		s.bus.Publish(ctx, events.PhotoReviewed{
			BaseEvent:  events.NewBaseEvent(),
			PhotoID:    updated.ID,
			JobID:      job.ID,
			UploadedBy: updated.UploadedBy,
			ReviewerID: actor.ID,
			Status:     updated.Status,
		})
	}
	if !approve && s.notifier != nil {
		jobID := job.ID
		err := s.notifier.Notify(ctx, notices.Notice{
			UserID:  updated.UploadedBy,
			Type:    notices.PhotoRejected,
			Title:   "Foto rechazada",
			Message: fmt.Sprintf("%s: %s", job.ClientName, reason),
			JobID:   &jobID,
		})
		if err != nil {
			s.log.Warn("failed to send notification", "error", err, "type", string(notices.PhotoRejected))
		}
	}

	resp := s.respond(ctx, updated)
	return &resp, nil
}

// respond maps a photo and attaches a short-lived link when one can be made.
func (s *Service) respond(ctx context.Context, p repository.Photo) transport.PhotoResponse {
	resp := toResponse(p)
	if s.store == nil {
		return resp
	}
	url, err := s.store.SignedURL(ctx, p.StoragePath, ListURLTTL)
	if err != nil {
		s.log.Warn("failed to sign photo link", "error", err, "photoId", p.ID)
		return resp
	}
	resp.URL = url
	return resp
}

func (s *Service) record(ctx context.Context, e activity.NewEntry) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, e)
}

func (s *Service) requireStore() error {
	if s.store == nil {
		return apperr.Dependency("photo storage is not configured", nil)
	}
	return nil
}

func toResponse(p repository.Photo) transport.PhotoResponse {
	return transport.PhotoResponse{
		ID:           p.ID,
		JobID:        p.JobID,
		Description:  p.Description,
		Status:       p.Status,
		RejectReason: p.RejectReason,
		ReplacesID:   p.ReplacesID,
		ClientRef:    p.ClientRef,
		UploadedBy:   p.UploadedBy,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		CreatedAt:    p.CreatedAt,
		ReviewedAt:   p.ReviewedAt,
	}
}

func cleanDescription(raw string) (string, error) {
	description := sanitize.Text(raw)
	if len(description) > maxDescriptionLength {
		return "", apperr.Validation("description is too long")
	}
	return description, nil
}

// validateClientRef keeps device ids safe to embed in object keys.
func validateClientRef(ref string) error {
	if ref == "" {
		return nil
	}
	if len(ref) > maxClientRefLength {
		return apperr.Validation("clientRef is too long")
	}
	for _, r := range ref {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return apperr.Validation("clientRef may only contain letters, digits, '-' and '_'")
		}
	}
	return nil
}

func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return apperr.Validation("latitude and longitude must be provided together")
	}
	return nil
}

func optionalRef(ref string) *string {
	if ref == "" {
		return nil
	}
	return &ref
}
