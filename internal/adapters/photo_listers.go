package adapters

import (
	"context"
	"time"

	jobtransport "hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/materials"
	photodomain "hvac_dispatch_backend/internal/photos/domain"
	phototransport "hvac_dispatch_backend/internal/photos/transport"
	"hvac_dispatch_backend/internal/report"

	"github.com/google/uuid"
)

// PhotoSigner lists a job's photos with signed URLs. Implemented by the
// photos service.
type PhotoSigner interface {
	SignedPhotos(ctx context.Context, jobID uuid.UUID, status photodomain.ReviewStatus, ttl time.Duration) ([]phototransport.PhotoResponse, error)
}

// JobPhotoLister implements jobs/service.PhotoLister.
type JobPhotoLister struct {
	photos PhotoSigner
	ttl    time.Duration
}

func NewJobPhotoLister(photos PhotoSigner, ttl time.Duration) *JobPhotoLister {
	return &JobPhotoLister{photos: photos, ttl: ttl}
}

func (a *JobPhotoLister) ListJobPhotos(ctx context.Context, jobID uuid.UUID) ([]jobtransport.PhotoSummary, error) {
	photos, err := a.photos.SignedPhotos(ctx, jobID, "", a.ttl)
	if err != nil {
		return nil, err
	}
	out := make([]jobtransport.PhotoSummary, 0, len(photos))
	for _, p := range photos {
		out = append(out, jobtransport.PhotoSummary{
			ID:           p.ID,
			Description:  p.Description,
			Status:       p.Status,
			RejectReason: p.RejectReason,
			ReplacesID:   p.ReplacesID,
			URL:          p.URL,
			CreatedAt:    p.CreatedAt,
		})
	}
	return out, nil
}

// ReportPhotoSource implements report.PhotoSource with approved photos only.
type ReportPhotoSource struct {
	photos PhotoSigner
}

func NewReportPhotoSource(photos PhotoSigner) *ReportPhotoSource {
	return &ReportPhotoSource{photos: photos}
}

func (a *ReportPhotoSource) ApprovedPhotos(ctx context.Context, jobID uuid.UUID, ttl time.Duration) ([]report.Photo, error) {
	photos, err := a.photos.SignedPhotos(ctx, jobID, photodomain.StatusApproved, ttl)
	if err != nil {
		return nil, err
	}
	out := make([]report.Photo, 0, len(photos))
	for _, p := range photos {
		if p.URL == "" {
			continue
		}
		out = append(out, report.Photo{URL: p.URL, Description: p.Description})
	}
	return out, nil
}

// MaterialSource lists a job's checklist. Implemented by the materials service.
type MaterialSource interface {
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]materials.Material, error)
}

// JobMaterialLister implements jobs/service.MaterialLister.
type JobMaterialLister struct {
	materials MaterialSource
}

func NewJobMaterialLister(materials MaterialSource) *JobMaterialLister {
	return &JobMaterialLister{materials: materials}
}

func (a *JobMaterialLister) ListJobMaterials(ctx context.Context, jobID uuid.UUID) ([]jobtransport.MaterialSummary, error) {
	items, err := a.materials.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := make([]jobtransport.MaterialSummary, 0, len(items))
	for _, m := range items {
		out = append(out, jobtransport.MaterialSummary{
			ID:       m.ID,
			Name:     m.Name,
			Quantity: m.Quantity,
			Checked:  m.Checked,
		})
	}
	return out, nil
}
