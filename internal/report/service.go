// Package report renders the public, token-addressed job report clients
// receive by email.
package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	opView = "report.service.view"

	qrSize           = 256
	errReportMissing = "report not found"
	errReportExpired = "report link expired"
)

// Job is the client-visible slice of a job with an issued report.
type Job struct {
	ID              uuid.UUID
	ClientName      string
	Address         string
	ServiceLabel    string
	Equipment       *string
	TechnicianID    uuid.UUID
	SupervisorNotes *string
	ReportSent      bool
	ReportSentAt    *time.Time
	ExpiresAt       *time.Time
}

// Photo is an approved photo with a long-lived signed URL.
type Photo struct {
	URL         string
	Description string
}

// JobSource resolves report tokens.
type JobSource interface {
	FindByReportToken(ctx context.Context, token string) (Job, error)
}

// PhotoSource lists the approved photos of a job.
type PhotoSource interface {
	ApprovedPhotos(ctx context.Context, jobID uuid.UUID, ttl time.Duration) ([]Photo, error)
}

// NameResolver resolves a user's display name.
type NameResolver interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// Config is the configuration the report page reads.
type Config interface {
	GetAppBaseURL() string
	GetReportPhotoURLTTL() time.Duration
}

// View is everything the report page shows.
type View struct {
	Title           string
	ClientName      string
	Address         string
	ServiceLabel    string
	Equipment       string
	TechnicianName  string
	ReportDate      string
	ExpiresOn       string
	SupervisorNotes string
	Photos          []Photo
	QRCode          template.URL
}

type Service struct {
	jobs   JobSource
	photos PhotoSource
	names  NameResolver
	cfg    Config
	log    *logger.Logger
	now    func() time.Time
}

func NewService(jobs JobSource, photos PhotoSource, names NameResolver, cfg Config, log *logger.Logger) *Service {
	return &Service{jobs: jobs, photos: photos, names: names, cfg: cfg, log: log, now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// URL is the public address of the report behind token.
func (s *Service) URL(token string) string {
	return s.cfg.GetAppBaseURL() + "/api/reports/" + token
}

// View resolves token to the report page. Unknown tokens are not-found and
// expired tokens gone; neither reveals anything about the job.
func (s *Service) View(ctx context.Context, token string) (*View, error) {
	if token == "" {
		return nil, apperr.NotFound(errReportMissing).WithOp(opView)
	}

	job, err := s.jobs.FindByReportToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !job.ReportSent || job.ExpiresAt == nil {
		return nil, apperr.NotFound(errReportMissing).WithOp(opView)
	}
	if !s.now().Before(*job.ExpiresAt) {
		return nil, apperr.Gone(errReportExpired).WithOp(opView)
	}

	photos, err := s.photos.ApprovedPhotos(ctx, job.ID, s.cfg.GetReportPhotoURLTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to load report photos: %w", err)
	}

	view := &View{
		Title:        "Reporte de servicio - " + job.ClientName,
		ClientName:   job.ClientName,
		Address:      job.Address,
		ServiceLabel: job.ServiceLabel,
		Equipment:    deref(job.Equipment),
		ExpiresOn:    job.ExpiresAt.Format("02/01/2006"),
		Photos:       photos,
	}
	if job.SupervisorNotes != nil {
		view.SupervisorNotes = *job.SupervisorNotes
	}
	if job.ReportSentAt != nil {
		view.ReportDate = job.ReportSentAt.Format("02/01/2006")
	}

	view.TechnicianName = "Técnico asignado"
	if name, err := s.names.DisplayName(ctx, job.TechnicianID); err == nil && name != "" {
		view.TechnicianName = name
	}

	qr, err := qrDataURL(s.URL(token))
	if err != nil {
		s.log.Warn("failed to render report qr code", "jobId", job.ID, "error", err)
	} else {
		view.QRCode = qr
	}
	return view, nil
}

func qrDataURL(content string) (template.URL, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", err
	}
	// Trusted: the payload is our own PNG bytes.
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
