package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// PresignUploadRequest asks for a direct upload URL. ClientRef is the device
// queue id; it fixes the storage key so retries overwrite the same object.
type PresignUploadRequest struct {
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
	ClientRef   string `json:"clientRef" validate:"omitempty,max=100"`
}

// CreatePhotoRequest records a blob uploaded through a presigned URL.
type CreatePhotoRequest struct {
	StorageKey  string     `json:"storageKey" validate:"required,max=300"`
	Description string     `json:"description" validate:"max=500"`
	ClientRef   string     `json:"clientRef" validate:"omitempty,max=100"`
	ReplacesID  *uuid.UUID `json:"replacesId"`
	Latitude    *float64   `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64   `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// UploadPhotoForm holds the non-file fields of a multipart upload.
type UploadPhotoForm struct {
	Description string   `form:"description" validate:"max=500"`
	ClientRef   string   `form:"clientRef" validate:"omitempty,max=100"`
	ReplacesID  string   `form:"replacesId" validate:"omitempty,uuid"`
	Latitude    *float64 `form:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `form:"longitude" validate:"omitempty,min=-180,max=180"`
}

// RejectPhotoRequest is the body of POST /photos/:id/reject
type RejectPhotoRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// PhotoResponse is the API view of a photo.
type PhotoResponse struct {
	ID           uuid.UUID  `json:"id"`
	JobID        uuid.UUID  `json:"jobId"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	RejectReason *string    `json:"rejectReason,omitempty"`
	ReplacesID   *uuid.UUID `json:"replacesId,omitempty"`
	ClientRef    *string    `json:"clientRef,omitempty"`
	UploadedBy   uuid.UUID  `json:"uploadedBy"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	URL          string     `json:"url,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
}

// PresignUploadResponse tells the device where to PUT the blob.
// When the client reference was already recorded, AlreadyRecorded is set,
// Photo carries the existing record and no upload URL is issued.
type PresignUploadResponse struct {
	UploadURL       string         `json:"uploadUrl,omitempty"`
	StorageKey      string         `json:"storageKey,omitempty"`
	ExpiresAt       time.Time      `json:"expiresAt,omitempty"`
	AlreadyRecorded bool           `json:"alreadyRecorded,omitempty"`
	Photo           *PhotoResponse `json:"photo,omitempty"`
}

// ReportPhoto is an approved photo with a long-lived link for the client report.
type ReportPhoto struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
}
