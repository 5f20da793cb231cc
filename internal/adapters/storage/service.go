// Package storage binds photo blobs to S3-compatible object storage and
// issues time-limited signed URLs for them.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// PhotoStore is the blob side of the photo evidence store. Keys are
// deterministic per photo so a repeated upload overwrites instead of
// duplicating.
type PhotoStore interface {
	// Put stores the blob under key.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// SignedURL returns a time-limited GET URL for key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// PresignPut returns a time-limited PUT URL the device uploads to directly.
	PresignPut(ctx context.Context, key string, ttl time.Duration) (*PresignedURL, error)

	// Stat reports the stored object, or ErrObjectNotFound.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// EnsureBucketExists creates the photo bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error

	// ValidateContentType checks if the content type is an accepted photo format.
	ValidateContentType(contentType string) error

	// ValidateFileSize checks if the file size is within limits.
	ValidateFileSize(sizeBytes int64) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketJobPhotos() string
	IsMinIOEnabled() bool
}
