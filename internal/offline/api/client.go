// Package api is the device-side HTTP client for the photo endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hvac_dispatch_backend/internal/photos/transport"
	"hvac_dispatch_backend/platform/httpkit"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// ErrUnreachable marks failures where the server could not be reached at all.
var ErrUnreachable = errors.New("server unreachable")

// ServerError is a response the server produced and rejected.
type ServerError struct {
	Status  int
	Kind    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("server rejected request (%d %s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
}

// IsUnreachable reports whether err means the device is effectively offline.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// Upload is one photo to deliver.
type Upload struct {
	JobID       uuid.UUID
	ClientRef   string
	Description string
	ContentType string
	Data        []byte
	Latitude    *float64
	Longitude   *float64
	ReplacesID  *uuid.UUID
}

// Client talks to the dispatch API with the technician's bearer token.
type Client struct {
	api  *resty.Client
	blob *resty.Client
}

// Options tunes the underlying HTTP clients.
type Options struct {
	Timeout    time.Duration
	RetryCount int
}

// New creates a Client for baseURL.
func New(baseURL, accessToken string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	api := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(accessToken)

	// Presigned URLs carry their own auth; a bearer header would break the signature.
	blob := resty.New().
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount)

	return &Client{api: api, blob: blob}
}

// Presign asks the server for an upload URL for u.
func (c *Client) Presign(ctx context.Context, u Upload) (transport.PresignUploadResponse, error) {
	var out transport.PresignUploadResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("jobID", u.JobID.String()).
		SetBody(transport.PresignUploadRequest{
			ContentType: u.ContentType,
			SizeBytes:   int64(len(u.Data)),
			ClientRef:   u.ClientRef,
		}).
		SetResult(&out).
		SetError(&httpkit.ErrorResponse{}).
		Post("/api/v1/jobs/{jobID}/photos/presign")
	if err := check(resp, err); err != nil {
		return transport.PresignUploadResponse{}, fmt.Errorf("presign upload: %w", err)
	}
	return out, nil
}

// PutBlob uploads the photo bytes to a presigned URL.
func (c *Client) PutBlob(ctx context.Context, uploadURL, contentType string, data []byte) error {
	resp, err := c.blob.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put(uploadURL)
	if err := check(resp, err); err != nil {
		return fmt.Errorf("upload blob: %w", err)
	}
	return nil
}

// CreateRecord registers the uploaded blob as a photo on the job. The
// server treats a repeated clientRef as the same photo.
func (c *Client) CreateRecord(ctx context.Context, u Upload, storageKey string) (transport.PhotoResponse, error) {
	var out transport.PhotoResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("jobID", u.JobID.String()).
		SetBody(transport.CreatePhotoRequest{
			StorageKey:  storageKey,
			Description: u.Description,
			ClientRef:   u.ClientRef,
			ReplacesID:  u.ReplacesID,
			Latitude:    u.Latitude,
			Longitude:   u.Longitude,
		}).
		SetResult(&out).
		SetError(&httpkit.ErrorResponse{}).
		Post("/api/v1/jobs/{jobID}/photos/record")
	if err := check(resp, err); err != nil {
		return transport.PhotoResponse{}, fmt.Errorf("record photo: %w", err)
	}
	return out, nil
}

// Upload runs presign, blob upload and record creation for one photo. A
// photo the server already recorded under the same client reference counts
// as delivered.
func (c *Client) Upload(ctx context.Context, u Upload) (transport.PhotoResponse, error) {
	presigned, err := c.Presign(ctx, u)
	if err != nil {
		return transport.PhotoResponse{}, err
	}
	if presigned.AlreadyRecorded {
		if presigned.Photo != nil {
			return *presigned.Photo, nil
		}
		return transport.PhotoResponse{JobID: u.JobID}, nil
	}
	if err := c.PutBlob(ctx, presigned.UploadURL, u.ContentType, u.Data); err != nil {
		return transport.PhotoResponse{}, err
	}
	return c.CreateRecord(ctx, u, presigned.StorageKey)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusBadGateway || resp.StatusCode() == http.StatusServiceUnavailable || resp.StatusCode() == http.StatusGatewayTimeout {
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode())
	}

	serverErr := &ServerError{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	if body, ok := resp.Error().(*httpkit.ErrorResponse); ok && body != nil && body.Error != "" {
		serverErr.Kind = body.Kind
		serverErr.Message = body.Error
	}
	return serverErr
}
