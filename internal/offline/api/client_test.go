package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hvac_dispatch_backend/internal/photos/transport"

	"github.com/google/uuid"
)

type fakeServer struct {
	t          *testing.T
	srv        *httptest.Server
	blobs      map[string][]byte
	records    []transport.CreatePhotoRequest
	recorded   map[string]transport.PhotoResponse
	authHeader string
	rejectWith int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{t: t, blobs: map[string][]byte{}, recorded: map[string]transport.PhotoResponse{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		f.authHeader = r.Header.Get("Authorization")
		if f.rejectWith != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.rejectWith)
			_, _ = w.Write([]byte(`{"error":"job is cancelled","kind":"invalid_state"}`))
			return
		}
		switch {
		case r.Method == http.MethodPost && hasSuffix(r.URL.Path, "/photos/presign"):
			var req transport.PresignUploadRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if photo, ok := f.recorded[req.ClientRef]; ok {
				writeJSON(w, http.StatusOK, transport.PresignUploadResponse{AlreadyRecorded: true, Photo: &photo})
				return
			}
			writeJSON(w, http.StatusOK, transport.PresignUploadResponse{
				UploadURL:  f.srv.URL + "/blob/" + req.ClientRef,
				StorageKey: "jobs/" + req.ClientRef,
				ExpiresAt:  time.Now().Add(time.Hour),
			})
		case r.Method == http.MethodPost && hasSuffix(r.URL.Path, "/photos/record"):
			var req transport.CreatePhotoRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.records = append(f.records, req)
			writeJSON(w, http.StatusCreated, transport.PhotoResponse{ID: uuid.New(), Description: req.Description, Status: "pending"})
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/blob/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("blob upload must not carry the bearer token")
		}
		data, _ := io.ReadAll(r.Body)
		f.blobs[r.URL.Path] = data
		w.WriteHeader(http.StatusOK)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestUploadRunsAllSteps(t *testing.T) {
	f := newFakeServer(t)
	client := New(f.srv.URL, "tok", Options{})

	photo, err := client.Upload(context.Background(), Upload{
		JobID:       uuid.New(),
		ClientRef:   "ref-1",
		Description: "Condensadora",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if photo.Description != "Condensadora" {
		t.Fatalf("unexpected response %+v", photo)
	}
	if string(f.blobs["/blob/ref-1"]) != "jpeg-bytes" {
		t.Fatalf("blob not uploaded: %v", f.blobs)
	}
	if len(f.records) != 1 || f.records[0].StorageKey != "jobs/ref-1" || f.records[0].ClientRef != "ref-1" {
		t.Fatalf("unexpected record request %+v", f.records)
	}
	if f.authHeader != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", f.authHeader)
	}
}

func TestUploadOfRecordedPhotoCountsAsDelivered(t *testing.T) {
	f := newFakeServer(t)
	jobID := uuid.New()
	stored := transport.PhotoResponse{ID: uuid.New(), JobID: jobID, Description: "Condensadora", Status: "approved"}
	f.recorded["ref-9"] = stored
	client := New(f.srv.URL, "tok", Options{})

	photo, err := client.Upload(context.Background(), Upload{
		JobID:       jobID,
		ClientRef:   "ref-9",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if photo.ID != stored.ID || photo.Status != "approved" {
		t.Fatalf("expected the stored photo back, got %+v", photo)
	}
	if len(f.blobs) != 0 || len(f.records) != 0 {
		t.Fatalf("replay must not upload again: blobs=%v records=%v", f.blobs, f.records)
	}
}

func TestServerRejectionIsNotUnreachable(t *testing.T) {
	f := newFakeServer(t)
	f.rejectWith = http.StatusConflict
	client := New(f.srv.URL, "tok", Options{})

	_, err := client.Upload(context.Background(), Upload{JobID: uuid.New(), ContentType: "image/jpeg", Data: []byte("x")})
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsUnreachable(err) {
		t.Fatalf("rejection must not look like a network failure: %v", err)
	}
	var serverErr *ServerError
	if !errors.As(err, &serverErr) || serverErr.Kind != "invalid_state" || serverErr.Status != http.StatusConflict {
		t.Fatalf("unexpected server error %#v", err)
	}
}

func TestClosedServerIsUnreachable(t *testing.T) {
	f := newFakeServer(t)
	url := f.srv.URL
	f.srv.Close()

	client := New(url, "tok", Options{Timeout: time.Second})
	_, err := client.Upload(context.Background(), Upload{JobID: uuid.New(), ContentType: "image/jpeg", Data: []byte("x")})
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}

func TestGatewayErrorsCountAsUnreachable(t *testing.T) {
	f := newFakeServer(t)
	f.rejectWith = http.StatusBadGateway
	client := New(f.srv.URL, "tok", Options{})

	_, err := client.Presign(context.Background(), Upload{JobID: uuid.New(), ContentType: "image/jpeg", Data: []byte("x")})
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable for 502, got %v", err)
	}
}
