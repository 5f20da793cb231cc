package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/adapters/storage"
	"hvac_dispatch_backend/internal/photos/domain"
	"hvac_dispatch_backend/internal/photos/repository"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
)

// memoryPhotos mirrors the unique client reference and the conditional
// review of the pgx repository.
type memoryPhotos struct {
	mu     sync.Mutex
	photos map[uuid.UUID]*repository.Photo
	order  []uuid.UUID
	jobs   *memoryJobs
}

func newMemoryPhotos(jobs *memoryJobs) *memoryPhotos {
	return &memoryPhotos{photos: make(map[uuid.UUID]*repository.Photo), jobs: jobs}
}

func (m *memoryPhotos) Create(_ context.Context, np repository.NewPhoto) (repository.Photo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if np.ClientRef != nil {
		for _, p := range m.photos {
			if p.ClientRef != nil && *p.ClientRef == *np.ClientRef {
				return *p, false, nil
			}
		}
	}
	if job, _ := m.jobs.GetJob(context.Background(), np.JobID); job.Status != "in_progress" {
		return repository.Photo{}, false, apperr.InvalidState("photos can only be added while the job is in_progress")
	}
	p := &repository.Photo{
		ID:          np.ID,
		JobID:       np.JobID,
		StoragePath: np.StoragePath,
		Description: np.Description,
		Status:      string(domain.StatusPending),
		UploadedBy:  np.UploadedBy,
		Latitude:    np.Latitude,
		Longitude:   np.Longitude,
		ReplacesID:  np.ReplacesID,
		ClientRef:   np.ClientRef,
		CreatedAt:   time.Now(),
	}
	m.photos[p.ID] = p
	m.order = append(m.order, p.ID)
	return *p, true, nil
}

func (m *memoryPhotos) add(jobID, uploader uuid.UUID, status domain.ReviewStatus) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.photos[id] = &repository.Photo{
		ID:          id,
		JobID:       jobID,
		StoragePath: jobID.String() + "/" + id.String() + ".jpg",
		Status:      string(status),
		UploadedBy:  uploader,
	}
	m.order = append(m.order, id)
	return id
}

func (m *memoryPhotos) GetByID(_ context.Context, id uuid.UUID) (repository.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return repository.Photo{}, apperr.NotFound("photo not found")
	}
	return *p, nil
}

func (m *memoryPhotos) GetByClientRef(_ context.Context, ref string) (repository.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.photos {
		if p.ClientRef != nil && *p.ClientRef == ref {
			return *p, nil
		}
	}
	return repository.Photo{}, apperr.NotFound("photo not found")
}

func (m *memoryPhotos) ListByJob(_ context.Context, jobID uuid.UUID, status string) ([]repository.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Photo
	for _, id := range m.order {
		p := m.photos[id]
		if p.JobID == jobID && (status == "" || p.Status == status) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryPhotos) ApplyReview(_ context.Context, rv repository.Review) (repository.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[rv.PhotoID]
	if !ok {
		return repository.Photo{}, apperr.NotFound("photo not found")
	}
	if job, _ := m.jobs.GetJob(context.Background(), p.JobID); job.Status != "supervisor_review" {
		return repository.Photo{}, apperr.InvalidState("job is not in supervisor_review")
	}
	if p.Status != string(domain.StatusPending) {
		return repository.Photo{}, apperr.InvalidState("photo is already " + p.Status)
	}
	now := time.Now()
	p.ReviewedAt = &now
	if rv.Approve {
		p.Status = string(domain.StatusApproved)
		p.ApprovedBy = &rv.ReviewerID
	} else {
		reason := rv.Reason
		p.Status = string(domain.StatusRejected)
		p.RejectReason = &reason
		p.RejectedBy = &rv.ReviewerID
	}
	return *p, nil
}

type memoryJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]JobRef
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: make(map[uuid.UUID]JobRef)}
}

func (m *memoryJobs) put(j JobRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
}

func (m *memoryJobs) setStatus(id uuid.UUID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = status
	m.jobs[id] = j
}

func (m *memoryJobs) GetJob(_ context.Context, id uuid.UUID) (JobRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return JobRef{}, apperr.NotFound("job not found")
	}
	return j, nil
}

// memoryStore is a PhotoStore keeping blobs in a map.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	failPut bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if m.failPut {
		return fmt.Errorf("storage unavailable")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.puts++
	return nil
}

func (m *memoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (m *memoryStore) PresignPut(_ context.Context, key string, ttl time.Duration) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://blobs.test/put/" + key, FileKey: key, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) EnsureBucketExists(context.Context) error { return nil }

func (m *memoryStore) ValidateContentType(contentType string) error {
	return storage.ValidateContentType(contentType)
}

func (m *memoryStore) ValidateFileSize(size int64) error {
	return storage.ValidateFileSize(size, 1024)
}

func (m *memoryStore) has(prefix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []activity.NewEntry
}

func (r *recordingActivity) Record(_ context.Context, e activity.NewEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingActivity) ofType(t activity.Type) []activity.NewEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []activity.NewEntry
	for _, e := range r.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notices.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n notices.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}
