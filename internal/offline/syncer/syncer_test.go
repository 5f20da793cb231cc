package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hvac_dispatch_backend/internal/offline/api"
	"hvac_dispatch_backend/internal/offline/queue"
	"hvac_dispatch_backend/internal/photos/transport"
	"hvac_dispatch_backend/platform/logger"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
)

type scriptedUploader struct {
	mu      sync.Mutex
	fail    map[string]error
	calls   []string
	release chan struct{}
	started chan struct{}
}

func (u *scriptedUploader) Upload(_ context.Context, up api.Upload) (transport.PhotoResponse, error) {
	if u.started != nil {
		u.started <- struct{}{}
		<-u.release
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, up.ClientRef)
	if err, ok := u.fail[up.ClientRef]; ok {
		return transport.PhotoResponse{}, err
	}
	return transport.PhotoResponse{ID: uuid.New(), JobID: up.JobID}, nil
}

func newQueue(t *testing.T) *queue.Queue {
	t.Helper()
	q, err := queue.Open("queue", vfs.NewMem())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func enqueue(t *testing.T, q *queue.Queue, at time.Time) queue.Photo {
	t.Helper()
	p, err := q.Enqueue(queue.Photo{JobID: uuid.New(), Data: []byte("jpeg"), CreatedAt: at})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return p
}

func TestRunSyncsInOrderAndKeepsFailures(t *testing.T) {
	q := newQueue(t)
	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	first := enqueue(t, q, base)
	second := enqueue(t, q, base.Add(time.Minute))
	third := enqueue(t, q, base.Add(2*time.Minute))

	uploader := &scriptedUploader{fail: map[string]error{second.ID.String(): errors.New("boom")}}
	s := New(q, uploader, logger.Discard())

	var progress []Progress
	s.OnProgress(func(p Progress) { progress = append(progress, p) })

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Total != 3 || res.Synced != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	want := []string{first.ID.String(), second.ID.String(), third.ID.String()}
	for i, ref := range want {
		if uploader.calls[i] != ref {
			t.Fatalf("expected capture order %v, got %v", want, uploader.calls)
		}
	}

	if len(progress) != 3 || progress[2].Synced != 2 || progress[2].Total != 3 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	left, _ := q.List()
	if len(left) != 1 || left[0].ID != second.ID || left[0].Attempts != 1 {
		t.Fatalf("expected only the failed item to remain, got %+v", left)
	}
}

func TestRunTwiceNeverDoubleSyncs(t *testing.T) {
	q := newQueue(t)
	enqueue(t, q, time.Now())
	uploader := &scriptedUploader{}
	s := New(q, uploader, logger.Discard())

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.Total != 0 || len(uploader.calls) != 1 {
		t.Fatalf("expected a single upload, got %d calls and %+v", len(uploader.calls), res)
	}
}

func TestConcurrentTriggerIsNoop(t *testing.T) {
	q := newQueue(t)
	enqueue(t, q, time.Now())
	uploader := &scriptedUploader{started: make(chan struct{}), release: make(chan struct{})}
	s := New(q, uploader, logger.Discard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Run(context.Background())
	}()

	<-uploader.started
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	close(uploader.release)
	<-done

	if s.Running() {
		t.Fatalf("expected guard to be released")
	}
}

func TestToUploadDefaultsContentType(t *testing.T) {
	id := uuid.New()
	up := ToUpload(queue.Photo{ID: id, JobID: uuid.New()})
	if up.ContentType != "image/jpeg" || up.ClientRef != id.String() {
		t.Fatalf("unexpected upload %+v", up)
	}
}
