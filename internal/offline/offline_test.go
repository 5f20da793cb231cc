package offline

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hvac_dispatch_backend/internal/offline/api"
	"hvac_dispatch_backend/internal/offline/queue"
	"hvac_dispatch_backend/internal/photos/transport"
	"hvac_dispatch_backend/platform/logger"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
)

type stubUploader struct {
	err   error
	calls int
	refs  []string
}

func (s *stubUploader) Upload(_ context.Context, u api.Upload) (transport.PhotoResponse, error) {
	s.calls++
	s.refs = append(s.refs, u.ClientRef)
	if s.err != nil {
		return transport.PhotoResponse{}, s.err
	}
	return transport.PhotoResponse{ID: uuid.New(), JobID: u.JobID}, nil
}

func newAgent(t *testing.T, cfg Config, up *stubUploader) *Agent {
	t.Helper()
	q, err := queue.Open("queue", vfs.NewMem())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	a := NewAgent(cfg, q, up, logger.Discard())
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func stateFile(t *testing.T, state string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network")
	if err := os.WriteFile(path, []byte(state), 0o600); err != nil {
		t.Fatalf("write state: %v", err)
	}
	return path
}

func TestParseConfigDefaultsAndValidation(t *testing.T) {
	cfg, err := ParseConfig([]byte("server_url: https://api.example.com\naccess_token: abc\nqueue_dir: /var/lib/fieldsync\nsettle_delay: 2s\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.SettleDelay != 2*time.Second || cfg.RequestTimeout != defaultTimeout {
		t.Fatalf("unexpected durations %+v", cfg)
	}

	if _, err := ParseConfig([]byte("queue_dir: /tmp/q\n")); err == nil {
		t.Fatalf("expected error without server_url and access_token")
	}
}

func TestCaptureUploadsWhenOnline(t *testing.T) {
	up := &stubUploader{}
	a := newAgent(t, Config{NetworkStateFile: stateFile(t, "online")}, up)

	res, err := a.Capture(context.Background(), Capture{JobID: uuid.New(), Data: []byte("jpeg")})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !res.Uploaded || res.Queued {
		t.Fatalf("expected direct upload, got %+v", res)
	}
	if n, _ := a.Queue().List(); len(n) != 0 {
		t.Fatalf("nothing should be queued")
	}
}

func TestCaptureQueuesWhenOffline(t *testing.T) {
	up := &stubUploader{}
	a := newAgent(t, Config{NetworkStateFile: stateFile(t, "offline")}, up)

	res, err := a.Capture(context.Background(), Capture{JobID: uuid.New(), Data: []byte("jpeg"), Description: "Filtro"})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !res.Queued || up.calls != 0 {
		t.Fatalf("expected queued without upload attempt, got %+v calls=%d", res, up.calls)
	}
	items, _ := a.Queue().List()
	if len(items) != 1 || items[0].Description != "Filtro" {
		t.Fatalf("unexpected queue %+v", items)
	}
}

func TestCaptureQueuesWhenServerUnreachableAndReusesClientRef(t *testing.T) {
	up := &stubUploader{err: api.ErrUnreachable}
	a := newAgent(t, Config{}, up)

	res, err := a.Capture(context.Background(), Capture{JobID: uuid.New(), Data: []byte("jpeg")})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !res.Queued || !errors.Is(res.Cause, api.ErrUnreachable) {
		t.Fatalf("expected queued with cause, got %+v", res)
	}

	up.err = nil
	if _, err := a.Sync(context.Background(), nil); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(up.refs) != 2 || up.refs[0] != up.refs[1] || up.refs[0] != res.LocalID.String() {
		t.Fatalf("expected replay with the same client ref, got %v", up.refs)
	}
}

func TestCaptureReturnsClientErrors(t *testing.T) {
	up := &stubUploader{err: &api.ServerError{Status: http.StatusUnprocessableEntity, Kind: "validation", Message: "bad"}}
	a := newAgent(t, Config{}, up)

	if _, err := a.Capture(context.Background(), Capture{JobID: uuid.New(), Data: []byte("jpeg")}); err == nil {
		t.Fatalf("expected validation error to surface")
	}
	if items, _ := a.Queue().List(); len(items) != 0 {
		t.Fatalf("rejected photo must not be queued")
	}
}

func TestWatchRequiresStateFile(t *testing.T) {
	a := newAgent(t, Config{}, &stubUploader{})
	if err := a.Watch(context.Background(), nil); err == nil {
		t.Fatalf("expected error without network_state_file")
	}
}
