package notification

import (
	"context"
	"testing"

	"hvac_dispatch_backend/internal/events"
	"hvac_dispatch_backend/internal/notification/sse"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

type noPrefs struct{}

func (noPrefs) GetPreferences(context.Context, uuid.UUID) (notices.Preferences, error) {
	return notices.Preferences{}, nil
}

func (noPrefs) SetPreferences(context.Context, uuid.UUID, notices.Preferences) error { return nil }

func TestJobStatusChangePushedToTechnicianAndSupervisor(t *testing.T) {
	log := logger.Discard()
	stream := sse.New(log)
	m := newModule(nil, noPrefs{}, stream, log)
	bus := events.NewInMemoryBus(log)
	m.Subscribe(bus)

	tech, sup := uuid.New(), uuid.New()
	techEvents, cancelTech := stream.Subscribe(tech)
	defer cancelTech()
	supEvents, cancelSup := stream.Subscribe(sup)
	defer cancelSup()

	jobID := uuid.New()
	bus.Publish(context.Background(), events.JobStatusChanged{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        jobID,
		TechnicianID: tech,
		SupervisorID: sup,
		OldStatus:    "in_progress",
		NewStatus:    "supervisor_review",
	})
	bus.Wait()

	for name, ch := range map[string]<-chan sse.Event{"technician": techEvents, "supervisor": supEvents} {
		select {
		case ev := <-ch:
			if ev.Type != sse.EventJobStatusChanged || *ev.JobID != jobID {
				t.Fatalf("%s got unexpected event %+v", name, ev)
			}
		default:
			t.Fatalf("%s did not receive the status change", name)
		}
	}
}

func TestPhotoReviewPushedToUploader(t *testing.T) {
	log := logger.Discard()
	stream := sse.New(log)
	m := newModule(nil, noPrefs{}, stream, log)
	bus := events.NewInMemoryBus(log)
	m.Subscribe(bus)

	uploader := uuid.New()
	ch, cancel := stream.Subscribe(uploader)
	defer cancel()

	bus.Publish(context.Background(), events.PhotoReviewed{
		BaseEvent:  events.NewBaseEvent(),
		PhotoID:    uuid.New(),
		JobID:      uuid.New(),
		UploadedBy: uploader,
		Status:     "rejected",
	})
	bus.Wait()

	select {
	case ev := <-ch:
		data := ev.Data.(map[string]string)
		if ev.Type != sse.EventPhotoReviewed || data["status"] != "rejected" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatalf("uploader did not receive the review")
	}
}

func TestDistinctSkipsNilAndDuplicates(t *testing.T) {
	id := uuid.New()
	got := distinct(id, uuid.Nil, id)
	if len(got) != 1 || got[0] != id {
		t.Fatalf("unexpected %v", got)
	}
}
