package sse

import (
	"testing"

	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

func TestPublishReachesEveryStreamOfUser(t *testing.T) {
	svc := New(logger.Discard())
	userID := uuid.New()

	first, cancelFirst := svc.Subscribe(userID)
	defer cancelFirst()
	second, cancelSecond := svc.Subscribe(userID)
	defer cancelSecond()
	other, cancelOther := svc.Subscribe(uuid.New())
	defer cancelOther()

	svc.Publish(userID, Event{Type: EventNotification, Message: "hola"})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case ev := <-ch:
			if ev.Type != EventNotification || ev.Message != "hola" {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatalf("expected event on stream")
		}
	}
	select {
	case ev := <-other:
		t.Fatalf("other user received %+v", ev)
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	svc := New(logger.Discard())
	userID := uuid.New()
	events, cancel := svc.Subscribe(userID)
	defer cancel()

	for i := 0; i < clientBuffer+5; i++ {
		svc.Publish(userID, Event{Type: EventJobStatusChanged})
	}
	if len(events) != clientBuffer {
		t.Fatalf("expected buffer to hold %d events, got %d", clientBuffer, len(events))
	}
}

func TestCancelRemovesStream(t *testing.T) {
	svc := New(logger.Discard())
	userID := uuid.New()
	events, cancel := svc.Subscribe(userID)

	if svc.Connected(userID) != 1 {
		t.Fatalf("expected one stream")
	}
	cancel()
	if svc.Connected(userID) != 0 {
		t.Fatalf("expected stream to be removed")
	}
	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel")
	}

	svc.Publish(userID, Event{Type: EventNotification})
}

func TestCloseThenCancelDoesNotPanic(t *testing.T) {
	svc := New(logger.Discard())
	_, cancel := svc.Subscribe(uuid.New())
	svc.Close()
	cancel()
}
