package activity

import (
	"context"
	"errors"
	"testing"

	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryStore struct {
	entries []NewEntry
	failAll bool
}

func (m *memoryStore) Append(_ context.Context, e NewEntry) error {
	if m.failAll {
		return errors.New("insert failed")
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryStore) ListByJob(_ context.Context, jobID uuid.UUID) ([]Entry, error) {
	out := make([]Entry, 0)
	for _, e := range m.entries {
		if e.JobID == jobID {
			out = append(out, Entry{JobID: e.JobID, Action: e.Action, Type: e.Type, PerformedBy: e.PerformedBy})
		}
	}
	return out, nil
}

type staticParticipants struct {
	technicianID uuid.UUID
	supervisorID uuid.UUID
}

func (s staticParticipants) Participants(context.Context, uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	return s.technicianID, s.supervisorID, nil
}

func TestAddNoteRequiresParticipant(t *testing.T) {
	techID, supID := uuid.New(), uuid.New()
	store := &memoryStore{}
	svc := NewService(store, staticParticipants{technicianID: techID, supervisorID: supID}, logger.Discard())
	jobID := uuid.New()

	outsider := access.Actor{ID: uuid.New(), Roles: []string{access.RoleTechnician}}
	if err := svc.AddNote(context.Background(), outsider, jobID, "hola"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}

	supervisor := access.Actor{ID: supID, Roles: []string{access.RoleSupervisor}}
	if err := svc.AddNote(context.Background(), supervisor, jobID, "  <b>Revisar</b> compresor "); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if len(store.entries) != 1 || store.entries[0].Action != "Revisar compresor" || store.entries[0].Type != TypeNote {
		t.Fatalf("unexpected entries %+v", store.entries)
	}
}

func TestAddNoteRejectsBlankText(t *testing.T) {
	svc := NewService(&memoryStore{}, staticParticipants{}, logger.Discard())
	ops := access.Actor{ID: uuid.New(), Roles: []string{access.RoleOperations}}

	if err := svc.AddNote(context.Background(), ops, uuid.New(), "<p> </p>"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	svc := NewService(&memoryStore{failAll: true}, staticParticipants{}, logger.Discard())
	svc.Record(context.Background(), NewEntry{JobID: uuid.New(), Action: "x", Type: TypeStatusChange})
}
