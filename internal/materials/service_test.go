package materials

import (
	"context"
	"testing"

	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryStore struct {
	items map[uuid.UUID]Material
}

func (m *memoryStore) AddMany(_ context.Context, jobID uuid.UUID, items []NewMaterial) ([]Material, error) {
	out := make([]Material, 0, len(items))
	for _, in := range items {
		mat := Material{ID: uuid.New(), JobID: jobID, Name: in.Name, Quantity: in.Quantity}
		m.items[mat.ID] = mat
		out = append(out, mat)
	}
	return out, nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (Material, error) {
	mat, ok := m.items[id]
	if !ok {
		return Material{}, apperr.NotFound("material not found")
	}
	return mat, nil
}

func (m *memoryStore) ListByJob(_ context.Context, jobID uuid.UUID) ([]Material, error) {
	var out []Material
	for _, mat := range m.items {
		if mat.JobID == jobID {
			out = append(out, mat)
		}
	}
	return out, nil
}

func (m *memoryStore) Update(_ context.Context, id uuid.UUID, ch Changes) (Material, error) {
	mat := m.items[id]
	if ch.Name != nil {
		mat.Name = *ch.Name
	}
	if ch.Quantity != nil {
		mat.Quantity = *ch.Quantity
	}
	if ch.Checked != nil {
		mat.Checked = *ch.Checked
	}
	m.items[id] = mat
	return mat, nil
}

func (m *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

type staticJobs map[uuid.UUID]JobRef

func (s staticJobs) GetJob(_ context.Context, id uuid.UUID) (JobRef, error) {
	j, ok := s[id]
	if !ok {
		return JobRef{}, apperr.NotFound("job not found")
	}
	return j, nil
}

func newTestService(status string) (*Service, uuid.UUID, access.Actor, access.Actor) {
	tech := access.Actor{ID: uuid.New(), Roles: []string{access.RoleTechnician}}
	sup := access.Actor{ID: uuid.New(), Roles: []string{access.RoleSupervisor}}
	jobID := uuid.New()
	jobs := staticJobs{jobID: {TechnicianID: tech.ID, SupervisorID: sup.ID, Status: status}}
	return NewService(&memoryStore{items: make(map[uuid.UUID]Material)}, jobs, logger.Discard()), jobID, tech, sup
}

func TestAddAndCheckMaterial(t *testing.T) {
	svc, jobID, tech, sup := newTestService("in_progress")
	ctx := context.Background()

	items, err := svc.Add(ctx, tech, jobID, AddMaterialsRequest{Items: []MaterialInput{
		{Name: " Gas R-410A ", Quantity: 2},
		{Name: "Filtro", Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Gas R-410A" {
		t.Fatalf("unexpected items %+v", items)
	}

	checked := true
	updated, err := svc.Update(ctx, tech, items[0].ID, UpdateMaterialRequest{Checked: &checked})
	if err != nil || !updated.Checked {
		t.Fatalf("update: %v %+v", err, updated)
	}

	list, err := svc.List(ctx, sup, jobID)
	if err != nil || len(list) != 2 {
		t.Fatalf("supervisor list: %v %d", err, len(list))
	}
	if _, err := svc.Add(ctx, sup, jobID, AddMaterialsRequest{Items: []MaterialInput{{Name: "x", Quantity: 1}}}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("supervisors only read the checklist, got %v", err)
	}
}

func TestMaterialsLockedAfterApproval(t *testing.T) {
	for _, status := range []string{"approved", "report_sent", "cancelled"} {
		t.Run(status, func(t *testing.T) {
			svc, jobID, tech, _ := newTestService(status)
			_, err := svc.Add(context.Background(), tech, jobID, AddMaterialsRequest{Items: []MaterialInput{{Name: "Cinta", Quantity: 1}}})
			if !apperr.Is(err, apperr.KindInvalidState) {
				t.Fatalf("expected invalid state, got %v", err)
			}
		})
	}
}

func TestAddValidatesLines(t *testing.T) {
	svc, jobID, tech, _ := newTestService("scheduled")
	cases := [][]MaterialInput{
		nil,
		{{Name: "  ", Quantity: 1}},
		{{Name: "Tubo", Quantity: 0}},
	}
	for _, items := range cases {
		if _, err := svc.Add(context.Background(), tech, jobID, AddMaterialsRequest{Items: items}); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %+v, got %v", items, err)
		}
	}
}

func TestDeleteUnknownMaterial(t *testing.T) {
	svc, _, tech, _ := newTestService("scheduled")
	if err := svc.Delete(context.Background(), tech, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
