package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/events"
	"hvac_dispatch_backend/internal/jobs/domain"
	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/jobs/transport"
	photodomain "hvac_dispatch_backend/internal/photos/domain"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 3, 12, 10, 30, 0, 0, time.UTC) // Thursday

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	notifier *recordingNotifier
	activity *recordingActivity
	sender   *stubSender
	bus      *events.InMemoryBus

	tech    access.Actor
	sup     access.Actor
	ops     access.Actor
	routeID uuid.UUID
	jobID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newMemoryRepo()
	f := &fixture{
		repo:     repo,
		notifier: &recordingNotifier{repo: repo},
		activity: &recordingActivity{},
		sender:   &stubSender{},
		bus:      events.NewInMemoryBus(logger.Discard()),
		tech:     access.Actor{ID: uuid.New(), Roles: []string{access.RoleTechnician}},
		sup:      access.Actor{ID: uuid.New(), Roles: []string{access.RoleSupervisor}},
		ops:      access.Actor{ID: uuid.New(), Roles: []string{access.RoleOperations}},
	}

	f.routeID = repo.addRoute(f.tech.ID, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), false)
	f.jobID = repo.addJob(repository.Job{
		RouteID:      f.routeID,
		RouteOrder:   1,
		ClientName:   "Ana López",
		Address:      "Av. Reforma 100",
		ServiceType:  "maintenance",
		SupervisorID: f.sup.ID,
		CreatedAt:    fixedNow.Add(-48 * time.Hour),
	})

	f.svc = New(Deps{
		Repo:     repo,
		Activity: f.activity,
		Notifier: f.notifier,
		Directory: stubDirectory{
			names:       map[uuid.UUID]string{f.tech.ID: "Luis Pérez"},
			dispatchers: []uuid.UUID{f.ops.ID},
		},
		Sender:      f.sender,
		Bus:         f.bus,
		ReportCfg:   stubReportConfig{},
		PhoneRegion: "MX",
		Log:         logger.Discard(),
	})
	f.svc.SetRouteFinder(routeFinder{repo: repo})
	f.svc.SetClock(func() time.Time { return fixedNow })
	f.svc.newToken = func() (string, error) { return "report-token", nil }
	return f
}

func (f *fixture) setStatus(status domain.Status) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	f.repo.jobs[f.jobID].Status = string(status)
}

func (f *fixture) setClientEmail(address string) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	f.repo.jobs[f.jobID].ClientEmail = &address
}

func TestJobLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, f.tech, f.jobID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := f.repo.status(f.jobID); got != "in_progress" {
		t.Fatalf("expected in_progress, got %s", got)
	}
	if f.repo.job(f.jobID).StartedAt == nil {
		t.Fatalf("expected started_at to be stamped")
	}

	if _, err := f.svc.Complete(ctx, f.tech, f.jobID); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state when completing without photos, got %v", err)
	}

	f.repo.setPhotos(f.jobID, photodomain.StatusPending)
	if _, err := f.svc.Complete(ctx, f.tech, f.jobID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	ready := f.notifier.ofType(notices.JobReadyForReview)
	if len(ready) != 1 || ready[0].UserID != f.sup.ID {
		t.Fatalf("expected supervisor to be notified once, got %+v", ready)
	}

	if _, err := f.svc.Approve(ctx, f.sup, f.jobID, transport.ApproveJobRequest{}); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state with a pending photo, got %v", err)
	}
	if got := f.repo.status(f.jobID); got != "supervisor_review" {
		t.Fatalf("failed approval changed status to %s", got)
	}

	f.repo.setPhotos(f.jobID, photodomain.StatusApproved)
	notes := "  Equipo en buen estado "
	approved, err := f.svc.Approve(ctx, f.sup, f.jobID, transport.ApproveJobRequest{Notes: &notes})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != "approved" || approved.SupervisorNotes == nil || *approved.SupervisorNotes != "Equipo en buen estado" {
		t.Fatalf("unexpected approved job %+v", approved)
	}

	if _, err := f.svc.SendReport(ctx, f.sup, f.jobID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without client email, got %v", err)
	}

	f.setClientEmail("ana@example.com")
	sent, err := f.svc.SendReport(ctx, f.sup, f.jobID)
	if err != nil {
		t.Fatalf("SendReport: %v", err)
	}
	if sent.Job.Status != "report_sent" || !sent.Job.ReportSent {
		t.Fatalf("unexpected job after report %+v", sent.Job)
	}
	if sent.ReportURL != "https://dispatch.example.com/api/reports/report-token" {
		t.Fatalf("unexpected report url %q", sent.ReportURL)
	}
	if f.sender.last.TechnicianName != "Luis Pérez" || f.sender.last.ServiceLabel != "Mantenimiento" {
		t.Fatalf("unexpected email payload %+v", f.sender.last)
	}
	stored := f.repo.job(f.jobID)
	if stored.ReportToken == nil || *stored.ReportToken != "report-token" {
		t.Fatalf("expected report token to be stored")
	}
	if !stored.ReportTokenExpiresAt.Equal(fixedNow.Add(30 * 24 * time.Hour)) {
		t.Fatalf("unexpected token expiry %v", stored.ReportTokenExpiresAt)
	}
	reports := f.activity.ofType(activity.TypeReport)
	if len(reports) != 1 || reports[0].Details["to"] != "ana@example.com" {
		t.Fatalf("expected report activity with recipient, got %+v", reports)
	}
}

func TestTransitionFromWrongStatusLeavesStatusUnchanged(t *testing.T) {
	all := []domain.Status{
		domain.StatusScheduled, domain.StatusInProgress, domain.StatusSupervisorReview,
		domain.StatusApproved, domain.StatusReportSent, domain.StatusCancelled,
	}
	transitions := []domain.Transition{
		domain.TransitionStart, domain.TransitionComplete, domain.TransitionApprove,
		domain.TransitionReject, domain.TransitionSendReport, domain.TransitionCancel,
	}

	for _, tr := range transitions {
		rule, _ := domain.RuleFor(tr)
		for _, status := range all {
			if rule.Allows(status) {
				continue
			}
			t.Run(string(tr)+"_from_"+string(status), func(t *testing.T) {
				f := newFixture(t)
				f.setStatus(status)
				f.setClientEmail("ana@example.com")
				f.repo.setPhotos(f.jobID, photodomain.StatusApproved)

				err := runTransition(f, tr)
				if !apperr.Is(err, apperr.KindInvalidState) {
					t.Fatalf("expected invalid state, got %v", err)
				}
				if got := f.repo.status(f.jobID); got != string(status) {
					t.Fatalf("status changed from %s to %s", status, got)
				}
			})
		}
	}
}

func runTransition(f *fixture, tr domain.Transition) error {
	ctx := context.Background()
	var err error
	switch tr {
	case domain.TransitionStart:
		_, err = f.svc.Start(ctx, f.tech, f.jobID)
	case domain.TransitionComplete:
		_, err = f.svc.Complete(ctx, f.tech, f.jobID)
	case domain.TransitionApprove:
		_, err = f.svc.Approve(ctx, f.sup, f.jobID, transport.ApproveJobRequest{})
	case domain.TransitionReject:
		_, err = f.svc.Reject(ctx, f.sup, f.jobID, transport.ReasonRequest{Reason: "Falta foto de placa"})
	case domain.TransitionSendReport:
		_, err = f.svc.SendReport(ctx, f.sup, f.jobID)
	case domain.TransitionCancel:
		_, err = f.svc.Cancel(ctx, f.ops, f.jobID, transport.ReasonRequest{Reason: "Cliente canceló"})
	}
	return err
}

func TestSecondTransitionFailsWithInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, f.tech, f.jobID); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err := f.svc.Start(ctx, f.tech, f.jobID)
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state on repeat, got %v", err)
	}
	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected *apperr.Error")
	}
	details, ok := domainErr.Details.(map[string]string)
	if !ok || details["status"] != "in_progress" {
		t.Fatalf("expected current status in details, got %#v", domainErr.Details)
	}
}

func TestApproveGateOverPhotoCombinations(t *testing.T) {
	statuses := []photodomain.ReviewStatus{photodomain.StatusPending, photodomain.StatusApproved, photodomain.StatusRejected}

	var combos [][]photodomain.ReviewStatus
	combos = append(combos, nil)
	for _, a := range statuses {
		combos = append(combos, []photodomain.ReviewStatus{a})
		for _, b := range statuses {
			combos = append(combos, []photodomain.ReviewStatus{a, b})
			for _, c := range statuses {
				combos = append(combos, []photodomain.ReviewStatus{a, b, c})
			}
		}
	}

	for _, combo := range combos {
		f := newFixture(t)
		f.setStatus(domain.StatusSupervisorReview)
		f.repo.setPhotos(f.jobID, combo...)
		gate := f.repo.counts(f.jobID).Approvable()

		_, err := f.svc.Approve(context.Background(), f.sup, f.jobID, transport.ApproveJobRequest{})
		switch {
		case gate && err != nil:
			t.Fatalf("photos %v: expected approval, got %v", combo, err)
		case !gate && !apperr.Is(err, apperr.KindInvalidState):
			t.Fatalf("photos %v: expected invalid state, got %v", combo, err)
		case !gate && f.repo.status(f.jobID) != "supervisor_review":
			t.Fatalf("photos %v: status changed to %s", combo, f.repo.status(f.jobID))
		}
	}
}

func TestRejectResetsOnlyRejectedPhotos(t *testing.T) {
	f := newFixture(t)
	f.setStatus(domain.StatusSupervisorReview)
	f.repo.setPhotos(f.jobID,
		photodomain.StatusApproved,
		photodomain.StatusRejected,
		photodomain.StatusPending,
		photodomain.StatusRejected,
	)

	job, err := f.svc.Reject(context.Background(), f.sup, f.jobID, transport.ReasonRequest{Reason: " Fotos borrosas "})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if job.Status != "in_progress" {
		t.Fatalf("expected in_progress, got %s", job.Status)
	}

	got := f.repo.photoStatuses(f.jobID)
	want := []photodomain.ReviewStatus{
		photodomain.StatusApproved,
		photodomain.StatusPending,
		photodomain.StatusPending,
		photodomain.StatusPending,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("photo %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	rejected := f.notifier.ofType(notices.JobRejected)
	if len(rejected) != 1 || rejected[0].UserID != f.tech.ID || rejected[0].Message != "Ana López: Fotos borrosas" {
		t.Fatalf("unexpected rejection notices %+v", rejected)
	}
	changes := f.activity.ofType(activity.TypeStatusChange)
	if len(changes) != 1 || changes[0].Details["photosReset"] != 2 {
		t.Fatalf("unexpected activity %+v", changes)
	}
}

func TestRejectRequiresReasonBeforeLookup(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reject(context.Background(), f.sup, uuid.New(), transport.ReasonRequest{Reason: "   "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendReportRevertsWhenEmailFails(t *testing.T) {
	f := newFixture(t)
	f.setStatus(domain.StatusApproved)
	f.setClientEmail("ana@example.com")
	f.sender.err = errors.New("smtp: connection refused")

	_, err := f.svc.SendReport(context.Background(), f.sup, f.jobID)
	if !apperr.Is(err, apperr.KindDependency) {
		t.Fatalf("expected dependency failure, got %v", err)
	}

	job := f.repo.job(f.jobID)
	if job.Status != "approved" || job.ReportSent || job.ReportToken != nil {
		t.Fatalf("expected report to be reverted, got %+v", job)
	}
	if f.repo.reverted != 1 {
		t.Fatalf("expected one revert, got %d", f.repo.reverted)
	}
	if len(f.notifier.ofType(notices.ReportSent)) != 0 {
		t.Fatalf("expected no report notification after failure")
	}

	f.sender.err = nil
	if _, err := f.svc.SendReport(context.Background(), f.sup, f.jobID); err != nil {
		t.Fatalf("retry SendReport: %v", err)
	}
	if f.repo.status(f.jobID) != "report_sent" {
		t.Fatalf("expected report_sent after retry")
	}
}

func TestSendReportRevertsWhenCallerCancelsDuringSend(t *testing.T) {
	f := newFixture(t)
	f.setStatus(domain.StatusApproved)
	f.setClientEmail("ana@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sender.onSend = cancel
	f.sender.err = errors.New("smtp: connection reset")

	_, err := f.svc.SendReport(ctx, f.sup, f.jobID)
	if !apperr.Is(err, apperr.KindDependency) {
		t.Fatalf("expected dependency failure, got %v", err)
	}
	job := f.repo.job(f.jobID)
	if job.Status != "approved" || job.ReportSent || job.ReportToken != nil {
		t.Fatalf("expected the job back at approved, got status=%s reportSent=%v", job.Status, job.ReportSent)
	}
	if f.repo.reverted != 1 {
		t.Fatalf("expected one revert, got %d", f.repo.reverted)
	}
}

func TestSendReportDeliveryOutlivesCallerCancel(t *testing.T) {
	f := newFixture(t)
	f.setStatus(domain.StatusApproved)
	f.setClientEmail("ana@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sender.onSend = cancel

	if _, err := f.svc.SendReport(ctx, f.sup, f.jobID); err != nil {
		t.Fatalf("SendReport: %v", err)
	}
	if len(f.sender.sent) != 1 || f.repo.status(f.jobID) != "report_sent" {
		t.Fatalf("expected the email to go out and the job to stay report_sent")
	}
}

func TestOwnershipIsCheckedBeforeState(t *testing.T) {
	f := newFixture(t)
	f.setStatus(domain.StatusApproved)
	ctx := context.Background()

	otherTech := access.Actor{ID: uuid.New(), Roles: []string{access.RoleTechnician}}
	if _, err := f.svc.Start(ctx, otherTech, f.jobID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for another technician, got %v", err)
	}

	otherSup := access.Actor{ID: uuid.New(), Roles: []string{access.RoleSupervisor}}
	if _, err := f.svc.SendReport(ctx, otherSup, f.jobID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for another supervisor, got %v", err)
	}

	if _, err := f.svc.Cancel(ctx, f.tech, f.jobID, transport.ReasonRequest{Reason: "x"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected technicians to be unable to cancel, got %v", err)
	}

	if _, err := f.svc.Start(ctx, f.tech, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelRecordsReasonAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.setStatus(domain.StatusInProgress)

	job, err := f.svc.Cancel(context.Background(), f.ops, f.jobID, transport.ReasonRequest{Reason: "Cliente no estaba"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if job.Status != "cancelled" || job.CancelReason == nil || *job.CancelReason != "Cliente no estaba" {
		t.Fatalf("unexpected cancelled job %+v", job)
	}
	if job.CancelledBy == nil || *job.CancelledBy != f.ops.ID {
		t.Fatalf("expected cancelling actor to be stored")
	}

	cancelled := f.notifier.ofType(notices.JobCancelled)
	if len(cancelled) != 2 || cancelled[0].UserID != f.tech.ID {
		t.Fatalf("expected technician and supervisor notices, got %+v", cancelled)
	}
	if len(f.activity.ofType(activity.TypeCancellation)) != 1 {
		t.Fatalf("expected cancellation activity")
	}
}

func TestStatusChangesArePublished(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var seen []events.JobStatusChanged
	f.bus.Subscribe(events.JobStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.(events.JobStatusChanged))
		return nil
	}))

	if _, err := f.svc.Start(context.Background(), f.tech, f.jobID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Fatalf("expected one event, got %d", len(seen))
	}
	if seen[0].OldStatus != "scheduled" || seen[0].NewStatus != "in_progress" || seen[0].ActorID != f.tech.ID {
		t.Fatalf("unexpected event %+v", seen[0])
	}
}
