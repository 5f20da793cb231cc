package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/email"
	"hvac_dispatch_backend/internal/jobs/repository"
	photodomain "hvac_dispatch_backend/internal/photos/domain"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
)

type memRoute struct {
	id           uuid.UUID
	technicianID uuid.UUID
	date         time.Time
	published    bool
}

// memoryRepo mirrors the conditional writes of the pgx repository.
type memoryRepo struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*repository.Job
	photos   map[uuid.UUID][]photodomain.ReviewStatus
	routes   map[uuid.UUID]*memRoute
	notified map[string]bool
	metrics  []repository.TechnicianMetrics

	reverted int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		jobs:     make(map[uuid.UUID]*repository.Job),
		photos:   make(map[uuid.UUID][]photodomain.ReviewStatus),
		routes:   make(map[uuid.UUID]*memRoute),
		notified: make(map[string]bool),
	}
}

func (m *memoryRepo) addRoute(technicianID uuid.UUID, date time.Time, published bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.routes[id] = &memRoute{id: id, technicianID: technicianID, date: date, published: published}
	return id
}

func (m *memoryRepo) addJob(j repository.Job) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = "scheduled"
	}
	if r, ok := m.routes[j.RouteID]; ok {
		j.RouteDate = r.date
		j.TechnicianID = r.technicianID
	}
	m.jobs[j.ID] = &j
	return j.ID
}

func (m *memoryRepo) setPhotos(jobID uuid.UUID, statuses ...photodomain.ReviewStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[jobID] = statuses
}

func (m *memoryRepo) photoStatuses(jobID uuid.UUID) []photodomain.ReviewStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]photodomain.ReviewStatus(nil), m.photos[jobID]...)
}

func (m *memoryRepo) status(jobID uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[jobID].Status
}

func (m *memoryRepo) job(jobID uuid.UUID) repository.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[jobID]
}

func (m *memoryRepo) counts(jobID uuid.UUID) photodomain.ReviewCounts {
	var c photodomain.ReviewCounts
	for _, s := range m.photos[jobID] {
		switch s {
		case photodomain.StatusPending:
			c.Pending++
		case photodomain.StatusApproved:
			c.Approved++
		case photodomain.StatusRejected:
			c.Rejected++
		}
	}
	return c
}

func (m *memoryRepo) get(id uuid.UUID) (*repository.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, apperr.NotFound("job not found")
	}
	return j, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(id)
	if err != nil {
		return repository.Job{}, err
	}
	return *j, nil
}

func (m *memoryRepo) List(_ context.Context, f repository.ListFilter) ([]repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Job, 0)
	for _, j := range m.jobs {
		if f.TechnicianID != nil && j.TechnicianID != *f.TechnicianID {
			continue
		}
		if f.SupervisorID != nil && j.SupervisorID != *f.SupervisorID {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func (m *memoryRepo) CountPhotos(_ context.Context, jobID uuid.UUID) (photodomain.ReviewCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts(jobID), nil
}

func (m *memoryRepo) Transition(_ context.Context, p repository.TransitionParams) (repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(p.JobID)
	if err != nil {
		return repository.Job{}, err
	}
	if !contains(p.From, j.Status) {
		return repository.Job{}, apperr.InvalidState("job was modified concurrently")
	}
	c := m.counts(p.JobID)
	if p.RequirePhotos && c.Total() == 0 {
		return repository.Job{}, apperr.InvalidState("photo evidence no longer satisfies the transition")
	}
	if p.RequireApprovalGate && !c.Approvable() {
		return repository.Job{}, apperr.InvalidState("photo evidence no longer satisfies the transition")
	}

	j.Status = p.To
	if p.MarkStarted {
		now := time.Now()
		j.StartedAt = &now
	}
	if p.SupervisorNotes != nil {
		notes := *p.SupervisorNotes
		j.SupervisorNotes = &notes
	}
	if p.Cancel != nil {
		reason, by, now := p.Cancel.Reason, p.Cancel.By, time.Now()
		j.CancelReason, j.CancelledBy, j.CancelledAt = &reason, &by, &now
	}
	return *j, nil
}

func (m *memoryRepo) RejectAndResetPhotos(_ context.Context, jobID uuid.UUID, from, to string) (repository.Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(jobID)
	if err != nil {
		return repository.Job{}, 0, err
	}
	if j.Status != from {
		return repository.Job{}, 0, apperr.InvalidState("job was modified concurrently")
	}
	j.Status = to
	reset := 0
	for i, s := range m.photos[jobID] {
		if s == photodomain.StatusRejected {
			m.photos[jobID][i] = photodomain.StatusPending
			reset++
		}
	}
	return *j, reset, nil
}

func (m *memoryRepo) IssueReport(_ context.Context, jobID uuid.UUID, token string, expiresAt time.Time) (repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(jobID)
	if err != nil {
		return repository.Job{}, err
	}
	if j.Status != "approved" {
		return repository.Job{}, apperr.InvalidState("job is not approved")
	}
	now := time.Now()
	j.Status = "report_sent"
	j.ReportSent = true
	j.ReportSentAt = &now
	j.ReportToken = &token
	j.ReportTokenExpiresAt = &expiresAt
	return *j, nil
}

func (m *memoryRepo) RevertReport(ctx context.Context, jobID uuid.UUID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(jobID)
	if err != nil {
		return err
	}
	if j.Status != "report_sent" || j.ReportToken == nil || *j.ReportToken != token {
		return nil
	}
	j.Status = "approved"
	j.ReportSent = false
	j.ReportSentAt, j.ReportToken, j.ReportTokenExpiresAt = nil, nil, nil
	m.reverted++
	return nil
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, f repository.UpdateFields) (repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(id)
	if err != nil {
		return repository.Job{}, err
	}
	if j.Status == "report_sent" || j.Status == "cancelled" {
		return repository.Job{}, apperr.InvalidState("job can no longer be edited")
	}
	if f.ClientName != nil {
		j.ClientName = *f.ClientName
	}
	if f.ClientEmail != nil {
		j.ClientEmail = f.ClientEmail
	}
	if f.ClientPhone != nil {
		j.ClientPhone = f.ClientPhone
	}
	if f.Address != nil {
		j.Address = *f.Address
	}
	return *j, nil
}

func (m *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, err := m.get(id)
	if err != nil {
		return err
	}
	if j.Status != "scheduled" || len(m.photos[id]) > 0 {
		return apperr.InvalidState("only scheduled jobs without photos can be deleted")
	}
	delete(m.jobs, id)
	return nil
}

func (m *memoryRepo) nextOrder(routeID uuid.UUID) int {
	next := 1
	for _, j := range m.jobs {
		if j.RouteID == routeID && j.Status != "cancelled" && j.RouteOrder >= next {
			next = j.RouteOrder + 1
		}
	}
	return next
}

func (m *memoryRepo) InsertOnRoute(_ context.Context, nj repository.NewJob, allowPublished bool) (repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[nj.RouteID]
	if !ok {
		return repository.Job{}, apperr.NotFound("route not found")
	}
	if r.published && !allowPublished {
		return repository.Job{}, apperr.InvalidState("route is published")
	}
	j := &repository.Job{
		ID:           uuid.New(),
		RouteID:      r.id,
		RouteOrder:   m.nextOrder(r.id),
		RouteDate:    r.date,
		ClientName:   nj.ClientName,
		ClientEmail:  nj.ClientEmail,
		ClientPhone:  nj.ClientPhone,
		Address:      nj.Address,
		ServiceType:  nj.ServiceType,
		TechnicianID: r.technicianID,
		SupervisorID: nj.SupervisorID,
		Status:       "scheduled",
	}
	m.jobs[j.ID] = j
	return *j, nil
}

func (m *memoryRepo) MoveToRoute(_ context.Context, p repository.MoveParams) (repository.Job, repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[p.TargetRouteID]
	if !ok {
		return repository.Job{}, repository.Job{}, apperr.NotFound("route not found")
	}
	if r.published && !p.AllowPublished {
		return repository.Job{}, repository.Job{}, apperr.InvalidState("route is published")
	}
	j, err := m.get(p.JobID)
	if err != nil {
		return repository.Job{}, repository.Job{}, err
	}
	if j.Status != p.ExpectedStatus {
		return repository.Job{}, repository.Job{}, apperr.InvalidState("unexpected status")
	}
	if j.RouteID == r.id {
		return repository.Job{}, repository.Job{}, apperr.InvalidState("job is already on this route")
	}
	if p.RequireNoPhotos && len(m.photos[j.ID]) > 0 {
		return repository.Job{}, repository.Job{}, apperr.InvalidState("job already has photos")
	}
	before := *j
	j.RouteOrder = m.nextOrder(r.id)
	j.RouteID = r.id
	j.RouteDate = r.date
	j.TechnicianID = r.technicianID
	if p.SupervisorID != nil {
		j.SupervisorID = *p.SupervisorID
	}
	if p.ResetStatus {
		j.Status = "scheduled"
		j.StartedAt = nil
	}
	return before, *j, nil
}

func (m *memoryRepo) ListOverdue(_ context.Context, today, createdAfter time.Time, noticeType string) ([]repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Job, 0)
	for _, j := range m.jobs {
		if (j.Status == "scheduled" || j.Status == "in_progress") && j.RouteDate.Before(today) &&
			!j.CreatedAt.Before(createdAfter) && !m.notified[j.ID.String()+noticeType] {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListRunningLate(_ context.Context, now time.Time, noticeType string) ([]repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Job, 0)
	for _, j := range m.jobs {
		if j.Status != "in_progress" || j.StartedAt == nil || j.EstimatedTime == nil {
			continue
		}
		if j.StartedAt.Add(time.Duration(*j.EstimatedTime)*time.Minute).Before(now) && !m.notified[j.ID.String()+noticeType] {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memoryRepo) SupervisorMetrics(context.Context, uuid.UUID, time.Time, time.Time) ([]repository.TechnicianMetrics, error) {
	return m.metrics, nil
}

func (m *memoryRepo) markNotified(jobID uuid.UUID, t notices.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified[jobID.String()+string(t)] = true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// recordingNotifier keeps every delivered notice and marks monitor notices
// the way the stored notification row would.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notices.Notice
	repo    *memoryRepo
}

func (n *recordingNotifier) Notify(_ context.Context, notice notices.Notice) error {
	n.mu.Lock()
	n.notices = append(n.notices, notice)
	n.mu.Unlock()
	if n.repo != nil && notice.JobID != nil {
		n.repo.markNotified(*notice.JobID, notice.Type)
	}
	return nil
}

func (n *recordingNotifier) ofType(t notices.Type) []notices.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notices.Notice, 0)
	for _, x := range n.notices {
		if x.Type == t {
			out = append(out, x)
		}
	}
	return out
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []activity.NewEntry
}

func (a *recordingActivity) Record(_ context.Context, e activity.NewEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingActivity) ofType(t activity.Type) []activity.NewEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]activity.NewEntry, 0)
	for _, e := range a.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type stubSender struct {
	err    error
	sent   []string
	last   email.JobReport
	onSend func()
}

// SendJobReportEmail fails like the SMTP client does when ctx is done.
func (s *stubSender) SendJobReportEmail(ctx context.Context, to string, report email.JobReport) error {
	if s.onSend != nil {
		s.onSend()
	}
	if s.err != nil {
		return s.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sent = append(s.sent, to)
	s.last = report
	return nil
}

func (s *stubSender) SendCustomEmail(context.Context, string, string, string) error {
	return s.err
}

type stubDirectory struct {
	names       map[uuid.UUID]string
	dispatchers []uuid.UUID
}

func (d stubDirectory) DisplayName(_ context.Context, id uuid.UUID) (string, error) {
	if name, ok := d.names[id]; ok {
		return name, nil
	}
	return "", errors.New("unknown user")
}

func (d stubDirectory) DispatcherIDs(context.Context) ([]uuid.UUID, error) {
	return d.dispatchers, nil
}

type stubReportConfig struct{}

func (stubReportConfig) GetAppBaseURL() string            { return "https://dispatch.example.com" }
func (stubReportConfig) GetReportTokenTTL() time.Duration { return 30 * 24 * time.Hour }

// routeFinder finds or creates routes inside the memory repo.
type routeFinder struct {
	repo *memoryRepo
}

func (f routeFinder) FindOrCreateRoute(_ context.Context, technicianID uuid.UUID, date time.Time, _ uuid.UUID) (uuid.UUID, error) {
	f.repo.mu.Lock()
	for id, r := range f.repo.routes {
		if r.technicianID == technicianID && r.date.Equal(date) {
			f.repo.mu.Unlock()
			return id, nil
		}
	}
	f.repo.mu.Unlock()
	return f.repo.addRoute(technicianID, date, false), nil
}
