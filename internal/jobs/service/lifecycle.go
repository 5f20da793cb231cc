package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/email"
	"hvac_dispatch_backend/internal/jobs/domain"
	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	maxReasonLength   = 1000
	maxNotesLength    = 2000
	reportSendTimeout = 30 * time.Second
)

// authorize loads the job and checks who may fire t from its current status.
// Permission is checked before state so outsiders learn nothing about the job.
func (s *Service) authorize(ctx context.Context, actor access.Actor, jobID uuid.UUID, t domain.Transition) (repository.Job, domain.Rule, error) {
	rule, ok := domain.RuleFor(t)
	if !ok {
		return repository.Job{}, domain.Rule{}, apperr.Internal(fmt.Sprintf("unknown transition %q", t))
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return repository.Job{}, domain.Rule{}, err
	}
	if !rule.Permits(actor, owners(job)) {
		return repository.Job{}, domain.Rule{}, apperr.Forbidden(fmt.Sprintf("not allowed to %s this job", t))
	}
	if !rule.Allows(domain.Status(job.Status)) {
		return repository.Job{}, domain.Rule{}, apperr.InvalidState(fmt.Sprintf("cannot %s a job that is %s", t, job.Status)).
			WithDetails(map[string]string{"status": job.Status})
	}
	return job, rule, nil
}

func fromStrings(rule domain.Rule) []string {
	out := make([]string, len(rule.From))
	for i, st := range rule.From {
		out[i] = string(st)
	}
	return out
}

// Start moves a scheduled job to in_progress and stamps started_at.
func (s *Service) Start(ctx context.Context, actor access.Actor, jobID uuid.UUID) (*transport.JobResponse, error) {
	job, rule, err := s.authorize(ctx, actor, jobID, domain.TransitionStart)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Transition(ctx, repository.TransitionParams{
		JobID:       jobID,
		From:        fromStrings(rule),
		To:          string(rule.To),
		MarkStarted: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, job.Status, updated, "Trabajo iniciado", nil)
	resp := toResponse(updated)
	return &resp, nil
}

// Complete submits the job for supervisor review. It requires at least one
// photo; the same condition is enforced again inside the write.
func (s *Service) Complete(ctx context.Context, actor access.Actor, jobID uuid.UUID) (*transport.JobResponse, error) {
	job, rule, err := s.authorize(ctx, actor, jobID, domain.TransitionComplete)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountPhotos(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if counts.Total() == 0 {
		return nil, apperr.InvalidState("at least one photo is required to complete the job")
	}

	updated, err := s.repo.Transition(ctx, repository.TransitionParams{
		JobID:         jobID,
		From:          fromStrings(rule),
		To:            string(rule.To),
		RequirePhotos: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, job.Status, updated, "Trabajo enviado a revisión", map[string]any{"photos": counts.Total()})
	s.notify(ctx, notices.Notice{
		UserID:  updated.SupervisorID,
		Type:    notices.JobReadyForReview,
		Title:   "Trabajo listo para revisión",
		Message: fmt.Sprintf("%s - %s tiene %d foto(s) por revisar.", updated.ClientName, serviceLabel(updated.ServiceType), counts.Total()),
		JobID:   jobRef(updated.ID),
	})

	resp := toResponse(updated)
	return &resp, nil
}

// Approve accepts the work when every photo is approved and none is pending
// or rejected.
func (s *Service) Approve(ctx context.Context, actor access.Actor, jobID uuid.UUID, req transport.ApproveJobRequest) (*transport.JobResponse, error) {
	notes := sanitize.TextPtr(req.Notes)
	if notes != nil && len(*notes) > maxNotesLength {
		return nil, apperr.Validation("notes are too long")
	}

	job, rule, err := s.authorize(ctx, actor, jobID, domain.TransitionApprove)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountPhotos(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !counts.Approvable() {
		return nil, apperr.InvalidState(counts.Blocker()).WithDetails(counts)
	}

	updated, err := s.repo.Transition(ctx, repository.TransitionParams{
		JobID:               jobID,
		From:                fromStrings(rule),
		To:                  string(rule.To),
		SupervisorNotes:     notes,
		RequireApprovalGate: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, job.Status, updated, "Trabajo aprobado", nil)
	s.notify(ctx, notices.Notice{
		UserID:  updated.TechnicianID,
		Type:    notices.JobApproved,
		Title:   "Trabajo aprobado",
		Message: fmt.Sprintf("Tu trabajo en %s fue aprobado.", updated.ClientName),
		JobID:   jobRef(updated.ID),
	})

	resp := toResponse(updated)
	return &resp, nil
}

// Reject sends the job back to the technician. Rejected photos return to
// pending in the same transaction so they can be reviewed again.
func (s *Service) Reject(ctx context.Context, actor access.Actor, jobID uuid.UUID, req transport.ReasonRequest) (*transport.JobResponse, error) {
	reason, err := requireReason(req.Reason)
	if err != nil {
		return nil, err
	}

	job, rule, err := s.authorize(ctx, actor, jobID, domain.TransitionReject)
	if err != nil {
		return nil, err
	}

	updated, reset, err := s.repo.RejectAndResetPhotos(ctx, jobID, string(rule.Source()), string(rule.To))
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, job.Status, updated, "Trabajo rechazado: "+reason, map[string]any{
		"reason":      reason,
		"photosReset": reset,
	})
	s.notify(ctx, notices.Notice{
		UserID:  updated.TechnicianID,
		Type:    notices.JobRejected,
		Title:   "Trabajo rechazado",
		Message: fmt.Sprintf("%s: %s", updated.ClientName, reason),
		JobID:   jobRef(updated.ID),
	})

	resp := toResponse(updated)
	return &resp, nil
}

// SendReport issues a fresh report link and emails it to the client. The
// state change is persisted first and reverted if delivery fails.
func (s *Service) SendReport(ctx context.Context, actor access.Actor, jobID uuid.UUID) (*transport.SendReportResponse, error) {
	job, _, err := s.authorize(ctx, actor, jobID, domain.TransitionSendReport)
	if err != nil {
		return nil, err
	}
	if job.ClientEmail == nil || *job.ClientEmail == "" {
		return nil, apperr.Validation("client email is required to send the report")
	}
	recipient := *job.ClientEmail

	reportToken, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report token: %w", err)
	}
	expiresAt := s.now().Add(s.reportCfg.GetReportTokenTTL())

	updated, err := s.repo.IssueReport(ctx, jobID, reportToken, expiresAt)
	if err != nil {
		return nil, err
	}

	// Once the status is flipped the send and the revert must finish even if
	// the caller goes away, or the job would stay report_sent without an email.
	detached := context.WithoutCancel(ctx)

	reportURL := s.reportCfg.GetAppBaseURL() + "/api/reports/" + reportToken
	sendCtx, cancel := context.WithTimeout(detached, reportSendTimeout)
	sendErr := s.sender.SendJobReportEmail(sendCtx, recipient, email.JobReport{
		ClientName:     updated.ClientName,
		ServiceLabel:   serviceLabel(updated.ServiceType),
		Address:        updated.Address,
		TechnicianName: s.displayName(detached, updated.TechnicianID),
		ReportURL:      reportURL,
		ExpiresOn:      shortDate(expiresAt),
	})
	cancel()
	if sendErr != nil {
		if err := s.repo.RevertReport(detached, jobID, reportToken); err != nil {
			s.log.Error("failed to revert report after email failure", "error", err, "jobId", jobID)
			return nil, apperr.Dependency("failed to send report email and the job could not be restored to approved", errors.Join(sendErr, err))
		}
		return nil, apperr.Dependency("failed to send report email; the job is still approved", sendErr)
	}

	s.record(ctx, activity.NewEntry{
		JobID:       updated.ID,
		Action:      "Reporte enviado a " + recipient,
		Type:        activity.TypeReport,
		Details:     map[string]any{"to": recipient, "expiresAt": expiresAt},
		PerformedBy: actor.ID,
	})
	s.publishStatusChange(ctx, updated, job.Status, actor.ID)
	s.notify(ctx, notices.Notice{
		UserID:  updated.TechnicianID,
		Type:    notices.ReportSent,
		Title:   "Reporte enviado",
		Message: fmt.Sprintf("El reporte de %s fue enviado al cliente.", updated.ClientName),
		JobID:   jobRef(updated.ID),
	})

	return &transport.SendReportResponse{
		Job:       toResponse(updated),
		ReportURL: reportURL,
		SentTo:    recipient,
	}, nil
}

// Cancel stops a job that has not reached review.
func (s *Service) Cancel(ctx context.Context, actor access.Actor, jobID uuid.UUID, req transport.ReasonRequest) (*transport.JobResponse, error) {
	reason, err := requireReason(req.Reason)
	if err != nil {
		return nil, err
	}

	job, rule, err := s.authorize(ctx, actor, jobID, domain.TransitionCancel)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Transition(ctx, repository.TransitionParams{
		JobID:  jobID,
		From:   fromStrings(rule),
		To:     string(rule.To),
		Cancel: &repository.CancelInfo{Reason: reason, By: actor.ID},
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.NewEntry{
		JobID:       updated.ID,
		Action:      "Trabajo cancelado: " + reason,
		Type:        activity.TypeCancellation,
		Details:     map[string]any{"from": job.Status, "reason": reason},
		PerformedBy: actor.ID,
	})
	s.publishStatusChange(ctx, updated, job.Status, actor.ID)

	message := fmt.Sprintf("El trabajo de %s fue cancelado: %s", updated.ClientName, reason)
	for _, userID := range []uuid.UUID{updated.TechnicianID, updated.SupervisorID} {
		s.notify(ctx, notices.Notice{
			UserID:  userID,
			Type:    notices.JobCancelled,
			Title:   "Trabajo cancelado",
			Message: message,
			JobID:   jobRef(updated.ID),
		})
	}

	resp := toResponse(updated)
	return &resp, nil
}

// afterTransition runs the post-commit effects shared by status changes.
func (s *Service) afterTransition(ctx context.Context, actor access.Actor, from string, job repository.Job, action string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["from"] = from
	details["to"] = job.Status

	s.record(ctx, activity.NewEntry{
		JobID:       job.ID,
		Action:      action,
		Type:        activity.TypeStatusChange,
		Details:     details,
		PerformedBy: actor.ID,
	})
	s.publishStatusChange(ctx, job, from, actor.ID)
}

func requireReason(raw string) (string, error) {
	reason := sanitize.Text(raw)
	if reason == "" {
		return "", apperr.Validation("reason is required")
	}
	if len(reason) > maxReasonLength {
		return "", apperr.Validation("reason is too long")
	}
	return reason, nil
}
