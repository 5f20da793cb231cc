package inapp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hvac_dispatch_backend/internal/notification/sse"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

// ListLimit caps how many notifications a list call returns.
const ListLimit = 50

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n notices.Notice) (Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// PreferenceStore reads and writes the per-user mute map.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (notices.Preferences, error)
	SetPreferences(ctx context.Context, userID uuid.UUID, prefs notices.Preferences) error
}

// Pusher delivers live events to connected clients.
type Pusher interface {
	Publish(userID uuid.UUID, event sse.Event)
}

// Service persists notifications the recipient has not muted and pushes
// them to their open streams.
type Service struct {
	repo  Store
	prefs PreferenceStore
	push  Pusher
	log   *logger.Logger
}

func NewService(repo Store, prefs PreferenceStore, push Pusher, log *logger.Logger) *Service {
	return &Service{repo: repo, prefs: prefs, push: push, log: log}
}

// Notify implements notices.Notifier.
func (s *Service) Notify(ctx context.Context, n notices.Notice) error {
	if n.UserID == uuid.Nil {
		return apperr.Validation("notification recipient is required")
	}
	if !notices.IsKnown(n.Type) {
		return apperr.Validation(fmt.Sprintf("unknown notification type %q", n.Type))
	}

	prefs, err := s.prefs.GetPreferences(ctx, n.UserID)
	if err != nil {
		return err
	}
	if !prefs.Enabled(n.Type) {
		s.log.Debug("notification muted by recipient", "userId", n.UserID, "type", n.Type)
		return nil
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		s.log.Error("failed to persist notification", "error", err, "userId", n.UserID, "type", n.Type)
		return err
	}

	if s.push != nil {
		s.push.Publish(n.UserID, sse.Event{
			Type:    sse.EventNotification,
			JobID:   n.JobID,
			Message: n.Title,
			Data:    created,
		})
	}
	return nil
}

// List returns the newest notifications of a user, capped at ListLimit.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	return s.repo.List(ctx, userID, limit)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Preferences returns the full preference map: every known type with its
// effective value.
func (s *Service) Preferences(ctx context.Context, userID uuid.UUID) (map[notices.Type]bool, error) {
	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	return effective(prefs), nil
}

// UpdatePreferences merges changes into the stored map. Unknown types are
// rejected as a whole.
func (s *Service) UpdatePreferences(ctx context.Context, userID uuid.UUID, changes map[string]bool) (map[notices.Type]bool, error) {
	var unknown []string
	for key := range changes {
		if !notices.IsKnown(notices.Type(key)) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperr.Validation("unknown notification types: " + strings.Join(unknown, ", ")).
			WithDetails(map[string][]string{"unknownTypes": unknown})
	}

	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = notices.Preferences{}
	}
	for key, enabled := range changes {
		prefs[notices.Type(key)] = enabled
	}
	if err := s.prefs.SetPreferences(ctx, userID, prefs); err != nil {
		return nil, err
	}
	s.log.Info("notification preferences updated", "userId", userID, "changes", len(changes))
	return effective(prefs), nil
}

func effective(prefs notices.Preferences) map[notices.Type]bool {
	out := make(map[notices.Type]bool, len(notices.All()))
	for _, t := range notices.All() {
		out[t] = prefs.Enabled(t)
	}
	return out
}

var _ notices.Notifier = (*Service)(nil)
