package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

var errMissingKind = errors.New("audit event has no kind")

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewAuditService returns an AuditService implementation.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log, now: time.Now}
}

// Record stamps and persists a single audit event.
func (s *auditService) Record(ctx context.Context, event domain.AuthEvent) error {
	if event.Kind == "" {
		return errMissingKind
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	s.log.Debug().
		Str("kind", string(event.Kind)).
		Str("session_id", event.SessionID).
		Str("user_id", event.UserID).
		Str("path", event.Path).
		Msg("audit event recorded")

	return nil
}
