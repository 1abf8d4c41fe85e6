package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurefundi/portal/internal/core/domain"
)

type stubAuditRepo struct {
	events []domain.AuthEvent
	err    error
}

func (r *stubAuditRepo) InsertEvent(_ context.Context, e *domain.AuthEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *e)
	return nil
}

func TestAuditService_RecordStampsTimestamp(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop()).(*auditService)
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	err := svc.Record(context.Background(), domain.AuthEvent{Kind: domain.EventLogin, SessionID: "s-1"})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	if !repo.events[0].Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, repo.events[0].Timestamp)
	}
}

func TestAuditService_KeepsExistingTimestamp(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())
	at := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)

	if err := svc.Record(context.Background(), domain.AuthEvent{Kind: domain.EventLogout, Timestamp: at}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if !repo.events[0].Timestamp.Equal(at) {
		t.Fatalf("timestamp overwritten: %v", repo.events[0].Timestamp)
	}
}

func TestAuditService_Errors(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	if err := svc.Record(context.Background(), domain.AuthEvent{}); err == nil {
		t.Fatalf("expected error for missing kind")
	}

	repo.err = errors.New("mongo unavailable")
	err := svc.Record(context.Background(), domain.AuthEvent{Kind: domain.EventLogin})
	if !errors.Is(err, repo.err) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}
