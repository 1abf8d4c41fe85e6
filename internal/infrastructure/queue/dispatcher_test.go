package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurefundi/portal/internal/core/domain"
)

type recordingService struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	err    error
	block  chan struct{}
}

func (s *recordingService) Record(_ context.Context, e domain.AuthEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingService) snapshot() []domain.AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuthEvent(nil), s.events...)
}

func TestDispatcher_PreservesPerSessionOrder(t *testing.T) {
	svc := &recordingService{}
	d := NewDispatcher(3, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	kinds := []domain.AuthEventKind{domain.EventLogin, domain.EventProfileUpdate, domain.EventLogout}
	for _, k := range kinds {
		d.Enqueue(domain.AuthEvent{Kind: k, SessionID: "sid-42"})
		d.Enqueue(domain.AuthEvent{Kind: k, SessionID: "other"})
	}

	require.Eventually(t, func() bool { return len(svc.snapshot()) == 6 }, time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()

	var got []domain.AuthEventKind
	for _, e := range svc.snapshot() {
		if e.SessionID == "sid-42" {
			got = append(got, e.Kind)
		}
	}
	assert.Equal(t, kinds, got)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	svc := &recordingService{block: make(chan struct{})}
	d := NewDispatcher(1, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// One event is held by the blocked worker, channelBuffer more fill the
	// channel, the rest are dropped.
	for i := 0; i < channelBuffer+10; i++ {
		d.Enqueue(domain.AuthEvent{Kind: domain.EventRedirectLogin, SessionID: "s"})
	}
	close(svc.block)
	cancel()
	d.Wait()

	n := len(svc.snapshot())
	assert.LessOrEqual(t, n, channelBuffer+1)
	assert.GreaterOrEqual(t, n, channelBuffer)
}

func TestDispatcher_WriteErrorsDoNotStopWorker(t *testing.T) {
	svc := &recordingService{err: errors.New("mongo down")}
	d := NewDispatcher(1, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Enqueue(domain.AuthEvent{Kind: domain.EventLogin, SessionID: "a"})
	d.Enqueue(domain.AuthEvent{Kind: domain.EventLogout, SessionID: "a"})

	require.Eventually(t, func() bool { return len(svc.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, &recordingService{}, zerolog.Nop())
	assert.Len(t, d.workers, defaultWorkers)
	assert.Equal(t, d.shardIndex("abc"), d.shardIndex("abc"))
}
