package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTrail_ListReturnsAppendOrder(t *testing.T) {
	ctx := context.Background()
	trail := NewTrail(zap.NewNop())

	const n = 5
	for i := 0; i < n; i++ {
		_, err := trail.Append(ctx, domain.EventChatReceived, "user", map[string]any{"i": i})
		require.NoError(t, err)
	}

	all, err := trail.List(ctx, n)
	require.NoError(t, err)
	require.Len(t, all, n)
	for i, e := range all {
		assert.Equal(t, i, e.Details["i"])
	}

	recent, err := trail.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Details["i"])
	assert.Equal(t, 4, recent[1].Details["i"])

	everything, err := trail.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, everything, n)

	more, err := trail.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, more, n)
}

func TestTrail_EntriesAreImmutable(t *testing.T) {
	ctx := context.Background()
	trail := NewTrail(zap.NewNop())

	details := map[string]any{"intent": "calendar"}
	entry, err := trail.Append(ctx, domain.EventChatReceived, "user", details)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	details["intent"] = "changed"
	entry.Details["intent"] = "changed"

	listed, err := trail.List(ctx, 1)
	require.NoError(t, err)
	listed[0].Details["intent"] = "changed again"

	again, err := trail.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "calendar", again[0].Details["intent"])
}

func TestTrail_ClosedRejectsAppend(t *testing.T) {
	trail := NewTrail(zap.NewNop())
	trail.Close()

	_, err := trail.Append(context.Background(), domain.EventChatReceived, "user", nil)
	assert.ErrorIs(t, err, domain.ErrClosed)
}

func TestTrail_RestorePrependsHistory(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	trail := NewTrail(zap.NewNop(), WithSink(sink))

	_, err := trail.Append(ctx, domain.EventChatReceived, "user", nil)
	require.NoError(t, err)

	trail.Restore([]domain.AuditLogEntry{
		{ID: "old-1", Event: domain.EventChatReceived},
		{ID: "old-2", Event: domain.EventConsentResolved},
	})

	all, err := trail.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "old-1", all[0].ID)
	assert.Equal(t, "old-2", all[1].ID)
	assert.Len(t, sink.entries(), 1, "restored history must not be re-shipped")
}

func TestTrail_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	trail := NewTrail(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = trail.Append(ctx, domain.EventChatReceived, "user", nil)
		}()
	}
	wg.Wait()

	all, err := trail.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 100)

	seen := make(map[string]bool)
	for _, e := range all {
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
}

func TestTrail_SinkOrderMatchesListUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}

	// Часы идут назад: CreatedAt в журнале все равно не убывает
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(-time.Duration(calls) * time.Second)
	}
	trail := NewTrail(zap.NewNop(), WithSink(sink), WithClock(clock))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = trail.Append(ctx, domain.EventChatReceived, "user", map[string]any{"i": i})
		}(i)
	}
	wg.Wait()

	listed, err := trail.List(ctx, 0)
	require.NoError(t, err)
	shipped := sink.entries()
	require.Len(t, shipped, len(listed))

	for i := range listed {
		assert.Equal(t, listed[i].ID, shipped[i].ID)
		if i > 0 {
			assert.False(t, listed[i].CreatedAt.Before(listed[i-1].CreatedAt))
		}
	}
}

type memorySink struct {
	mu  sync.Mutex
	got []domain.AuditLogEntry
}

func (s *memorySink) Log(e domain.AuditLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
}

func (s *memorySink) entries() []domain.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLogEntry(nil), s.got...)
}

type fakeStorage struct {
	mu      sync.Mutex
	batches [][]domain.AuditLogEntry
	err     error
}

func (f *fakeStorage) WriteBatch(_ context.Context, entries []domain.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, entries)
	return f.err
}

func (f *fakeStorage) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func entry(i int) domain.AuditLogEntry {
	return domain.AuditLogEntry{ID: fmt.Sprintf("e-%d", i), Event: domain.EventChatReceived}
}

func TestAgentFS_DrainOnStop(t *testing.T) {
	store := &fakeStorage{}
	fs := NewAgentFS(store, zap.NewNop(), Options{BatchSize: 10, FlushInterval: time.Hour})
	fs.Start()

	for i := 0; i < 25; i++ {
		fs.Log(entry(i))
	}
	fs.Stop()

	assert.Equal(t, 25, store.total())
	for _, b := range store.batches {
		assert.LessOrEqual(t, len(b), 10)
	}
}

func TestAgentFS_FlushesOnTicker(t *testing.T) {
	store := &fakeStorage{}
	fs := NewAgentFS(store, zap.NewNop(), Options{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	fs.Start()
	defer fs.Stop()

	fs.Log(entry(1))
	assert.Eventually(t, func() bool { return store.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAgentFS_LogAfterStopIsDropped(t *testing.T) {
	store := &fakeStorage{}
	fs := NewAgentFS(store, zap.NewNop(), Options{})
	fs.Start()
	fs.Stop()
	fs.Stop()

	assert.NotPanics(t, func() { fs.Log(entry(1)) })
	assert.Equal(t, 0, store.total())
}

func TestAgentFS_OverflowDoesNotBlock(t *testing.T) {
	store := &fakeStorage{}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_audit_fill"})
	// Воркер не запущен: буфер на 2 записи заполняется сразу
	fs := NewAgentFS(store, zap.NewNop(), Options{BufferSize: 2, BufferGauge: gauge})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			fs.Log(entry(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log blocked on a full buffer")
	}

	fs.Start()
	fs.Stop()
	assert.Equal(t, 2, store.total())
}

func TestAgentFS_StorageFailureKeepsWorkerAlive(t *testing.T) {
	store := &fakeStorage{err: errors.New("db down")}
	fs := NewAgentFS(store, zap.NewNop(), Options{BatchSize: 1})
	fs.Start()

	fs.Log(entry(1))
	fs.Log(entry(2))
	fs.Stop()

	assert.Equal(t, 2, store.total())
}

func TestTrail_WithAgentFSSink(t *testing.T) {
	store := &fakeStorage{}
	fs := NewAgentFS(store, zap.NewNop(), Options{})
	fs.Start()

	trail := NewTrail(zap.NewNop(), WithSink(fs))
	for i := 0; i < 3; i++ {
		_, err := trail.Append(context.Background(), domain.EventChatReceived, "user", nil)
		require.NoError(t, err)
	}
	fs.Stop()

	assert.Equal(t, 3, store.total())
}
