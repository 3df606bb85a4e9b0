package audit

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

// Sink получает копию каждой записи после добавления (AgentFS -> Postgres).
// Log вызывается под локом журнала и не должен блокироваться или вызывать Trail.
type Sink interface {
	Log(entry domain.AuditLogEntry)
}

// Trail: append-only журнал решений. Порядок записей = порядок добавления,
// записи не изменяются и не удаляются.
type Trail struct {
	mu      sync.RWMutex
	entries []domain.AuditLogEntry
	closed  bool

	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

type TrailOption func(*Trail)

func WithSink(s Sink) TrailOption {
	return func(t *Trail) { t.sink = s }
}

func WithClock(now func() time.Time) TrailOption {
	return func(t *Trail) { t.now = now }
}

func NewTrail(logger *zap.Logger, opts ...TrailOption) *Trail {
	t := &Trail{
		logger: logger.Named("audit"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append фиксирует событие. Ошибка только если журнал уже закрыт.
// Время и передача в Sink происходят под тем же локом, что и добавление:
// порядок в Sink (и seq в Postgres) совпадает с порядком List, CreatedAt не убывает.
func (t *Trail) Append(_ context.Context, event, actor string, details map[string]any) (domain.AuditLogEntry, error) {
	entry := domain.AuditLogEntry{
		ID:      uuid.New().String(),
		Event:   event,
		Actor:   actor,
		Details: cloneDetails(details),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.AuditLogEntry{}, fmt.Errorf("audit: append %s: %w", event, domain.ErrClosed)
	}
	entry.CreatedAt = t.now()
	if n := len(t.entries); n > 0 && entry.CreatedAt.Before(t.entries[n-1].CreatedAt) {
		entry.CreatedAt = t.entries[n-1].CreatedAt
	}
	t.entries = append(t.entries, entry)
	// Sink не блокирует (AgentFS сбрасывает нагрузку при переполнении)
	if t.sink != nil {
		t.sink.Log(copyEntry(entry))
	}
	t.mu.Unlock()

	t.logger.Debug("audit entry appended",
		zap.String("id", entry.ID),
		zap.String("event", event),
		zap.String("actor", actor))
	return copyEntry(entry), nil
}

// List возвращает limit последних записей, старшая из окна первой.
// limit <= 0 означает "все".
func (t *Trail) List(_ context.Context, limit int) ([]domain.AuditLogEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(t.entries) {
		start = len(t.entries) - limit
	}

	out := make([]domain.AuditLogEntry, 0, len(t.entries)-start)
	for _, e := range t.entries[start:] {
		out = append(out, copyEntry(e))
	}
	return out, nil
}

// Restore поднимает историю из долговременного хранилища при старте.
// Записи добавляются перед уже существующими, в переданном порядке; в Sink не уходят.
func (t *Trail) Restore(history []domain.AuditLogEntry) {
	if len(history) == 0 {
		return
	}
	restored := make([]domain.AuditLogEntry, 0, len(history)+len(t.entries))
	for _, e := range history {
		restored = append(restored, copyEntry(e))
	}

	t.mu.Lock()
	t.entries = append(restored, t.entries...)
	t.mu.Unlock()

	t.logger.Info("audit history restored", zap.Int("count", len(history)))
}

// Close запрещает дальнейшие Append. Sink закрывается отдельно его владельцем.
func (t *Trail) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func copyEntry(e domain.AuditLogEntry) domain.AuditLogEntry {
	e.Details = cloneDetails(e.Details)
	return e
}

func cloneDetails(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return maps.Clone(d)
}
