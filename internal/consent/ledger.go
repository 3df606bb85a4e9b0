package consent

/*
Файл ledger.go реализует журнал согласий (Human-in-the-loop).

- Create всегда создает запрос в статусе pending.
- Resolve меняет статус ровно один раз (pending -> approved | denied). Повторное решение
  возвращает ErrAlreadyResolved и не трогает запись.
- Resolve НЕ перезапускает исходное действие: журнал только фиксирует решение.
  Подписчики канала решений (Notifier) сами решают, что с ним делать.
*/

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

// Store: физическое хранилище запросов. Resolve должен быть атомарным
// относительно других писателей (read-modify-write под одним критическим участком).
type Store interface {
	Insert(ctx context.Context, req *domain.ConsentRequest) error
	Get(ctx context.Context, id string) (*domain.ConsentRequest, error)
	List(ctx context.Context, status domain.ConsentStatus) ([]*domain.ConsentRequest, error)
	Resolve(ctx context.Context, id string, approved bool, at time.Time) (*domain.ConsentRequest, error)
}

// Notifier транслирует решения оператора (например, в Redis Pub/Sub).
type Notifier interface {
	NotifyResolved(ctx context.Context, req *domain.ConsentRequest) error
}

type Ledger struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Ledger)

func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store Store, logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: logger.Named("consent"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create регистрирует запрос на согласие для заблокированного вызова.
func (l *Ledger) Create(ctx context.Context, capability string, payload domain.Arguments) (*domain.ConsentRequest, error) {
	req := &domain.ConsentRequest{
		ID:             uuid.New().String(),
		CapabilityName: capability,
		Payload:        payload.Clone(),
		Status:         domain.ConsentPending,
		CreatedAt:      l.now(),
	}

	if err := l.store.Insert(ctx, req); err != nil {
		l.logger.Error("failed to persist consent request",
			zap.String("capability", capability),
			zap.Error(err))
		return nil, fmt.Errorf("consent: create: %w", err)
	}

	l.logger.Info("consent request filed",
		zap.String("consent_id", req.ID),
		zap.String("capability", capability))
	return req, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*domain.ConsentRequest, error) {
	req, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("consent: get %s: %w", id, err)
	}
	return req, nil
}

// List возвращает запросы в порядке создания. Пустой status = без фильтра.
func (l *Ledger) List(ctx context.Context, status domain.ConsentStatus) ([]*domain.ConsentRequest, error) {
	items, err := l.store.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("consent: list: %w", err)
	}
	return items, nil
}

// Resolve фиксирует решение. Неизвестный id -> ErrNotFound, повторное решение -> ErrAlreadyResolved.
func (l *Ledger) Resolve(ctx context.Context, id string, approved bool) (*domain.ConsentRequest, error) {
	req, err := l.store.Resolve(ctx, id, approved, l.now())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrAlreadyResolved) {
			l.logger.Error("failed to persist consent decision", zap.String("consent_id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("consent: resolve %s: %w", id, err)
	}

	l.logger.Info("consent decision recorded",
		zap.String("consent_id", req.ID),
		zap.String("capability", req.CapabilityName),
		zap.String("status", string(req.Status)))

	// Решение уже сохранено; недоставленный сигнал не откатывает его
	if l.notifier != nil {
		if err := l.notifier.NotifyResolved(ctx, req); err != nil {
			l.logger.Warn("decision saved but signal not delivered",
				zap.String("consent_id", req.ID),
				zap.Error(err))
		}
	}
	return req, nil
}
