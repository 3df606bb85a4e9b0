package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Settings: параметры защиты исходящих вызовов.
type Settings struct {
	Name        string
	MaxRequests uint32        // Пропускная способность в half-open
	Interval    time.Duration // Период сброса счетчиков в closed
	Timeout     time.Duration // Время, через которое CB попробует "закрыться"
	Failures    uint32        // Сколько ошибок подряд открывают CB
	RateLimit   float64       // Запросов в секунду, 0 = без лимита
	Burst       int
	Attempts    uint
	CallTimeout time.Duration // Таймаут одной попытки

	// OnStateChange вызывается при смене состояния CB (open=true: трафик заблокирован).
	OnStateChange func(name string, open bool)
}

func (s Settings) withDefaults() Settings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval == 0 {
		s.Interval = 5 * time.Second
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.Failures == 0 {
		s.Failures = 5
	}
	if s.Attempts == 0 {
		s.Attempts = 3
	}
	if s.CallTimeout == 0 {
		s.CallTimeout = 10 * time.Second
	}
	return s
}

// Guard = Rate Limiter -> Circuit Breaker -> Retry с учетом Retry-After.
type Guard struct {
	name        string
	cb          *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	attempts    uint
	callTimeout time.Duration
}

func NewGuard(s Settings) *Guard {
	s = s.withDefaults()

	failures := s.Failures
	cbSettings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Ошибки клиента не говорят о здоровье удаленной стороны
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanent(err)
		},
	}
	if s.OnStateChange != nil {
		cbSettings.OnStateChange = func(name string, _, to gobreaker.State) {
			s.OnStateChange(name, to == gobreaker.StateOpen)
		}
	}

	var limiter *rate.Limiter
	if s.RateLimit > 0 {
		burst := s.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.RateLimit), burst)
	}

	return &Guard{
		name:        s.Name,
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
		limiter:     limiter,
		attempts:    s.Attempts,
		callTimeout: s.CallTimeout,
	}
}

// Open: выбит ли предохранитель прямо сейчас.
func (g *Guard) Open() bool {
	return g.cb.State() == gobreaker.StateOpen
}

// Do выполняет fn под защитой. fn получает контекст с таймаутом одной попытки.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// 1. Rate Limiter
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit exceeded: %w", g.name, err)
		}
	}

	// 2. Circuit Breaker
	_, err := g.cb.Execute(func() (interface{}, error) {
		var permanent error

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(g.attempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Удаленная сторона сама сказала, сколько ждать
				var tErr *ThrottleError
				if errors.As(err, &tErr) && tErr.RetryAfter > 0 {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
			defer cancel()

			callErr := fn(tCtx)
			if isPermanent(callErr) {
				// Повторять бессмысленно: выходим из цикла и отдаем ошибку как есть
				permanent = callErr
				return nil
			}
			return callErr
		})

		if permanent != nil {
			return nil, permanent
		}
		return nil, retryErr
	})

	if IsCircuitOpen(err) {
		return fmt.Errorf("%s: circuit open: %w", g.name, err)
	}
	return err
}

// Execute: типизированная обертка над Guard.Do.
func Execute[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// IsCircuitOpen сообщает, что ошибка вызвана открытым предохранителем.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
