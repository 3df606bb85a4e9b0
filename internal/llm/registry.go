package llm

import (
	"context"
	"fmt"

	"github.com/xela07ax/spaceai-assistant/internal/reliability"
	"go.uber.org/zap"
)

// Registry выбирает бэкенд по имени. Неизвестное имя -> local.
type Registry struct {
	providers map[string]Provider
	logger    *zap.Logger
}

type Option func(*Registry)

// WithGuard оборачивает каждый бэкенд в предохранитель/ретраи.
func WithGuard(g *reliability.Guard) Option {
	return func(r *Registry) {
		for name, p := range r.providers {
			r.providers[name] = &guarded{next: p, guard: g}
		}
	}
}

// WithProvider подменяет бэкенд (например, фейком в тестах).
func WithProvider(p Provider) Option {
	return func(r *Registry) { r.providers[p.Name()] = p }
}

func NewRegistry(configs []Config, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(configs)+1),
		logger:    logger.Named("llm"),
	}
	for _, cfg := range configs {
		r.providers[cfg.Name] = newStub(cfg)
	}
	if _, ok := r.providers[Local]; !ok {
		r.providers[Local] = newStub(Config{Name: Local})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get никогда не возвращает nil.
func (r *Registry) Get(name string) Provider {
	if p, ok := r.providers[name]; ok {
		return p
	}
	r.logger.Debug("unknown provider, falling back to local", zap.String("requested", name))
	return r.providers[Local]
}

type guarded struct {
	next  Provider
	guard *reliability.Guard
}

func (g *guarded) Name() string { return g.next.Name() }

func (g *guarded) Generate(ctx context.Context, prompt string, c map[string]any) (map[string]any, error) {
	out, err := reliability.Execute(ctx, g.guard, func(ctx context.Context) (map[string]any, error) {
		return g.next.Generate(ctx, prompt, c)
	})
	if err != nil {
		return nil, fmt.Errorf("llm %s: %w", g.next.Name(), err)
	}
	return out, nil
}
