package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
	"go.uber.org/zap"
)

/*
CapabilitySwitch — множество capability в особом режиме, разделяемое инстансами через Redis:
  - L1: локальная мапа под RWMutex (hot path читает только её);
  - L2: Redis Set (источник правды между инстансами);
  - сигналы "name:on|off" в Pub/Sub канале.

Два экземпляра: kill-switch (capability отключена) и sandbox (вызов имитируется).
Без Redis (rdb == nil) работает как чисто локальное множество.
*/
type CapabilitySwitch struct {
	kind    string
	mu      sync.RWMutex
	names   map[string]struct{}
	rdb     *redis.Client
	setKey  string
	channel string
	logger  *zap.Logger
}

func newCapabilitySwitch(kind, setKey, channel string, rdb *redis.Client, logger *zap.Logger) *CapabilitySwitch {
	return &CapabilitySwitch{
		kind:    kind,
		names:   make(map[string]struct{}),
		rdb:     rdb,
		setKey:  setKey,
		channel: channel,
		logger:  logger.Named(kind),
	}
}

// NewKillSwitchManager — отключение capability оператором.
func NewKillSwitchManager(rdb *redis.Client, logger *zap.Logger) *CapabilitySwitch {
	return newCapabilitySwitch("kill-switch", infra.RedisKeyBlockedCapabilities, infra.RedisChanCapabilityKillSwitch, rdb, logger)
}

// NewSandboxManager — режим имитации: вызов проходит все проверки, но не касается внешнего мира.
func NewSandboxManager(rdb *redis.Client, logger *zap.Logger) *CapabilitySwitch {
	return newCapabilitySwitch("sandbox", infra.RedisKeySandboxCapabilities, infra.RedisChanCapabilitySandbox, rdb, logger)
}

func (m *CapabilitySwitch) Kind() string { return m.kind }

// Init загружает текущее состояние из Redis (L2 -> L1).
func (m *CapabilitySwitch) Init(ctx context.Context) error {
	if m.rdb == nil {
		return nil
	}
	names, err := m.rdb.SMembers(ctx, m.setKey).Result()
	if err != nil {
		return fmt.Errorf("%s: init: %w", m.kind, err)
	}

	// Полная замена: снятые за время разрыва флаги тоже должны уйти
	fresh := make(map[string]struct{}, len(names))
	for _, name := range names {
		fresh[name] = struct{}{}
	}
	m.mu.Lock()
	m.names = fresh
	m.mu.Unlock()
	return nil
}

// Warmup применяет стартовое состояние из конфига.
func (m *CapabilitySwitch) Warmup(ctx context.Context, names []string) error {
	return WarmupState(ctx, m.rdb, m.logger, names, m.setKey, infra.GetWarmupLockKey(m.kind), func(ns []string) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, n := range ns {
			m.names[n] = struct{}{}
		}
	})
}

// Listen блокируется до отмены ctx, поддерживая L1 в синхроне с сигналами.
func (m *CapabilitySwitch) Listen(ctx context.Context) {
	if m.rdb == nil {
		return
	}
	m.logger.Info("listener started", zap.String("chan", m.channel))
	ListenStateResilient(ctx, m.rdb, m.logger, m.channel,
		func() error { return m.Init(ctx) },
		m.apply,
	)
	m.logger.Info("listener stopped")
}

// Set — команда оператора: обновляет Redis и рассылает сигнал остальным инстансам.
func (m *CapabilitySwitch) Set(ctx context.Context, name string, on bool) error {
	m.apply(name, on)
	if m.rdb == nil {
		return nil
	}

	pipe := m.rdb.TxPipeline()
	if on {
		pipe.SAdd(ctx, m.setKey, name)
	} else {
		pipe.SRem(ctx, m.setKey, name)
	}
	status := "off"
	if on {
		status = "on"
	}
	pipe.Publish(ctx, m.channel, name+":"+status)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: set %s: %w", m.kind, name, err)
	}
	return nil
}

func (m *CapabilitySwitch) apply(name string, on bool) {
	m.mu.Lock()
	if on {
		m.names[name] = struct{}{}
	} else {
		delete(m.names, name)
	}
	m.mu.Unlock()
	m.logger.Info("state changed", zap.String("capability", name), zap.Bool("on", on))
}

func (m *CapabilitySwitch) Contains(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.names[name]
	return ok
}

// List — отсортированный снимок множества.
func (m *CapabilitySwitch) List() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.names))
	for n := range m.names {
		out = append(out, n)
	}
	m.mu.RUnlock()
	slices.Sort(out)
	return out
}
