package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/spaceai-assistant/internal/audit"
	"github.com/xela07ax/spaceai-assistant/internal/consent"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/intent"
	"github.com/xela07ax/spaceai-assistant/internal/llm"
	"github.com/xela07ax/spaceai-assistant/internal/policy"
	"github.com/xela07ax/spaceai-assistant/internal/registry"
	"github.com/xela07ax/spaceai-assistant/internal/synth"
	"go.uber.org/zap"
)

const sandboxMessage = "Action captured in sandbox mode, no real impact made."

// Deps — явные зависимости оркестратора. Никаких глобальных синглтонов:
// тесты собирают изолированный набор на каждый прогон.
type Deps struct {
	Registry  *registry.Registry
	Synth     *synth.Synthesizer
	Gate      policy.Enforcer
	Ledger    *consent.Ledger
	Trail     *audit.Trail
	Providers *llm.Registry

	KillSwitch *CapabilitySwitch // nil: без runtime-отключения
	Sandbox    *CapabilitySwitch // nil: без режима имитации
	Metrics    *Metrics

	Logger *zap.Logger

	FileConsentRequests bool
	DefaultProvider     string
}

// Core — оркестратор: intent -> аргументы -> gate -> (consent | адаптер) -> аудит.
type Core struct {
	registry  *registry.Registry
	synth     *synth.Synthesizer
	gate      policy.Enforcer
	ledger    *consent.Ledger
	trail     *audit.Trail
	providers *llm.Registry

	killSwitch *CapabilitySwitch
	sandbox    *CapabilitySwitch
	metrics    *Metrics
	logger     *zap.Logger

	fileConsent     bool
	defaultProvider string
}

func NewCore(d Deps) *Core {
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	if d.Gate == nil {
		d.Gate = policy.NewGate()
	}
	if d.DefaultProvider == "" {
		d.DefaultProvider = llm.Local
	}
	return &Core{
		registry:        d.Registry,
		synth:           d.Synth,
		gate:            d.Gate,
		ledger:          d.Ledger,
		trail:           d.Trail,
		providers:       d.Providers,
		killSwitch:      d.KillSwitch,
		sandbox:         d.Sandbox,
		metrics:         d.Metrics,
		logger:          d.Logger.Named("core"),
		fileConsent:     d.FileConsentRequests,
		defaultProvider: d.DefaultProvider,
	}
}

// HandleMessage обрабатывает одно входящее сообщение. Отказы и пробелы в конфигурации
// возвращаются данными в ToolCalls; error только при сбое хранилищ или неизвестной capability.
func (c *Core) HandleMessage(ctx context.Context, text, providerName string) (*domain.AgentResponse, error) {
	start := time.Now()
	if providerName == "" {
		providerName = c.defaultProvider
	}

	// 1. Классификация
	tag := intent.Classify(text)
	c.metrics.TotalRequests.WithLabelValues(string(tag)).Inc()
	defer func() {
		c.metrics.RequestDuration.WithLabelValues(string(tag)).Observe(time.Since(start).Seconds())
	}()

	// 2. Completion-бэкенд. Его сбой не валит запрос
	completion, err := c.providers.Get(providerName).Generate(ctx, text, map[string]any{"intent": string(tag)})
	if err != nil {
		c.metrics.ErrorTotal.WithLabelValues("completion").Inc()
		c.logger.Warn("completion failed", zap.String("provider", providerName), zap.Error(err))
		completion = map[string]any{"status": domain.StatusError, "message": err.Error()}
	}

	// 3. Ноль или одна capability на intent
	calls := make([]domain.CapabilityInvocation, 0, 1)
	outcomes := make(map[string]any)
	var consentID string

	if name, ok := intent.CapabilityFor(tag); ok {
		call, filed, err := c.invoke(ctx, name, text)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
		outcomes[name] = call.Result.Status()
		consentID = filed
	}

	// 4. Одна запись аудита на сообщение. Аргументы туда не попадают
	details := map[string]any{
		"intent":       string(tag),
		"provider":     providerName,
		"capabilities": capabilityNames(calls),
		"outcomes":     outcomes,
		"trace_id":     TraceID(ctx),
	}
	if consentID != "" {
		details["consent_id"] = consentID
	}
	if _, err := c.trail.Append(ctx, domain.EventChatReceived, domain.ActorUser, details); err != nil {
		c.metrics.ErrorTotal.WithLabelValues("audit").Inc()
		c.logger.Error("audit append failed", zap.String("intent", string(tag)), zap.Error(err))
		return nil, fmt.Errorf("engine: handle message: %w", err)
	}

	return &domain.AgentResponse{
		Intent:     string(tag),
		Provider:   providerName,
		Completion: completion,
		ToolCalls:  calls,
	}, nil
}

// invoke проводит один вызов через всю цепочку проверок. Возвращает id поданного запроса на согласие, если был.
func (c *Core) invoke(ctx context.Context, name, text string) (domain.CapabilityInvocation, string, error) {
	capability, err := c.registry.Get(name)
	if err != nil {
		return domain.CapabilityInvocation{}, "", err
	}

	call := domain.CapabilityInvocation{
		Name:      capability.Name,
		Arguments: domain.Arguments{},
		Schema:    capability.InputSchema, // Get уже отдает копию
	}
	var consentID string

	defer func() {
		c.metrics.Invocations.WithLabelValues(name, call.Result.Status()).Inc()
	}()

	// 1. Kill-Switch (самый дешевый - In-memory), до синтеза аргументов
	if c.killSwitch != nil && c.killSwitch.Contains(name) {
		c.logger.Info("intercepted disabled capability", zap.String("capability", name))
		call.Result = domain.Result{
			"status":  domain.StatusBlocked,
			"message": fmt.Sprintf("Capability %s is disabled by the operator.", name),
		}
		return call, "", nil
	}

	// 2. Аргументы
	args, err := c.synth.Synthesize(name, text)
	if err != nil {
		c.metrics.ErrorTotal.WithLabelValues("synthesis").Inc()
		c.logger.Error("argument synthesis failed", zap.String("capability", name), zap.Error(err))
		call.Result = domain.ErrorResult("Arguments for the capability could not be built.")
		return call, "", nil
	}
	call.Arguments = args

	// 3. Policy Enforcement
	allowed, reason := c.gate.Check(name, args)
	if !allowed {
		call.Result = domain.Result{"status": domain.StatusPermissionRequired, "message": reason}
		if c.fileConsent && c.ledger != nil {
			req, err := c.ledger.Create(ctx, name, args)
			if err != nil {
				c.metrics.ErrorTotal.WithLabelValues("consent_store").Inc()
				return domain.CapabilityInvocation{}, "", fmt.Errorf("engine: file consent for %s: %w", name, err)
			}
			consentID = req.ID
			call.Result["consent_id"] = req.ID
		}
		return call, consentID, nil
	}

	// 4. Выбор режима: Sandbox vs Live
	if c.sandbox != nil && c.sandbox.Contains(name) {
		call.Result = domain.Result{"status": domain.StatusSimulated, "message": sandboxMessage}
		return call, "", nil
	}
	call.Result = capability.Handler(ctx, args)
	if call.Result == nil {
		call.Result = domain.ErrorResult("Capability returned no result.")
	}
	return call, "", nil
}

// ResolveConsent — решение человека. Только меняет статус записи, исходное действие не запускается.
func (c *Core) ResolveConsent(ctx context.Context, id string, approved bool, actor string) (*domain.ConsentRequest, error) {
	req, err := c.ledger.Resolve(ctx, id, approved)
	if err != nil {
		return nil, err
	}
	if actor == "" {
		actor = domain.ActorOperator
	}

	// Решение уже сохранено: сбой аудита логируем, но не отменяем его
	_, err = c.trail.Append(ctx, domain.EventConsentResolved, actor, map[string]any{
		"consent_id": req.ID,
		"capability": req.CapabilityName,
		"status":     string(req.Status),
		"trace_id":   TraceID(ctx),
	})
	if err != nil {
		c.metrics.ErrorTotal.WithLabelValues("audit").Inc()
		c.logger.Error("consent resolved but audit append failed", zap.String("consent_id", req.ID), zap.Error(err))
	}
	return req, nil
}

func (c *Core) GetConsent(ctx context.Context, id string) (*domain.ConsentRequest, error) {
	return c.ledger.Get(ctx, id)
}

func (c *Core) ListConsents(ctx context.Context, status domain.ConsentStatus) ([]*domain.ConsentRequest, error) {
	return c.ledger.List(ctx, status)
}

// Capabilities — discovery payload в порядке регистрации.
func (c *Core) Capabilities() []domain.CapabilityDescriptor {
	return c.registry.Descriptors()
}

func (c *Core) ListAuditLog(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	return c.trail.List(ctx, limit)
}

// SetDisabled включает/снимает kill-switch для capability.
func (c *Core) SetDisabled(ctx context.Context, name string, on bool, actor string) error {
	return c.switchCapability(ctx, c.killSwitch, name, on, actor)
}

// SetSandbox включает/снимает режим имитации для capability.
func (c *Core) SetSandbox(ctx context.Context, name string, on bool, actor string) error {
	return c.switchCapability(ctx, c.sandbox, name, on, actor)
}

// SwitchStates — текущие списки отключенных и имитируемых capability.
func (c *Core) SwitchStates() (disabled, sandboxed []string) {
	disabled, sandboxed = []string{}, []string{}
	if c.killSwitch != nil {
		disabled = c.killSwitch.List()
	}
	if c.sandbox != nil {
		sandboxed = c.sandbox.List()
	}
	return disabled, sandboxed
}

// ErrSwitchUnavailable — переключатель не сконфигурирован в этом процессе.
var ErrSwitchUnavailable = errors.New("capability switch is not configured")

func (c *Core) switchCapability(ctx context.Context, sw *CapabilitySwitch, name string, on bool, actor string) error {
	if sw == nil {
		return ErrSwitchUnavailable
	}
	if _, err := c.registry.Get(name); err != nil {
		return err
	}
	if err := sw.Set(ctx, name, on); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if actor == "" {
		actor = domain.ActorOperator
	}

	_, err := c.trail.Append(ctx, domain.EventCapabilitySwitched, actor, map[string]any{
		"capability": name,
		"mode":       sw.Kind(),
		"on":         on,
		"trace_id":   TraceID(ctx),
	})
	if err != nil {
		c.metrics.ErrorTotal.WithLabelValues("audit").Inc()
		c.logger.Error("capability switched but audit append failed", zap.String("capability", name), zap.Error(err))
	}
	return nil
}

func capabilityNames(calls []domain.CapabilityInvocation) []string {
	out := make([]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, call.Name)
	}
	return out
}
