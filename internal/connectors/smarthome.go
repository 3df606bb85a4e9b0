package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
	"github.com/xela07ax/spaceai-assistant/internal/reliability"
	"go.uber.org/zap"
)

// Сервисы Home Assistant, которые может вызвать агент
var smartHomeServices = map[string]string{
	"turn_on":         "homeassistant",
	"turn_off":        "homeassistant",
	"set_temperature": "climate",
}

// HomeAssistant реализует smart_home_control и вызывает POST /api/services/{domain}/{service}.
type HomeAssistant struct {
	baseURL string
	token   string
	client  *http.Client
	guard   *reliability.Guard // nil: без ретраев и предохранителя
	logger  *zap.Logger
}

func NewHomeAssistant(cfg infra.ConnectorsConfig, client *http.Client, guard *reliability.Guard, logger *zap.Logger) *HomeAssistant {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HomeAssistant{
		baseURL: strings.TrimRight(cfg.HomeAssistantURL, "/"),
		token:   cfg.HomeAssistantToken,
		client:  client,
		guard:   guard,
		logger:  logger.Named("home-assistant"),
	}
}

func (h *HomeAssistant) configured() bool {
	return h.baseURL != "" && h.token != ""
}

func (h *HomeAssistant) Handle(ctx context.Context, args domain.Arguments) domain.Result {
	if !h.configured() {
		h.logger.Warn("home assistant not configured")
		return domain.Result{
			"status":  domain.StatusNotConfigured,
			"message": "Home Assistant is not configured.",
		}
	}

	service := args.String("service")
	if service == "" {
		return domain.ErrorResult("No smart-home service recognized in the request.")
	}
	defaultDomain, ok := smartHomeServices[service]
	if !ok {
		return domain.ErrorResult(fmt.Sprintf("Unsupported service: %s", service))
	}

	entityID := args.String("entity_id")
	deviceID := args.String("device_id")
	data, _ := args["data"].(map[string]any)

	// 1. Домен: явно из аргументов, иначе из entity_id (light.kitchen -> light)
	svcDomain := args.String("domain")
	if svcDomain == "" {
		svcDomain = defaultDomain
		if prefix, _, found := strings.Cut(entityID, "."); found && prefix != "" {
			svcDomain = prefix
		}
	}

	// 2. Тело запроса: data + цели вызова
	body := maps.Clone(data)
	if body == nil {
		body = map[string]any{}
	}
	if entityID != "" {
		body["entity_id"] = entityID
	}
	if deviceID != "" {
		body["device_id"] = deviceID
	}

	// 3. Вызов
	changed, err := h.callService(ctx, svcDomain, service, body)
	if err != nil {
		h.logger.Error("service call failed",
			zap.String("domain", svcDomain),
			zap.String("service", service),
			zap.Error(err))
		return domain.ErrorResult(fmt.Sprintf("Home Assistant call failed: %v", err))
	}

	return domain.Result{
		"status":         "queued",
		"domain":         svcDomain,
		"service":        service,
		"entity_id":      optional(args, "entity_id"),
		"device_id":      optional(args, "device_id"),
		"data":           dataOrEmpty(data),
		"changed_states": changed,
	}
}

func (h *HomeAssistant) callService(ctx context.Context, svcDomain, service string, body map[string]any) (int, error) {
	call := func(ctx context.Context) (int, error) {
		return h.post(ctx, fmt.Sprintf("%s/api/services/%s/%s", h.baseURL, svcDomain, service), body)
	}
	if h.guard == nil {
		return call(ctx)
	}
	return reliability.Execute(ctx, h.guard, call)
}

// post возвращает число измененных состояний из ответа HA.
func (h *HomeAssistant) post(ctx context.Context, url string, body map[string]any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, reliability.Permanent(fmt.Errorf("encode body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, reliability.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, &reliability.ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      errors.New(resp.Status),
		}
	case resp.StatusCode >= 500:
		return 0, fmt.Errorf("home assistant: %s", resp.Status)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, reliability.Permanent(fmt.Errorf("home assistant: %s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}

	var states []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil && !errors.Is(err, io.EOF) {
		return 0, reliability.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return len(states), nil
}

func parseRetryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

func dataOrEmpty(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return maps.Clone(d)
}
