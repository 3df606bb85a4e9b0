package connectors

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
	"go.uber.org/zap"
)

// Calendar: адаптер calendar_crud. События живут в процессе до подключения OAuth-клиентов.
type Calendar struct {
	mu     sync.Mutex
	events map[string]map[string]any
	order  []string

	tokens          map[string]string
	defaultProvider string
	logger          *zap.Logger
}

func NewCalendar(cfg infra.ConnectorsConfig, logger *zap.Logger) *Calendar {
	return &Calendar{
		events: make(map[string]map[string]any),
		tokens: map[string]string{
			ProviderGoogle:  cfg.GoogleCalendarToken,
			ProviderOutlook: cfg.OutlookCalendarToken,
		},
		defaultProvider: cfg.DefaultProvider,
		logger:          logger.Named("calendar"),
	}
}

func (c *Calendar) configured(provider string) bool {
	return c.tokens[provider] != ""
}

// Handle реализует domain.Handler.
func (c *Calendar) Handle(_ context.Context, args domain.Arguments) domain.Result {
	provider := providerOf(args, c.defaultProvider)
	if !supportedProvider(provider) {
		return domain.ErrorResult(fmt.Sprintf("Unsupported provider: %s", provider))
	}
	if !c.configured(provider) {
		c.logger.Warn("provider not configured", zap.String("provider", provider))
		return domain.Result{
			"status":  domain.StatusNotConfigured,
			"message": fmt.Sprintf("%s calendar is not configured.", provider),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	action := args.String("action")
	switch action {
	case "create":
		id := "evt_" + ulid.Make().String()
		event := map[string]any{
			"id":        id,
			"title":     stringOr(args, "title", "Untitled event"),
			"start":     optional(args, "start"),
			"end":       optional(args, "end"),
			"attendees": stringsOf(args["attendees"]),
			"location":  optional(args, "location"),
		}
		c.events[id] = event
		c.order = append(c.order, id)
		return domain.Result{"status": "created", "provider": provider, "event": cloneEvent(event)}

	case "update":
		event, ok := c.events[args.String("event_id")]
		if !ok {
			return domain.ErrorResult("Event not found.")
		}
		for k, v := range args {
			if _, known := event[k]; !known || k == "id" || v == nil {
				continue
			}
			if k == "attendees" {
				v = stringsOf(v) // Тот же []string, что хранит create
			}
			event[k] = v
		}
		return domain.Result{"status": "updated", "provider": provider, "event": cloneEvent(event)}

	case "delete":
		id := args.String("event_id")
		event, ok := c.events[id]
		if !ok {
			return domain.ErrorResult("Event not found.")
		}
		delete(c.events, id)
		c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
		return domain.Result{"status": "deleted", "provider": provider, "event": event}

	case "list", "read":
		events := make([]map[string]any, 0, len(c.order))
		for _, id := range c.order {
			events = append(events, cloneEvent(c.events[id]))
		}
		return domain.Result{"status": domain.StatusOK, "provider": provider, "events": events}
	}

	return domain.ErrorResult(fmt.Sprintf("Unknown action: %s", action))
}

// cloneEvent: копия события, не разделяющая слайс attendees с хранилищем.
func cloneEvent(event map[string]any) map[string]any {
	out := maps.Clone(event)
	if a, ok := out["attendees"].([]string); ok {
		out["attendees"] = slices.Clone(a)
	}
	return out
}
