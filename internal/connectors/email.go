package connectors

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
	"go.uber.org/zap"
)

// Email реализует email_message: поиск по отправленным, черновики, отправка.
type Email struct {
	mu       sync.Mutex
	drafts   map[string]map[string]any
	messages []map[string]any

	tokens          map[string]string
	defaultProvider string
	logger          *zap.Logger
}

func NewEmail(cfg infra.ConnectorsConfig, logger *zap.Logger) *Email {
	return &Email{
		drafts: make(map[string]map[string]any),
		tokens: map[string]string{
			ProviderGoogle:  cfg.GoogleEmailToken,
			ProviderOutlook: cfg.OutlookEmailToken,
		},
		defaultProvider: cfg.DefaultProvider,
		logger:          logger.Named("email"),
	}
}

func (e *Email) configured(provider string) bool {
	return e.tokens[provider] != ""
}

func (e *Email) Handle(_ context.Context, args domain.Arguments) domain.Result {
	provider := providerOf(args, e.defaultProvider)
	if !supportedProvider(provider) {
		return domain.ErrorResult(fmt.Sprintf("Unsupported provider: %s", provider))
	}
	if !e.configured(provider) {
		e.logger.Warn("provider not configured", zap.String("provider", provider))
		return domain.Result{
			"status":  domain.StatusNotConfigured,
			"message": fmt.Sprintf("%s email is not configured.", provider),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	action := args.String("action")
	switch action {
	case "search":
		query := strings.ToLower(args.String("query"))
		results := make([]map[string]any, 0)
		for _, m := range e.messages {
			subject, _ := m["subject"].(string)
			if strings.Contains(strings.ToLower(subject), query) {
				results = append(results, maps.Clone(m))
			}
		}
		return domain.Result{"status": domain.StatusOK, "provider": provider, "results": results}

	case "compose":
		draft := composeMessage(args)
		draft["id"] = "draft_" + ulid.Make().String()
		e.drafts[draft["id"].(string)] = draft
		return domain.Result{"status": "drafted", "provider": provider, "draft": maps.Clone(draft)}

	case "send":
		var message map[string]any
		if draftID := args.String("draft_id"); draftID != "" {
			draft, ok := e.drafts[draftID]
			if !ok {
				return domain.ErrorResult("Draft not found.")
			}
			delete(e.drafts, draftID)
			message = maps.Clone(draft)
		} else {
			message = composeMessage(args)
		}
		message["id"] = "msg_" + ulid.Make().String()
		e.messages = append(e.messages, message)
		return domain.Result{"status": "sent", "provider": provider, "message": maps.Clone(message)}
	}

	return domain.ErrorResult(fmt.Sprintf("Unknown action: %s", action))
}

func composeMessage(args domain.Arguments) map[string]any {
	return map[string]any{
		"to":      stringsOf(args["to"]),
		"subject": args.String("subject"),
		"body":    args.String("body"),
		"cc":      stringsOf(args["cc"]),
		"bcc":     stringsOf(args["bcc"]),
	}
}
