package llm

import (
	"context"
	"maps"
)

// Имена поддерживаемых бэкендов
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Local     = "local"
)

var defaultModels = map[string]string{
	OpenAI:    "gpt-4o-mini",
	Anthropic: "claude-3-haiku",
	Local:     "local-llm",
}

// Config: настройки одного бэкенда. APIKey никогда не попадает в ответ.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

// Provider описывает completion-бэкенд: промпт + контекст -> непрозрачный результат.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, context map[string]any) (map[string]any, error)
}

// stubProvider отвечает заглушкой; реальный HTTP-клиент к API подключается через тот же контракт.
type stubProvider struct {
	cfg   Config
	reply string
}

func newStub(cfg Config) *stubProvider {
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Name]
	}
	reply := "[stubbed local response]"
	switch cfg.Name {
	case OpenAI:
		reply = "[stubbed OpenAI response]"
	case Anthropic:
		reply = "[stubbed Anthropic response]"
	}
	return &stubProvider{cfg: cfg, reply: reply}
}

func (p *stubProvider) Name() string { return p.cfg.Name }

func (p *stubProvider) Generate(ctx context.Context, prompt string, context map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := maps.Clone(context)
	if c == nil {
		c = map[string]any{}
	}
	return map[string]any{
		"provider":   p.cfg.Name,
		"model":      p.cfg.Model,
		"prompt":     prompt,
		"context":    c,
		"completion": p.reply,
	}, nil
}
