package connectors

import (
	"fmt"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

// Провайдеры календаря и почты
const (
	ProviderGoogle  = "google"
	ProviderOutlook = "outlook"
)

func supportedProvider(p string) bool {
	return p == ProviderGoogle || p == ProviderOutlook
}

func providerOf(args domain.Arguments, fallback string) string {
	if p := args.String("provider"); p != "" {
		return p
	}
	return fallback
}

// stringsOf принимает []string, []any (после JSON) или одиночную строку.
func stringsOf(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			out = append(out, fmt.Sprint(x))
		}
		return out
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	}
	return []string{}
}

// intOf понимает int и float64 (числа после JSON-декодера).
func intOf(v any, fallback int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return fallback
}

func stringOr(args domain.Arguments, key, fallback string) string {
	if s := args.String(key); s != "" {
		return s
	}
	return fallback
}

// optional возвращает значение или nil, если ключа нет.
func optional(args domain.Arguments, key string) any {
	if v, ok := args[key]; ok {
		return v
	}
	return nil
}
