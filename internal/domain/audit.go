package domain

import "time"

// Таксономия событий аудита
const (
	EventChatReceived       = "chat_received"
	EventConsentResolved    = "consent_resolved"
	EventCapabilitySwitched = "capability_switched"
)

// Акторы по умолчанию
const (
	ActorUser     = "user"
	ActorOperator = "operator"
)

// AuditLogEntry неизменяем после добавления. Порядок = порядок добавления.
type AuditLogEntry struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}
