package connectors

import "github.com/xela07ax/spaceai-assistant/internal/domain"

// Toolset: все адаптеры процесса. Собирается в main и регистрируется в реестре один раз.
type Toolset struct {
	Memory   *MemoryTools
	Calendar *Calendar
	Email    *Email
	Home     *HomeAssistant
	Commands *CommandRunner
}

func object(required []string, props map[string]any) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var (
	str       = map[string]any{"type": "string"}
	boolean   = map[string]any{"type": "boolean"}
	obj       = map[string]any{"type": "object"}
	strArray  = map[string]any{"type": "array", "items": str}
	approved  = map[string]any{"type": "boolean", "default": false}
	contentIn = object([]string{"content"}, map[string]any{"content": str, "metadata": obj})
)

// Capabilities возвращает дескрипторы в порядке регистрации (он же порядок discovery).
func (t Toolset) Capabilities() []domain.Capability {
	return []domain.Capability{
		{
			Name:        "remember",
			Description: "Store a memory snippet for later retrieval.",
			InputSchema: contentIn,
			Handler:     t.Memory.Remember,
		},
		{
			Name:        "store_summary",
			Description: "Store a conversation summary for long-term recall.",
			InputSchema: contentIn,
			Handler:     t.Memory.StoreSummary,
		},
		{
			Name:        "index_document",
			Description: "Index a document into vector memory for search.",
			InputSchema: contentIn,
			Handler:     t.Memory.IndexDocument,
		},
		{
			Name:        "recall",
			Description: "Retrieve relevant memories by semantic search.",
			InputSchema: object([]string{"query"}, map[string]any{
				"query":       str,
				"limit":       map[string]any{"type": "integer", "minimum": 1, "maximum": 20},
				"memory_type": str,
			}),
			Handler: t.Memory.Recall,
		},
		{
			Name:        "forget_memory",
			Description: "Remove memories by id, type, tag, or timestamp.",
			InputSchema: object(nil, map[string]any{
				"ids":         strArray,
				"memory_type": str,
				"tag":         str,
				"before":      map[string]any{"type": "string", "description": "ISO-8601 timestamp"},
				"purge_all":   boolean,
			}),
			Handler: t.Memory.Forget,
		},
		{
			Name:        "export_memory",
			Description: "Export all stored memories and metadata.",
			InputSchema: object(nil, map[string]any{}),
			Handler:     t.Memory.Export,
		},
		{
			Name:        "create_task",
			Description: "Create a new task for the agent to track.",
			InputSchema: object([]string{"title"}, map[string]any{
				"title":    str,
				"status":   str,
				"metadata": obj,
			}),
			Handler: t.Memory.CreateTask,
		},
		{
			Name:        "calendar_crud",
			Description: "Create, update, delete, or list calendar events (Google or Outlook). Requires approval.",
			InputSchema: object([]string{"action", "approved"}, map[string]any{
				"action":    map[string]any{"type": "string", "enum": []any{"create", "update", "delete", "list", "read"}},
				"provider":  str,
				"request":   str,
				"title":     str,
				"start":     str,
				"end":       str,
				"attendees": strArray,
				"location":  str,
				"event_id":  str,
				"approved":  approved,
			}),
			Handler: t.Calendar.Handle,
		},
		{
			Name:        "email_message",
			Description: "Search, compose, or send email (Google or Outlook). Requires approval.",
			InputSchema: object([]string{"action", "approved"}, map[string]any{
				"action":   map[string]any{"type": "string", "enum": []any{"search", "compose", "send"}},
				"provider": str,
				"request":  str,
				"query":    str,
				"to":       strArray,
				"cc":       strArray,
				"bcc":      strArray,
				"subject":  str,
				"body":     str,
				"draft_id": str,
				"approved": approved,
			}),
			Handler: t.Email.Handle,
		},
		{
			Name:        "smart_home_control",
			Description: "Call a Home Assistant service (turn_on, turn_off, set_temperature). Requires approval.",
			InputSchema: object([]string{"service", "approved"}, map[string]any{
				"service":   map[string]any{"type": []any{"string", "null"}},
				"domain":    str,
				"entity_id": str,
				"device_id": str,
				"data":      obj,
				"request":   str,
				"approved":  approved,
			}),
			Handler: t.Home.Handle,
		},
		{
			Name:        "system_command",
			Description: "Run an allowlisted local command (date, whoami, uptime, pwd, ls). Requires approval.",
			InputSchema: object([]string{"command", "approved"}, map[string]any{
				"command": map[string]any{
					"type":  []any{"string", "array"},
					"items": str,
				},
				"request":  str,
				"approved": approved,
			}),
			Handler: t.Commands.Handle,
		},
	}
}
