package domain

// CapabilityInvocation (ToolCall) живет в рамках одного запроса.
type CapabilityInvocation struct {
	Name      string         `json:"name"`
	Arguments Arguments      `json:"arguments"`
	Schema    map[string]any `json:"schema"` // Копия схемы capability для трассируемости
	Result    Result         `json:"result"`
}

// AgentResponse: ответ оркестратора на одно входящее сообщение.
type AgentResponse struct {
	Intent     string                 `json:"intent"`
	Provider   string                 `json:"provider"`
	Completion map[string]any         `json:"completion"`
	ToolCalls  []CapabilityInvocation `json:"tool_calls"`
}
