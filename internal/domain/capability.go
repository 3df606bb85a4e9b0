package domain

import (
	"context"
	"maps"
	"slices"
)

// Arguments: аргументы вызова capability (JSON-объект).
type Arguments map[string]any

// Result: результат вызова. Доменные ошибки передаются через поле status, а не через error.
type Result map[string]any

// Статусы в Result
const (
	StatusOK                 = "ok"
	StatusError              = "error"
	StatusDenied             = "denied"
	StatusNotConfigured      = "not_configured"
	StatusPermissionRequired = "permission_required"
	StatusBlocked            = "blocked"
	StatusSimulated          = "simulated"
)

// Handler исполняет capability. Никогда не паникует на доменных ошибках.
type Handler func(ctx context.Context, args Arguments) Result

// Capability (a.k.a. Tool) регистрируется один раз при старте процесса.
type Capability struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
	Handler     Handler        `json:"-"`
}

// CapabilityDescriptor: элемент discovery payload для клиента.
type CapabilityDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

func (a Arguments) Clone() Arguments {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// Bool возвращает true только если значение настоящий bool true ("true" строкой не считается).
func (a Arguments) Bool(key string) bool {
	v, ok := a[key].(bool)
	return ok && v
}

func (a Arguments) String(key string) string {
	v, _ := a[key].(string)
	return v
}

// Status достает статус из результата, пустая строка если его нет.
func (r Result) Status() string {
	s, _ := r["status"].(string)
	return s
}

// ErrorResult: короткий конструктор для {status: error, message: ...}.
func ErrorResult(message string) Result {
	return Result{"status": StatusError, "message": message}
}

// CloneSchema делает глубокую копию JSON-Schema-подобной структуры с сохранением типов
// ([]string остается []string). Скаляры разделяются, они неизменяемы.
func CloneSchema(s map[string]any) map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = cloneSchemaValue(v)
	}
	return out
}

func cloneSchemaValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneSchema(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneSchemaValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = CloneSchema(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	}
	return v
}
