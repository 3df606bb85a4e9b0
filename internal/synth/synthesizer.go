package synth

import (
	"fmt"
	"strings"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

// Args: структурированные аргументы конкретной capability.
type Args interface {
	Arguments() domain.Arguments
}

// Validator проверяет аргументы против схемы (реализуется registry.Registry).
type Validator interface {
	Validate(name string, args domain.Arguments) error
}

// Rule строит аргументы из исходного сообщения и его lower-case версии.
type Rule func(message, lowered string) Args

// Закрытый набор правил: по одному на каждую capability, которую выбирает intent.
var rules = map[string]Rule{
	"remember":           contentRule,
	"store_summary":      contentRule,
	"recall":             recallRule,
	"create_task":        taskRule,
	"calendar_crud":      calendarRule,
	"email_message":      emailRule,
	"smart_home_control": smartHomeRule,
	"system_command":     commandRule,
}

type Synthesizer struct {
	validator Validator
}

// New принимает валидатор схем; nil отключает проверку.
func New(v Validator) *Synthesizer {
	return &Synthesizer{validator: v}
}

// Synthesize превращает сырое сообщение в аргументы для выбранной capability.
func (s *Synthesizer) Synthesize(capability, message string) (domain.Arguments, error) {
	rule, ok := rules[capability]
	if !ok {
		return nil, fmt.Errorf("synth: no argument rule for %q: %w", capability, domain.ErrNotFound)
	}

	args := rule(message, strings.ToLower(message)).Arguments()

	if s.validator != nil {
		if err := s.validator.Validate(capability, args); err != nil {
			return nil, fmt.Errorf("synth: %w", err)
		}
	}
	return args, nil
}

// HasRule: есть ли правило для capability.
func HasRule(capability string) bool {
	_, ok := rules[capability]
	return ok
}

func contentRule(message, _ string) Args { return ContentArgs{Content: message} }

func recallRule(message, _ string) Args { return RecallArgs{Query: message} }

func taskRule(message, _ string) Args { return TaskArgs{Title: message} }

func calendarRule(message, lowered string) Args {
	action := "list"
	switch {
	case containsAny(lowered, "create", "schedule", "book"):
		action = "create"
	case containsAny(lowered, "update", "edit", "reschedule", "move"):
		action = "update"
	case containsAny(lowered, "delete", "cancel", "remove"):
		action = "delete"
	}
	return CalendarArgs{Action: action, Request: message}
}

func emailRule(message, lowered string) Args {
	action := "search"
	switch {
	case containsAny(lowered, "compose", "draft", "write"):
		action = "compose"
	case strings.Contains(lowered, "send"):
		action = "send"
	}
	return EmailArgs{Action: action, Request: message}
}

func smartHomeRule(message, lowered string) Args {
	var service string
	switch {
	case strings.Contains(lowered, "turn on"):
		service = "turn_on"
	case strings.Contains(lowered, "turn off"):
		service = "turn_off"
	case containsAny(lowered, "temperature", "thermostat"):
		service = "set_temperature"
	}
	return SmartHomeArgs{Service: service, Request: message}
}

// Команду из свободного текста не извлекаем: её задает человек при согласовании.
func commandRule(message, _ string) Args {
	return CommandArgs{Command: "", Request: message}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
