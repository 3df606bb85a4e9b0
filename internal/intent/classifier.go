package intent

import "strings"

// Tag: результат классификации сообщения.
type Tag string

const (
	Remember      Tag = "remember"
	StoreSummary  Tag = "store_summary"
	CreateTask    Tag = "create_task"
	Recall        Tag = "recall"
	Calendar      Tag = "calendar"
	Email         Tag = "email"
	SmartHome     Tag = "smart_home"
	SystemCommand Tag = "system_command"
	General       Tag = "general"
)

type group struct {
	tag      Tag
	keywords []string
}

// Порядок важен: первая совпавшая группа выигрывает.
var groups = []group{
	{Remember, []string{"remember", "save", "note"}},
	{StoreSummary, []string{"summary", "summarize"}},
	{CreateTask, []string{"task", "todo", "remind"}},
	{Recall, []string{"recall", "search", "lookup", "find memory"}},
	{Calendar, []string{"calendar", "schedule", "meeting", "appointment"}},
	{Email, []string{"email", "mail", "inbox", "message"}},
	{SmartHome, []string{"home assistant", "smart home", "lights", "thermostat"}},
	{SystemCommand, []string{"run command", "execute", "terminal", "shell"}},
}

// capabilities: intent -> имя capability. General ничего не вызывает.
var capabilities = map[Tag]string{
	Remember:      "remember",
	StoreSummary:  "store_summary",
	CreateTask:    "create_task",
	Recall:        "recall",
	Calendar:      "calendar_crud",
	Email:         "email_message",
	SmartHome:     "smart_home_control",
	SystemCommand: "system_command",
}

// Classify детерминирована и чиста: регистронезависимый поиск подстрок.
// Для любой строки (включая пустую) возвращает тег, по умолчанию General.
func Classify(message string) Tag {
	lowered := strings.ToLower(message)
	for _, g := range groups {
		if containsAny(lowered, g.keywords) {
			return g.tag
		}
	}
	return General
}

// CapabilityFor возвращает ноль или одно имя capability для тега.
func CapabilityFor(tag Tag) (string, bool) {
	name, ok := capabilities[tag]
	return name, ok
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
