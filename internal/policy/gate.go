package policy

import (
	"fmt"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

// Sensitive: capability, чье исполнение имеет внешние, возможно необратимые последствия.
var Sensitive = []string{
	"calendar_crud",
	"email_message",
	"smart_home_control",
	"system_command",
}

// Enforcer решает, можно ли выполнить вызов сразу или нужно согласие человека.
type Enforcer interface {
	Check(capability string, args domain.Arguments) (allowed bool, reason string)
}

// Gate: статическая классификация чувствительности. Чистая функция без побочных эффектов:
// создание ConsentRequest остается за вызывающего (оркестратора).
type Gate struct {
	sensitive map[string]struct{}
}

// NewGate без аргументов использует набор Sensitive.
func NewGate(sensitive ...string) *Gate {
	if len(sensitive) == 0 {
		sensitive = Sensitive
	}
	g := &Gate{sensitive: make(map[string]struct{}, len(sensitive))}
	for _, name := range sensitive {
		g.sensitive[name] = struct{}{}
	}
	return g
}

func (g *Gate) IsSensitive(capability string) bool {
	_, ok := g.sensitive[capability]
	return ok
}

// Check: не чувствительные всегда разрешены с пустой причиной,
// чувствительные только при approved == true (именно bool).
func (g *Gate) Check(capability string, args domain.Arguments) (bool, string) {
	if !g.IsSensitive(capability) {
		return true, ""
	}
	if args.Bool("approved") {
		return true, ""
	}
	return false, fmt.Sprintf("Permission required to run %s.", capability)
}
