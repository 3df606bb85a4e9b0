package synth

import "github.com/xela07ax/spaceai-assistant/internal/domain"

// Аргументы memory-capability. Поля approved у них нет и быть не должно.

type ContentArgs struct {
	Content string
}

func (a ContentArgs) Arguments() domain.Arguments {
	return domain.Arguments{"content": a.Content}
}

type RecallArgs struct {
	Query string
}

func (a RecallArgs) Arguments() domain.Arguments {
	return domain.Arguments{"query": a.Query}
}

type TaskArgs struct {
	Title string
}

func (a TaskArgs) Arguments() domain.Arguments {
	return domain.Arguments{"title": a.Title}
}

// Аргументы чувствительных capability всегда несут approved (по умолчанию false).

type CalendarArgs struct {
	Action   string
	Request  string
	Approved bool
}

func (a CalendarArgs) Arguments() domain.Arguments {
	return domain.Arguments{"action": a.Action, "request": a.Request, "approved": a.Approved}
}

type EmailArgs struct {
	Action   string
	Request  string
	Approved bool
}

func (a EmailArgs) Arguments() domain.Arguments {
	return domain.Arguments{"action": a.Action, "request": a.Request, "approved": a.Approved}
}

// SmartHomeArgs: пустой Service сериализуется как null (сервис не распознан).
type SmartHomeArgs struct {
	Service  string
	Request  string
	Approved bool
}

func (a SmartHomeArgs) Arguments() domain.Arguments {
	var service any
	if a.Service != "" {
		service = a.Service
	}
	return domain.Arguments{"service": service, "request": a.Request, "approved": a.Approved}
}

type CommandArgs struct {
	Command  string
	Request  string
	Approved bool
}

func (a CommandArgs) Arguments() domain.Arguments {
	return domain.Arguments{"command": a.Command, "request": a.Request, "approved": a.Approved}
}
