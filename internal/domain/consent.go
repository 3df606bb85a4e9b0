package domain

import (
	"time"
)

// Статусы State Machine
type ConsentStatus string

const (
	ConsentPending  ConsentStatus = "pending"
	ConsentApproved ConsentStatus = "approved"
	ConsentDenied   ConsentStatus = "denied"
)

// ParseConsentStatus разбирает фильтр из query-параметра. Пустая строка = без фильтра.
func ParseConsentStatus(s string) (ConsentStatus, bool) {
	switch ConsentStatus(s) {
	case "", ConsentPending, ConsentApproved, ConsentDenied:
		return ConsentStatus(s), true
	}
	return "", false
}

// ConsentRequest: «capability X хочет выполниться с аргументами Y, ждет решения человека».
// ResolvedAt и Resolution заполнены тогда и только тогда, когда Status != pending.
type ConsentRequest struct {
	ID             string        `json:"id"`
	CapabilityName string        `json:"capability_name"`
	Payload        Arguments     `json:"payload"` // Аргументы, которые выполнились бы
	Status         ConsentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Resolution *string    `json:"resolution,omitempty"`
}

// CanTransitionTo проверяет правила конечного автомата:
// pending -> approved | denied, из терминальных состояний выхода нет.
func (c *ConsentRequest) CanTransitionTo(next ConsentStatus) error {
	if c.Status != ConsentPending {
		return ErrAlreadyResolved
	}
	if next != ConsentApproved && next != ConsentDenied {
		return ErrInvalidTransition
	}
	return nil
}

// Resolve переводит запрос в терминальное состояние. Вызывать только после CanTransitionTo.
func (c *ConsentRequest) Resolve(approved bool, at time.Time) error {
	next := ConsentDenied
	if approved {
		next = ConsentApproved
	}
	if err := c.CanTransitionTo(next); err != nil {
		return err
	}
	resolution := string(next)
	c.Status = next
	c.ResolvedAt = &at
	c.Resolution = &resolution
	return nil
}

// Clone возвращает независимую копию, чтобы хранилища не отдавали наружу свои указатели.
func (c *ConsentRequest) Clone() *ConsentRequest {
	cp := *c
	cp.Payload = c.Payload.Clone()
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		cp.ResolvedAt = &t
	}
	if c.Resolution != nil {
		r := *c.Resolution
		cp.Resolution = &r
	}
	return &cp
}
