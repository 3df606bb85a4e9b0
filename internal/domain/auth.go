package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// Скоупы оператора, который принимает решения по запросам на согласие
const (
	ScopeAdmin          = "admin"
	ScopeConsentResolve = "consents:resolve"
)

type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes"` // "admin": true или "consents:resolve": true
	jwt.RegisteredClaims
}

// CanResolveConsent: может ли владелец токена одобрять/отклонять запросы.
func (c *CustomClaims) CanResolveConsent() bool {
	return c.Scopes[ScopeAdmin] || c.Scopes[ScopeConsentResolve]
}
