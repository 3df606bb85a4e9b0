package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

// ErrNoApprover: токен валиден, но не называет согласующего. Решение без автора в аудит не пишем.
var ErrNoApprover = errors.New("token does not identify an approver")

// ApproverValidator проверяет RS256-токены согласующих. Токены выпускает внешний IdP,
// сервис только сверяет подпись, срок, и (если заданы) issuer/audience.
type ApproverValidator struct {
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

type ValidatorOption func(*validatorSettings)

type validatorSettings struct {
	issuer   string
	audience string
	leeway   time.Duration
}

// WithIssuer требует claim iss.
func WithIssuer(iss string) ValidatorOption {
	return func(s *validatorSettings) { s.issuer = iss }
}

// WithAudience требует, чтобы токен был выпущен для этого сервиса (aud).
func WithAudience(aud string) ValidatorOption {
	return func(s *validatorSettings) { s.audience = aud }
}

// WithLeeway допускает расхождение часов с IdP.
func WithLeeway(d time.Duration) ValidatorOption {
	return func(s *validatorSettings) { s.leeway = d }
}

func NewApproverValidator(pubKey *rsa.PublicKey, opts ...ValidatorOption) *ApproverValidator {
	var s validatorSettings
	for _, opt := range opts {
		opt(&s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(s.audience))
	}
	if s.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(s.leeway))
	}

	return &ApproverValidator{publicKey: pubKey, parser: jwt.NewParser(parserOpts...)}
}

// VerifyToken реализует интерфейс auth.TokenValidator.
// Идентичность согласующего: user_id, при его отсутствии sub. Права (scopes) проверяет middleware.
func (v *ApproverValidator) VerifyToken(tokenStr string) (*domain.CustomClaims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))

	claims := &domain.CustomClaims{}
	token, err := v.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid approver token: %w", err)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrNoApprover
	}
	return claims, nil
}

// ParseRSAPublicKey превращает PEM в ключ для проверки подписи
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("public key data is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}
