package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "devit"
)

// Ключи для Sets (состояние)
const (
	RedisKeyBlockedCapabilities = RedisNamespace + ":capabilities:blocked_set"
	RedisKeySandboxCapabilities = RedisNamespace + ":capabilities:sandbox_set"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanConsentDecisions: канал для трансляции решений оператора (HITL).
	RedisChanConsentDecisions     = RedisNamespace + ":consents:decisions"
	RedisChanCapabilityKillSwitch = RedisNamespace + ":capabilities:kill-switch-signal"
	RedisChanCapabilitySandbox    = RedisNamespace + ":capabilities:sandbox-signal"
)

// GetWarmupLockKey Генератор ключей для блокировок прогрева
func GetWarmupLockKey(resource string) string {
	return fmt.Sprintf("%s:lock:warmup:%s", RedisNamespace, resource)
}
