package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации ассистента.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Connectors ConnectorsConfig `mapstructure:"connectors"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr собирает адрес для http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig описывает подключение к PostgreSQL. Пустой URL: работаем в памяти.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и Sets). Пустой Addr: без Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит путь к публичному RSA ключу для проверки JWT согласующих.
// Issuer/Audience пустые: соответствующие claims не проверяются.
type AuthConfig struct {
	PublicKeyPath string        `mapstructure:"public_key_path"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	Leeway        time.Duration `mapstructure:"leeway"`
	PublicKey     []byte
}

// EngineConfig содержит настройки оркестратора.
type EngineConfig struct {
	AuditBufferSize    int           `mapstructure:"audit_buffer_size"`
	AuditFlushInterval time.Duration `mapstructure:"audit_flush_interval"`
	AuditBatchSize     int           `mapstructure:"audit_batch_size"`

	CommandTimeout       time.Duration `mapstructure:"command_timeout"`
	FileConsentRequests  bool          `mapstructure:"file_consent_requests"`
	DisabledCapabilities []string      `mapstructure:"disabled_capabilities"`
	DefaultProvider      string        `mapstructure:"default_provider"`

	// Настройки Circuit Breaker и лимитера для исходящих вызовов
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// ProviderConfig — настройки одного completion-бэкенда.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Local     ProviderConfig `mapstructure:"local"`
}

// ConnectorsConfig — учетные данные внешних провайдеров. Никогда не логируются.
type ConnectorsConfig struct {
	DefaultProvider      string `mapstructure:"default_provider"` // google | outlook
	GoogleCalendarToken  string `mapstructure:"google_calendar_token"`
	OutlookCalendarToken string `mapstructure:"outlook_calendar_token"`
	GoogleEmailToken     string `mapstructure:"google_email_token"`
	OutlookEmailToken    string `mapstructure:"outlook_email_token"`
	HomeAssistantURL     string `mapstructure:"home_assistant_url"`
	HomeAssistantToken   string `mapstructure:"home_assistant_token"`
}

// envBindings связывает ключи конфига с "плоскими" переменными окружения,
// которые не выводятся через SetEnvKeyReplacer.
var envBindings = map[string]string{
	"database.url":                      "DB_URL",
	"connectors.google_calendar_token":  "GOOGLE_CALENDAR_TOKEN",
	"connectors.outlook_calendar_token": "OUTLOOK_CALENDAR_TOKEN",
	"connectors.google_email_token":     "GOOGLE_EMAIL_TOKEN",
	"connectors.outlook_email_token":    "OUTLOOK_EMAIL_TOKEN",
	"connectors.home_assistant_url":     "HOME_ASSISTANT_URL",
	"connectors.home_assistant_token":   "HOME_ASSISTANT_TOKEN",
	"providers.openai.api_key":          "OPENAI_API_KEY",
	"providers.openai.base_url":         "OPENAI_BASE_URL",
	"providers.openai.model":            "OPENAI_MODEL",
	"providers.anthropic.api_key":       "ANTHROPIC_API_KEY",
	"providers.anthropic.base_url":      "ANTHROPIC_BASE_URL",
	"providers.anthropic.model":         "ANTHROPIC_MODEL",
	"providers.local.api_key":           "LOCAL_API_KEY",
	"providers.local.base_url":          "LOCAL_BASE_URL",
	"providers.local.model":             "LOCAL_MODEL",
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	return loadConfig(".", "./configs")
}

func loadConfig(paths ...string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет, работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Загрузка ключа из Файла ИЛИ из ENV
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("engine.audit_buffer_size", 1000)
	v.SetDefault("engine.audit_flush_interval", 500*time.Millisecond)
	v.SetDefault("engine.audit_batch_size", 100)
	v.SetDefault("engine.command_timeout", 5*time.Second)
	v.SetDefault("engine.file_consent_requests", true)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.leeway", 30*time.Second)
	v.SetDefault("engine.disabled_capabilities", []string{})
	v.SetDefault("engine.default_provider", "local")
	v.SetDefault("engine.cb_max_requests", 3)
	v.SetDefault("engine.cb_interval", 5*time.Second)
	v.SetDefault("engine.cb_timeout", 30*time.Second)
	v.SetDefault("engine.cb_failures", 5)
	v.SetDefault("engine.rate_limit", 100.0)
	v.SetDefault("engine.rate_burst", 20)
	v.SetDefault("engine.retry_attempts", 3)
	v.SetDefault("engine.call_timeout", 10*time.Second)

	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.anthropic.model", "claude-3-haiku")
	v.SetDefault("providers.local.model", "local-llm")

	v.SetDefault("connectors.default_provider", "google")
}

// loadKeyResource — ключ из ENV (PEM целиком) имеет приоритет над файлом
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
