package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/spaceai-assistant/internal/console/handler"
	"github.com/xela07ax/spaceai-assistant/internal/engine"
	"github.com/xela07ax/spaceai-assistant/internal/infra/auth"
	"github.com/xela07ax/spaceai-assistant/internal/memory"
	"go.uber.org/zap"
)

// Core: то, что HTTP-слою нужно от оркестратора.
type Core interface {
	handler.Orchestrator
	handler.ConsentService
	handler.AuditLog
	handler.CapabilityService
}

// Pinger: проверка зависимостей для /health (Postgres, Redis).
type Pinger func(ctx context.Context) error

type Config struct {
	Core     Core
	Memory   *memory.VectorStore
	Tasks    *memory.TaskStore
	Gatherer prometheus.Gatherer

	// Validator == nil: решения и переключатели без авторизации (локальный режим)
	Validator auth.TokenValidator
	Checks    map[string]Pinger
}

type Server struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    Config

	chatHandler       *handler.ChatHandler       // /v1/chat, /v1/voice
	consentHandler    *handler.ConsentHandler    // /v1/consents (HITL)
	auditHandler      *handler.AuditHandler      // /v1/audit
	capabilityHandler *handler.CapabilityHandler // /v1/capabilities
	memoryHandler     *handler.MemoryHandler     // /v1/tasks, /v1/memory
}

// New собирает тонкий HTTP-слой поверх оркестратора
func New(cfg Config, logger *zap.Logger) *Server {
	logger = logger.Named("console-api")
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router:            chi.NewRouter(),
		logger:            logger,
		cfg:               cfg,
		chatHandler:       handler.NewChatHandler(cfg.Core, logger),
		consentHandler:    handler.NewConsentHandler(cfg.Core, logger),
		auditHandler:      handler.NewAuditHandler(cfg.Core, logger),
		capabilityHandler: handler.NewCapabilityHandler(cfg.Core, logger),
		memoryHandler:     handler.NewMemoryHandler(cfg.Memory, cfg.Tasks),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(engine.TracingMiddleware)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.chatHandler.Chat)
		r.Post("/voice", s.chatHandler.Voice)

		r.Get("/capabilities", s.capabilityHandler.List)
		r.Get("/capabilities/states", s.capabilityHandler.States)

		r.Get("/consents", s.consentHandler.List)
		r.Get("/consents/{id}", s.consentHandler.Get)
		r.Get("/audit", s.auditHandler.GetLogs)

		r.Get("/tasks", s.memoryHandler.ListTasks)
		r.Post("/tasks", s.memoryHandler.CreateTask)
		r.Get("/memory", s.memoryHandler.ListMemory)
		r.Post("/memory", s.memoryHandler.CreateMemory)

		// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (RS256 токен согласующего) ---
		r.Group(func(r chi.Router) {
			if s.cfg.Validator != nil {
				r.Use(auth.NewMiddleware(s.cfg.Validator, s.logger))
			}

			// Human-in-the-loop
			r.Post("/consents/{id}/resolve", s.consentHandler.Resolve)

			// Kill-Switch и Sandbox по capability
			r.Route("/capabilities/{name}", func(r chi.Router) {
				r.Post("/disable", s.capabilityHandler.Disable)
				r.Post("/enable", s.capabilityHandler.Enable)
				r.Post("/sandbox", s.capabilityHandler.SandboxOn)
				r.Delete("/sandbox", s.capabilityHandler.SandboxOff)
			})
		})
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	for name, check := range s.cfg.Checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body[name] = "unavailable"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestLogger: access log через zap вместо стандартного log из chi middleware.Logger
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("trace_id", engine.TraceID(r.Context())),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
