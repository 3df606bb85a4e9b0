package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-assistant/internal/audit"
	"github.com/xela07ax/spaceai-assistant/internal/connectors"
	"github.com/xela07ax/spaceai-assistant/internal/console/server"
	"github.com/xela07ax/spaceai-assistant/internal/consent"
	"github.com/xela07ax/spaceai-assistant/internal/engine"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
	"github.com/xela07ax/spaceai-assistant/internal/infra/auth"
	"github.com/xela07ax/spaceai-assistant/internal/llm"
	"github.com/xela07ax/spaceai-assistant/internal/memory"
	"github.com/xela07ax/spaceai-assistant/internal/policy"
	"github.com/xela07ax/spaceai-assistant/internal/registry"
	"github.com/xela07ax/spaceai-assistant/internal/reliability"
	"github.com/xela07ax/spaceai-assistant/internal/repository/postgres"
	"github.com/xela07ax/spaceai-assistant/internal/synth"
)

// Сколько записей аудита поднимаем из базы при старте
const auditRestoreLimit = 1000

func main() {
	// 0. Конфиг и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	// При SIGINT/SIGTERM cancel остановит слушателей
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	checks := map[string]server.Pinger{}

	// 2. Инфраструктура (опционально: без Redis и Postgres все живет в памяти процесса)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var (
		consentStore consent.Store = consent.NewMemoryStore()
		agentFS      *audit.AgentFS
		auditRepo    *postgres.AuditRepo
	)
	if cfg.Database.URL != "" {
		ctx, cancelPing := context.WithTimeout(appCtx, 5*time.Second)
		repo, err := postgres.NewRepo(ctx, cfg.Database)
		cancelPing()
		if err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		defer repo.Close()
		if err := repo.Migrate(appCtx); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		checks["postgres"] = repo.Ping

		consentStore = postgres.NewConsentRepo(repo)
		auditRepo = postgres.NewAuditRepo(repo)
		// Теперь данные полетят в базу пачками
		agentFS = audit.NewAgentFS(auditRepo, logger, audit.Options{
			BufferSize:    cfg.Engine.AuditBufferSize,
			BatchSize:     cfg.Engine.AuditBatchSize,
			FlushInterval: cfg.Engine.AuditFlushInterval,
			BufferGauge:   metrics.AuditBufferFill,
		})
		agentFS.Start()
	}

	// 3. Audit Trail и журнал согласий
	var trailOpts []audit.TrailOption
	if agentFS != nil {
		trailOpts = append(trailOpts, audit.WithSink(agentFS))
	}
	trail := audit.NewTrail(logger, trailOpts...)
	if auditRepo != nil {
		history, err := auditRepo.Recent(appCtx, auditRestoreLimit)
		if err != nil {
			logger.Warn("audit history not restored", zap.Error(err))
		}
		trail.Restore(history)
	}

	var ledgerOpts []consent.Option
	if rdb != nil {
		ledgerOpts = append(ledgerOpts, consent.WithNotifier(consent.NewRedisNotifier(rdb)))
	}
	ledger := consent.NewLedger(consentStore, logger, ledgerOpts...)

	// 4. Control Plane: Kill-Switch и Sandbox по capability
	ksm := engine.NewKillSwitchManager(rdb, logger)
	sbm := engine.NewSandboxManager(rdb, logger)
	// Сначала прогрев из конфига, затем Init: состояние из Redis перекрывает конфиг
	if err := ksm.Warmup(appCtx, cfg.Engine.DisabledCapabilities); err != nil {
		logger.Warn("kill-switch warm-up failed", zap.Error(err))
	}
	for _, sw := range []*engine.CapabilitySwitch{ksm, sbm} {
		if err := sw.Init(appCtx); err != nil {
			logger.Fatal("failed to init capability switch", zap.String("kind", sw.Kind()), zap.Error(err))
		}
		go sw.Listen(appCtx)
	}

	// 5. Execution Layer (адаптеры + надежность)
	guard := func(name string) *reliability.Guard {
		return reliability.NewGuard(reliability.Settings{
			Name:          name,
			MaxRequests:   cfg.Engine.CBMaxRequests,
			Interval:      cfg.Engine.CBInterval,
			Timeout:       cfg.Engine.CBTimeout,
			Failures:      cfg.Engine.CBFailures,
			RateLimit:     cfg.Engine.RateLimit,
			Burst:         cfg.Engine.RateBurst,
			Attempts:      cfg.Engine.RetryAttempts,
			CallTimeout:   cfg.Engine.CallTimeout,
			OnStateChange: metrics.BreakerObserver,
		})
	}

	store, tasks := memory.NewVectorStore(memory.DefaultDimensions), memory.NewTaskStore()
	tools := connectors.Toolset{
		Memory:   connectors.NewMemoryTools(store, tasks),
		Calendar: connectors.NewCalendar(cfg.Connectors, logger),
		Email:    connectors.NewEmail(cfg.Connectors, logger),
		Home:     connectors.NewHomeAssistant(cfg.Connectors, &http.Client{}, guard("home-assistant"), logger),
		Commands: connectors.NewCommandRunner(connectors.OSExecutor{}, cfg.Engine.CommandTimeout, logger),
	}

	capabilities := registry.New()
	capabilities.MustRegister(tools.Capabilities()...)
	capabilities.Seal()

	providers := llm.NewRegistry([]llm.Config{
		{Name: llm.OpenAI, APIKey: cfg.Providers.OpenAI.APIKey, BaseURL: cfg.Providers.OpenAI.BaseURL, Model: cfg.Providers.OpenAI.Model},
		{Name: llm.Anthropic, APIKey: cfg.Providers.Anthropic.APIKey, BaseURL: cfg.Providers.Anthropic.BaseURL, Model: cfg.Providers.Anthropic.Model},
		{Name: llm.Local, APIKey: cfg.Providers.Local.APIKey, BaseURL: cfg.Providers.Local.BaseURL, Model: cfg.Providers.Local.Model},
	}, logger, llm.WithGuard(guard("llm")))

	// 6. Core (сборка оркестратора)
	core := engine.NewCore(engine.Deps{
		Registry:            capabilities,
		Synth:               synth.New(capabilities),
		Gate:                policy.NewGate(),
		Ledger:              ledger,
		Trail:               trail,
		Providers:           providers,
		KillSwitch:          ksm,
		Sandbox:             sbm,
		Metrics:             metrics,
		Logger:              logger,
		FileConsentRequests: cfg.Engine.FileConsentRequests,
		DefaultProvider:     cfg.Engine.DefaultProvider,
	})

	// 7. HTTP Server
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			logger.Fatal("invalid approver public key", zap.Error(err))
		}
		validator = auth.NewApproverValidator(pub,
			auth.WithIssuer(cfg.Auth.Issuer),
			auth.WithAudience(cfg.Auth.Audience),
			auth.WithLeeway(cfg.Auth.Leeway),
		)
	} else {
		logger.Warn("auth.public_key_path is empty: consent resolution is not authenticated")
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: server.New(server.Config{
			Core:      core,
			Memory:    store,
			Tasks:     tasks,
			Gatherer:  reg,
			Validator: validator,
			Checks:    checks,
		}, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("assistant started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", zap.Error(err))
			cancel()
		}
	}()

	// 8. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("assistant stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Сначала закрываем журнал, потом сливаем буфер AgentFS в базу
	trail.Close()
	if agentFS != nil {
		agentFS.Stop()
	}
	logger.Info("assistant exited properly")
}
