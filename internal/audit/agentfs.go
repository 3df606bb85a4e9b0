package audit

/*
Файл agentfs.go реализует AgentFS, асинхронную доставку записей журнала
в долговременное хранилище (Postgres).

- Non-blocking: Log никогда не ждет БД. Запись кладется в ограниченный канал,
  при переполнении она не теряется молча: в лог уходит id записи.
- Batching: воркер копит записи и пишет пачкой по размеру или по таймеру.
- Drain: Stop закрывает вход, воркер вычитывает остаток канала и делает
  финальный flush. После Stop горутин не остается.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться записи
type StorageInterface interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, entries []domain.AuditLogEntry) error
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// Заполненность буфера (backpressure), опционально
	BufferGauge prometheus.Gauge
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 10000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 500 * time.Millisecond
	}
	return o
}

type AgentFS struct {
	ch     chan domain.AuditLogEntry // Буфер для асинхронности
	repo   StorageInterface
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup

	// Log держит RLock на время неблокирующей отправки, Stop берет Lock и закрывает канал:
	// так отправка в закрытый канал невозможна.
	mu       sync.RWMutex
	isClosed bool
	stopOnce sync.Once
}

func NewAgentFS(repo StorageInterface, logger *zap.Logger, opts Options) *AgentFS {
	opts = opts.withDefaults()
	return &AgentFS{
		ch:     make(chan domain.AuditLogEntry, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "agentfs")),
	}
}

func (fs *AgentFS) Start() {
	fs.wg.Add(1)
	go fs.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет. Повторный вызов безопасен.
func (fs *AgentFS) Stop() {
	fs.stopOnce.Do(func() {
		fs.logger.Info("stopping auditor: closing channel and flushing buffer...")

		fs.mu.Lock()
		fs.isClosed = true
		close(fs.ch)
		fs.mu.Unlock()

		fs.wg.Wait()
		fs.logger.Info("auditor stopped gracefully")
	})
}

// Log реализует audit.Sink.
func (fs *AgentFS) Log(entry domain.AuditLogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.isClosed {
		fs.logger.Warn("audit entry dropped: auditor is stopping", zap.String("id", entry.ID))
		return
	}

	// Load Shedding: при переполнении не блокируем hot path
	select {
	case fs.ch <- entry:
		fs.observeFill()
	default:
		fs.logger.Error("audit_buffer_overflow",
			zap.String("id", entry.ID),
			zap.String("event", entry.Event),
		)
	}
}

func (fs *AgentFS) observeFill() {
	if fs.opts.BufferGauge != nil {
		fs.opts.BufferGauge.Set(float64(len(fs.ch)))
	}
}

func (fs *AgentFS) worker() {
	defer fs.wg.Done()

	batch := make([]domain.AuditLogEntry, 0, fs.opts.BatchSize)
	ticker := time.NewTicker(fs.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: контекст запроса к этому моменту уже завершен
		if err := fs.repo.WriteBatch(context.Background(), batch); err != nil {
			fs.logger.Error("audit flush failed", zap.Int("count", len(batch)), zap.Error(err))
		}
		// Новый срез: хранилище могло сохранить ссылку на старый
		batch = make([]domain.AuditLogEntry, 0, fs.opts.BatchSize)
		fs.observeFill()
	}

	for {
		select {
		case entry, ok := <-fs.ch:
			if !ok {
				// Канал закрыт в Stop(): остаток уже вычитан, делаем финальный сброс
				flush()
				fs.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, entry)
			if len(batch) >= fs.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
