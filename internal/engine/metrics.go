package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка сообщения (включая адаптеры)
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во сообщений по intent
	TotalRequests *prometheus.CounterVec

	// Вызовы capability по итоговому статусу результата
	Invocations *prometheus.CounterVec

	// Errors: классификация отказов
	ErrorTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistant_request_duration_seconds",
			Help:    "Histogram of message handling latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"intent"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Total number of processed messages.",
		}, []string{"intent"}),

		Invocations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_capability_invocations_total",
			Help: "Capability invocations by result status.",
		}, []string{"capability", "status"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: completion, synthesis, consent_store, audit

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "assistant_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open).",
		}, []string{"target"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "assistant_audit_buffer_utilization",
			Help: "Current number of entries in audit buffer.",
		}),
	}
}

// BreakerObserver — колбэк для reliability.Settings.OnStateChange.
func (m *Metrics) BreakerObserver(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}
