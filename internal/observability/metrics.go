package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	webhookAttempts   *prometheus.CounterVec
	webhookDispatches *prometheus.CounterVec
	webhookLatency    *prometheus.HistogramVec
	webhookConfigErrs *prometheus.CounterVec
	breakerStates     *prometheus.GaugeVec
	breakerRejections *prometheus.CounterVec

	messages      *prometheus.CounterVec
	edits         *prometheus.CounterVec
	softDeleted   prometheus.Counter
	titles        *prometheus.CounterVec
	auditEvents   *prometheus.CounterVec
	auditFailures *prometheus.CounterVec

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process-wide metrics, or nil when metrics are disabled.
// Every method on *Metrics is nil-safe.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		instance = New(reg)
		if log != nil {
			log.Info("prometheus metrics initialized")
		}
	})
	return instance
}

// New builds a Metrics bound to reg. Init is the production entry point;
// tests call New with a private registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		webhookAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_webhook_attempts_total",
			Help: "Outbound webhook HTTP attempts by mode and result.",
		}, []string{"mode", "result"}),
		webhookDispatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_webhook_dispatches_total",
			Help: "Completed webhook dispatches by mode and outcome code.",
		}, []string{"mode", "outcome"}),
		webhookLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pc_webhook_dispatch_duration_seconds",
			Help:    "Wall time of a webhook dispatch including retries and backoff.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"mode", "outcome"}),
		webhookConfigErrs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_webhook_configuration_errors_total",
			Help: "Webhook configuration errors by reason.",
		}, []string{"reason"}),
		breakerStates: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pc_circuit_breakers",
			Help: "Number of persona circuit breakers in each state.",
		}, []string{"state"}),
		breakerRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_circuit_breaker_rejections_total",
			Help: "Chat requests rejected because the persona breaker was open.",
		}, []string{"persona_id"}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_messages_total",
			Help: "Persisted chat messages by role.",
		}, []string{"role"}),
		edits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_message_edits_total",
			Help: "Message edits by regeneration result.",
		}, []string{"regenerated"}),
		softDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "pc_messages_soft_deleted_total",
			Help: "Messages discarded by edit branching.",
		}),
		titles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_conversation_titles_total",
			Help: "Resolved conversation titles by source and whether they were stored.",
		}, []string{"source", "stored"}),
		auditEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_audit_events_total",
			Help: "Audit events recorded by type.",
		}, []string{"event"}),
		auditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pc_audit_failures_total",
			Help: "Audit sink failures by sink.",
		}, []string{"sink"}),
		pgStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pc_postgres_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "pc_redis_up",
			Help: "1 if the last redis ping succeeded.",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Name: "pc_redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
	}
}

// Registry exposes the underlying registry for HTTP middleware recorders.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveWebhookAttempt(mode, result string) {
	if m == nil {
		return
	}
	m.webhookAttempts.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) ObserveWebhookDispatch(mode, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.webhookDispatches.WithLabelValues(mode, outcome).Inc()
	m.webhookLatency.WithLabelValues(mode, outcome).Observe(dur.Seconds())
}

func (m *Metrics) IncWebhookConfigError(reason string) {
	if m == nil {
		return
	}
	m.webhookConfigErrs.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncBreakerRejection(personaID string) {
	if m == nil {
		return
	}
	m.breakerRejections.WithLabelValues(personaID).Inc()
}

// SetBreakerStates replaces the per-state breaker counts.
func (m *Metrics) SetBreakerStates(counts map[string]int) {
	if m == nil {
		return
	}
	m.breakerStates.Reset()
	for state, n := range counts {
		m.breakerStates.WithLabelValues(state).Set(float64(n))
	}
}

func (m *Metrics) IncMessage(role string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(role).Inc()
}

func (m *Metrics) ObserveEdit(regenerated bool, softDeleted int64) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(strconv.FormatBool(regenerated)).Inc()
	if softDeleted > 0 {
		m.softDeleted.Add(float64(softDeleted))
	}
}

func (m *Metrics) ObserveTitle(source string, stored bool) {
	if m == nil {
		return
	}
	m.titles.WithLabelValues(source, strconv.FormatBool(stored)).Inc()
}

func (m *Metrics) IncAuditEvent(event string) {
	if m == nil {
		return
	}
	m.auditEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) IncAuditFailure(sink string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(sink).Inc()
}

// StartBreakerCollector periodically copies breaker state counts into the gauge.
func (m *Metrics) StartBreakerCollector(ctx context.Context, counts func() map[string]int) {
	if m == nil || counts == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SetBreakerStates(counts())
			}
		}
	}()
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
