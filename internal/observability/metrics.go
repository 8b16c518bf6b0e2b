package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiErrors   *Counter

	aggOps       *CounterVec
	aggLatency   *HistogramVec
	aggConflicts *CounterVec
	aggRetries   *CounterVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmFallback *CounterVec

	cacheLookups *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Enabled reports METRICS_ENABLED.
func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process metrics, or nil when metrics are disabled.
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

// Init builds the process-wide registry. Returns nil when disabled; every
// method on a nil *Metrics is a no-op.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	latencyBuckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	return &Metrics{
		apiRequests: NewCounterVec("syncraft_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("syncraft_api_request_duration_seconds", "API request latency by method/route/status.", []string{"method", "route", "status"}, latencyBuckets),
		apiInflight: NewGauge("syncraft_api_inflight_requests", "In-flight API requests."),
		apiErrors:   NewCounter("syncraft_api_requests_error_total", "API requests answered with a 5xx status."),

		aggOps:       NewCounterVec("syncraft_aggregate_operations_total", "Aggregate write operations by name/status.", []string{"operation", "status"}),
		aggLatency:   NewHistogramVec("syncraft_aggregate_operation_duration_seconds", "Aggregate write latency by name/status.", []string{"operation", "status"}, latencyBuckets),
		aggConflicts: NewCounterVec("syncraft_aggregate_conflicts_total", "Aggregate writes that ended in a conflict.", []string{"operation"}),
		aggRetries:   NewCounterVec("syncraft_aggregate_retryable_total", "Aggregate writes that ended retryable.", []string{"operation"}),

		llmRequests: NewCounterVec("syncraft_llm_requests_total", "LLM generations by provider/model/status.", []string{"provider", "model", "status"}),
		llmLatency:  NewHistogramVec("syncraft_llm_request_duration_seconds", "LLM generation latency by provider/model.", []string{"provider", "model"}, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}),
		llmFallback: NewCounterVec("syncraft_llm_fallback_total", "Answers replaced by the fallback text.", []string{"reason"}),

		cacheLookups: NewCounterVec("syncraft_cache_lookups_total", "Cache lookups by keyspace/result.", []string{"keyspace", "result"}),

		dbStats:   NewGaugeVec("syncraft_db_pool", "database/sql pool stats.", []string{"stat"}),
		redisUp:   NewGauge("syncraft_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("syncraft_redis_ping_seconds", "Latency of the last redis ping."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	collectors := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.aggOps, m.aggLatency, m.aggConflicts, m.aggRetries,
		m.llmRequests, m.llmLatency, m.llmFallback,
		m.cacheLookups,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, c := range collectors {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if strings.HasPrefix(status, "5") {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggOps.Inc(name, status)
	m.aggLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggConflicts.Inc(name)
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggRetries.Inc(name)
}

func (m *Metrics) ObserveLLMRequest(provider, model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(provider, model, status)
	m.llmLatency.Observe(dur.Seconds(), provider, model)
}

func (m *Metrics) IncLLMFallback(reason string) {
	if m == nil {
		return
	}
	m.llmFallback.Inc(reason)
}

func (m *Metrics) ObserveCacheLookup(keyspace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Inc(keyspace, result)
}

// StartDBCollector samples the sql.DB pool until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
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
				s := sqlDB.Stats()
				m.dbStats.Set(float64(s.OpenConnections), "open")
				m.dbStats.Set(float64(s.InUse), "in_use")
				m.dbStats.Set(float64(s.Idle), "idle")
				m.dbStats.Set(float64(s.WaitCount), "wait_count")
				m.dbStats.Set(s.WaitDuration.Seconds(), "wait_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the cache's redis until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
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
