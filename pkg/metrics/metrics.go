package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 摘要邮件发送结果
	DigestSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_send_total",
			Help: "Digest emails processed, by period and outcome",
		},
		[]string{"period", "status"}, // status: sent, skipped, failed
	)

	// 一次摘要批处理耗时（秒）
	DigestRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digest_run_duration_seconds",
			Help:    "Duration of a digest batch run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"period"},
	)

	// 因迭代上限或规则异常而提前停止的展开
	RecurrenceTruncatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recurrence_truncated_total",
			Help: "Recurring definitions whose expansion stopped early",
		},
		[]string{"source"}, // source: digest, api
	)

	// 慢查询计数
	DBSlowQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Database queries slower than the configured threshold",
		},
		[]string{"statement"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// outbox 事件流转：enqueued, published, failed
	OutboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox events by routing key and lifecycle step",
		},
		[]string{"routing_key", "result"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)
)

func RecordDigestSend(period, status string) {
	DigestSendTotal.WithLabelValues(period, status).Inc()
}

func RecordDigestRun(period string, duration time.Duration) {
	DigestRunDuration.WithLabelValues(period).Observe(duration.Seconds())
}

func IncrementRecurrenceTruncated(source string, n int) {
	RecurrenceTruncatedTotal.WithLabelValues(source).Add(float64(n))
}

// IncrementSlowQuery 以语句的首个关键字作为标签，避免基数爆炸
func IncrementSlowQuery(sql string, _ time.Duration) {
	DBSlowQueryTotal.WithLabelValues(statementKind(sql)).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordOutboxEvent(routingKey, result string) {
	OutboxEventsTotal.WithLabelValues(routingKey, result).Inc()
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "OTHER"
	}
	switch kw := strings.ToUpper(fields[0]); kw {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return kw
	}
	return "OTHER"
}
