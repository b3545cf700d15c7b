// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証イベントの結果ラベル
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(method, outcome string)
	RecordTokenIssued(method string)
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordVerificationTokensCleared(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts      *prometheus.CounterVec
	tokensIssued      *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	verificationClear prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citary_auth_attempts_total",
			Help: "認証試行の合計数（方式・結果別）",
		}, []string{"method", "outcome"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citary_tokens_issued_total",
			Help: "発行したベアラートークンの合計数",
		}, []string{"method"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "citary_http_requests_total",
			Help: "HTTPリクエスト数（ルート・ステータスコード別）",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "citary_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		verificationClear: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citary_verification_tokens_cleared_total",
			Help: "破棄した期限切れメール確認トークンの合計数",
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.tokensIssued,
		c.httpRequests,
		c.httpLatency,
		c.verificationClear,
	)

	return c
}

// RecordAuthAttempt は認証試行を記録する。methodはpassword、google、verify_emailなど。
func (c *Collector) RecordAuthAttempt(method, outcome string) {
	c.authAttempts.WithLabelValues(method, outcome).Inc()
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued(method string) {
	c.tokensIssued.WithLabelValues(method).Inc()
}

// RecordHTTPRequest はHTTPリクエストのステータスと処理時間を記録する。
// routeにはパスパラメータを含まないルートパターンを渡す。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordVerificationTokensCleared は破棄した確認トークン数を記録する。
func (c *Collector) RecordVerificationTokensCleared(count int64) {
	c.verificationClear.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordAuthAttempt(string, string)                     {}
func (NopCollector) RecordTokenIssued(string)                             {}
func (NopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NopCollector) RecordVerificationTokensCleared(int64)                {}
