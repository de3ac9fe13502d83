// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordRegistration()
	RecordLogin(success bool)
	RecordTokenVerification(result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations      prometheus.Counter
	logins             *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
	requestDuration    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_registrations_total",
			Help: "ユーザー登録成功の合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_logins_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_token_verifications_total",
			Help: "トークン検証の結果別合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskboard_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.tokenVerifications,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordRegistration はユーザー登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLogin はログイン試行を結果別に記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordTokenVerification はトークン検証の結果を記録する。
// resultは ok / missing / expired / bad_signature のいずれか。
func (c *Collector) RecordTokenVerification(result string) {
	c.tokenVerifications.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
