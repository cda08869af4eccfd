// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SyncRecorder はGitHub同期ワーカーが利用するメトリクス記録インターフェース。
type SyncRecorder interface {
	RecordSyncSuccess(projectID string)
	RecordSyncFailure(projectID string, reason string)
	RecordSyncLatency(duration time.Duration)
	RecordContributionsImported(count int)
}

// HTTPRecorder はHTTPミドルウェアが利用するメトリクス記録インターフェース。
type HTTPRecorder interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
}

// 同期失敗の理由ラベル
const (
	ReasonRateLimited = "rate_limited"
	ReasonNotFound    = "not_found"
	ReasonStore       = "store"
	ReasonGitHub      = "github"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess     prometheus.Counter
	syncFail        *prometheus.CounterVec
	syncLatency     prometheus.Histogram
	contribImported prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
}

var (
	_ SyncRecorder = (*Collector)(nil)
	_ HTTPRecorder = (*Collector)(nil)
)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prboard_sync_success_total",
			Help: "プロジェクト同期成功の合計数",
		}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prboard_sync_fail_total",
			Help: "プロジェクト同期失敗の合計数",
		}, []string{"reason"}),
		syncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prboard_sync_latency_seconds",
			Help:    "プロジェクト同期のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		contribImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prboard_contributions_imported_total",
			Help: "新規に取り込まれたコントリビューションの合計数",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prboard_http_requests_total",
			Help: "HTTPメソッドとステータスコード別のリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prboard_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.syncLatency,
		c.contribImported,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordSyncSuccess は同期成功を記録する。
func (c *Collector) RecordSyncSuccess(projectID string) {
	c.syncSuccess.Inc()
}

// RecordSyncFailure は同期失敗を理由別に記録する。
func (c *Collector) RecordSyncFailure(projectID string, reason string) {
	c.syncFail.WithLabelValues(reason).Inc()
}

// RecordSyncLatency は同期のレイテンシを記録する。
func (c *Collector) RecordSyncLatency(duration time.Duration) {
	c.syncLatency.Observe(duration.Seconds())
}

// RecordContributionsImported は新規取り込み件数を記録する。
func (c *Collector) RecordContributionsImported(count int) {
	c.contribImported.Add(float64(count))
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
