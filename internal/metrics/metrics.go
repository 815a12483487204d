// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証・認可・クリーンアップワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordRoleResolution(source string)
	RecordAuthzDecision(decision string)
	RecordDiscordLatency(endpoint string, duration time.Duration)
	RecordSessionsPurged(count int64)
}

// ログイン結果ラベル
const (
	LoginSuccess       = "success"
	LoginProviderError = "provider_error"
	LoginStoreError    = "store_error"
	LoginStateMismatch = "state_mismatch"
)

// ロール解決ソースラベル
const (
	RoleSourceLive       = "live"
	RoleSourceEmbedded   = "embedded"
	RoleSourceLiveFailed = "live_failed"
	RoleSourceNone       = "none"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins         *prometheus.CounterVec
	roleResolution *prometheus.CounterVec
	authzDecisions *prometheus.CounterVec
	discordLatency *prometheus.HistogramVec
	sessionsPurged prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_login_total",
			Help: "ログインコールバックの結果別合計数",
		}, []string{"result"}),
		roleResolution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_role_resolution_total",
			Help: "ロール解決の情報源別合計数",
		}, []string{"source"}),
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_authz_decisions_total",
			Help: "認可判定の結果別合計数",
		}, []string{"decision"}),
		discordLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registro_discord_request_duration_seconds",
			Help:    "Discord API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "registro_sessions_purged_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.roleResolution,
		c.authzDecisions,
		c.discordLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordLogin はログインコールバックの結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordRoleResolution はロール解決に使われた情報源を記録する。
func (c *Collector) RecordRoleResolution(source string) {
	c.roleResolution.WithLabelValues(source).Inc()
}

// RecordAuthzDecision は認可判定の結果を記録する。
func (c *Collector) RecordAuthzDecision(decision string) {
	c.authzDecisions.WithLabelValues(decision).Inc()
}

// RecordDiscordLatency はDiscord API呼び出しのレイテンシを記録する。
func (c *Collector) RecordDiscordLatency(endpoint string, duration time.Duration) {
	c.discordLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。
// メトリクスが不要なテストやCLIサブコマンドで使う。
type NopCollector struct{}

var _ MetricsCollector = NopCollector{}

func (NopCollector) RecordLogin(string)                         {}
func (NopCollector) RecordRoleResolution(string)                {}
func (NopCollector) RecordAuthzDecision(string)                 {}
func (NopCollector) RecordDiscordLatency(string, time.Duration) {}
func (NopCollector) RecordSessionsPurged(int64)                 {}
