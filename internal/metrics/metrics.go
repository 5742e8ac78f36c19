// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はリーダーストアとAPIクライアントのメトリクスを収集する。
// reader.Recorder と api.LatencyRecorder を実装する。
type Collector struct {
	syncTotal      *prometheus.CounterVec
	rollbackTotal  *prometheus.CounterVec
	apiLatency     *prometheus.HistogramVec
	entities       *prometheus.GaugeVec
	snapshotSaves  *prometheus.CounterVec
	refreshBackoff prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "likereader_sync_total",
			Help: "同期・取得操作の結果種別ごとの実行数",
		}, []string{"operation", "result"}),
		rollbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "likereader_mutation_rollback_total",
			Help: "楽観的更新のロールバック数",
		}, []string{"operation"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "likereader_api_latency_seconds",
			Help:    "リモートAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "likereader_entities",
			Help: "実体テーブルの件数",
		}, []string{"table"}),
		snapshotSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "likereader_snapshot_save_total",
			Help: "スナップショット保存の結果ごとの実行数",
		}, []string{"result"}),
		refreshBackoff: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "likereader_refresh_backoff_seconds",
			Help: "定期更新に適用中のバックオフ（秒）",
		}),
	}

	reg.MustRegister(
		c.syncTotal,
		c.rollbackTotal,
		c.apiLatency,
		c.entities,
		c.snapshotSaves,
		c.refreshBackoff,
	)

	return c
}

// RecordSync は同期・取得操作の結果を記録する。
func (c *Collector) RecordSync(operation, result string) {
	c.syncTotal.WithLabelValues(operation, result).Inc()
}

// RecordRollback は楽観的更新のロールバックを記録する。
func (c *Collector) RecordRollback(operation string) {
	c.rollbackTotal.WithLabelValues(operation).Inc()
}

// SetEntityCounts は実体テーブルの件数を記録する。
func (c *Collector) SetEntityCounts(contents, creators int) {
	c.entities.WithLabelValues("contents").Set(float64(contents))
	c.entities.WithLabelValues("creators").Set(float64(creators))
}

// RecordAPILatency はリモートAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordAPILatency(endpoint string, d time.Duration) {
	c.apiLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordSnapshotSave はスナップショット保存の成否を記録する。
func (c *Collector) RecordSnapshotSave(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.snapshotSaves.WithLabelValues(result).Inc()
}

// SetRefreshBackoff は定期更新に適用中のバックオフを記録する。
func (c *Collector) SetRefreshBackoff(d time.Duration) {
	c.refreshBackoff.Set(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
