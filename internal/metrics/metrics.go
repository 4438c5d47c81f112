// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/hitoshi/blackjack/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// プレイ処理のサービス層から利用する。
type MetricsCollector interface {
	RecordHandPlayed(winner bool)
	RecordStageFailure(stage model.Stage)
	RecordStageLatency(stage model.Stage, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	handsPlayed   *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		handsPlayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackjack_hands_played_total",
			Help: "保存まで完了したハンドの合計数（勝敗別）",
		}, []string{"outcome"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackjack_stage_failures_total",
			Help: "段階別のプレイ失敗数",
		}, []string{"stage"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blackjack_stage_latency_seconds",
			Help:    "段階別の処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	reg.MustRegister(
		c.handsPlayed,
		c.stageFailures,
		c.stageLatency,
	)

	return c
}

// RecordHandPlayed は保存まで完了したハンドを記録する。
func (c *Collector) RecordHandPlayed(winner bool) {
	outcome := "loser"
	if winner {
		outcome = "winner"
	}
	c.handsPlayed.WithLabelValues(outcome).Inc()
}

// RecordStageFailure は段階ごとの失敗を記録する。
func (c *Collector) RecordStageFailure(stage model.Stage) {
	c.stageFailures.WithLabelValues(string(stage)).Inc()
}

// RecordStageLatency は段階ごとの処理時間を記録する。
func (c *Collector) RecordStageLatency(stage model.Stage, duration time.Duration) {
	c.stageLatency.WithLabelValues(string(stage)).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
