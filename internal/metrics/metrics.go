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
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(method string, duration time.Duration)
	RecordSessionUpserted(week int)
	RecordCapacityRejected()
	RecordDiarySlotUpdated()
	RecordUploadBytes(kind string, size int64)
	RecordMediaCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus       *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	sessionsUpserted *prometheus.CounterVec
	capacityRejected prometheus.Counter
	diaryUpdates     prometheus.Counter
	uploadBytes      *prometheus.CounterVec
	mediaCleaned     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isofit_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "isofit_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		sessionsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isofit_training_sessions_upserted_total",
			Help: "週別のトレーニングセッション書き込み数",
		}, []string{"week"}),
		capacityRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "isofit_training_capacity_rejected_total",
			Help: "週あたりの上限超過で拒否されたセッション書き込み数",
		}),
		diaryUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "isofit_diary_slot_updates_total",
			Help: "血圧日誌タイムスロットの更新数",
		}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "isofit_media_upload_bytes_total",
			Help: "種別ごとのメディアアップロード量（バイト）",
		}, []string{"kind"}),
		mediaCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "isofit_media_cleaned_total",
			Help: "クリーンアップで削除された孤立メディア数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.sessionsUpserted,
		c.capacityRejected,
		c.diaryUpdates,
		c.uploadBytes,
		c.mediaCleaned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(method string, duration time.Duration) {
	c.requestLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSessionUpserted はセッション書き込みを記録する。
func (c *Collector) RecordSessionUpserted(week int) {
	c.sessionsUpserted.WithLabelValues(strconv.Itoa(week)).Inc()
}

// RecordCapacityRejected は上限超過による拒否を記録する。
func (c *Collector) RecordCapacityRejected() {
	c.capacityRejected.Inc()
}

// RecordDiarySlotUpdated はタイムスロット更新を記録する。
func (c *Collector) RecordDiarySlotUpdated() {
	c.diaryUpdates.Inc()
}

// RecordUploadBytes はアップロード量を記録する。kindはimagesまたはvideos。
func (c *Collector) RecordUploadBytes(kind string, size int64) {
	c.uploadBytes.WithLabelValues(kind).Add(float64(size))
}

// RecordMediaCleaned は削除された孤立メディア数を記録する。
func (c *Collector) RecordMediaCleaned(count int64) {
	c.mediaCleaned.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordHTTPStatus(int)                        {}
func (Nop) RecordRequestLatency(string, time.Duration) {}
func (Nop) RecordSessionUpserted(int)                  {}
func (Nop) RecordCapacityRejected()                    {}
func (Nop) RecordDiarySlotUpdated()                    {}
func (Nop) RecordUploadBytes(string, int64)            {}
func (Nop) RecordMediaCleaned(int64)                   {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
