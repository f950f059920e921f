package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ParcelsBuiltTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parapi_parcels_built_total",
		Help: "Total number of parcels assembled into a valid polygon",
	})
	ParcelsUnclosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parapi_parcels_unclosed_total",
		Help: "Total number of parcels whose boundary could not be closed or classified",
	})
	RowsWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parapi_rows_written_total",
		Help: "Total parcel rows written to the sink (including null-geometry placeholders)",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parapi_cache_hits_total",
		Help: "Total redis geometry cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parapi_cache_misses_total",
		Help: "Total redis geometry cache misses",
	})
	AssembleDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parapi_assemble_duration_ms",
		Help:    "Per-parcel fetch and assemble duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	SegmentsPerParcel = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parapi_segments_per_parcel",
		Help:    "Boundary segment count per parcel",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	})
)

func init() {
	prometheus.MustRegister(ParcelsBuiltTotal)
	prometheus.MustRegister(ParcelsUnclosedTotal)
	prometheus.MustRegister(RowsWrittenTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(AssembleDurationMs)
	prometheus.MustRegister(SegmentsPerParcel)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：批量构建可能长时间运行，暴露进度指标便于外部观测；未配置监听地址时不启用。
func Handler() http.Handler { return promhttp.Handler() }
