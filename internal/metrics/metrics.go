package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oceagpx_exports_total",
		Help: "Export files attempted, by mode and outcome",
	}, []string{"mode", "outcome"})
	PointsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oceagpx_points_in_total",
		Help: "Track points handed to the exporter",
	})
	PointsOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oceagpx_points_out_total",
		Help: "Track points written to GPX files",
	})
	ExportLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oceagpx_export_latency_seconds",
		Help:    "Time to thin and write one export file",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	SourceLoadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oceagpx_source_load_latency_seconds",
		Help:    "Time to load tracks from the navigation-log source",
		Buckets: prometheus.DefBuckets,
	})
	PreviewClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oceagpx_preview_clients",
		Help: "Connected preview websocket clients",
	})
)

func ObserveExport(mode string, start time.Time) {
	ExportLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func ObserveSourceLoad(start time.Time) {
	SourceLoadLatency.Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
