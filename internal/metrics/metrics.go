package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the dashboard's collectors. A nil *Registry is valid and
// records nothing, so tests and tools can skip metrics entirely.
type Registry struct {
	reg *prometheus.Registry

	RecordsLoaded  prometheus.Gauge
	RowsDropped    prometheus.Counter
	CacheHits      prometheus.Counter
	PipelineRuns   prometheus.Counter
	RangesRejected prometheus.Counter
	EmptyResults   prometheus.Counter
	PipelineSec    prometheus.Histogram
	HTTPRequests   *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	loaded := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dashboard_records_loaded"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_rows_dropped_total"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_snapshot_cache_hits_total"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_pipeline_runs_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_ranges_rejected_total"})
	empty := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_empty_results_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_pipeline_seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dashboard_http_requests_total"}, []string{"method", "code"})

	r.MustRegister(loaded, dropped, cacheHits, runs, rejected, empty, latency, requests)
	return &Registry{
		reg:            r,
		RecordsLoaded:  loaded,
		RowsDropped:    dropped,
		CacheHits:      cacheHits,
		PipelineRuns:   runs,
		RangesRejected: rejected,
		EmptyResults:   empty,
		PipelineSec:    latency,
		HTTPRequests:   requests,
	}
}

func (r *Registry) ObserveLoad(kept, dropped int, fromCache bool) {
	if r == nil {
		return
	}
	r.RecordsLoaded.Set(float64(kept))
	r.RowsDropped.Add(float64(dropped))
	if fromCache {
		r.CacheHits.Inc()
	}
}

func (r *Registry) ObserveRun(seconds float64, records int) {
	if r == nil {
		return
	}
	r.PipelineRuns.Inc()
	r.PipelineSec.Observe(seconds)
	if records == 0 {
		r.EmptyResults.Inc()
	}
}

func (r *Registry) ObserveRejected() {
	if r == nil {
		return
	}
	r.RangesRejected.Inc()
}

func (r *Registry) ObserveRequest(method string, status int) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
