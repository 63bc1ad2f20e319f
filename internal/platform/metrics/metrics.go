package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
// All methods are safe on a nil Collector.
type Collector struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	scores          *prometheus.CounterVec
	malformedKPIs   prometheus.Counter
	reviewsReplaced prometheus.Counter
	jobRuns         *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpiboard_scores_computed_total",
			Help: "Period scores computed, by view and whether any review contributed.",
		}, []string{"view", "data"}),
		malformedKPIs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kpiboard_malformed_kpi_total",
			Help: "Score computations aborted by a KPI with an unusable weight.",
		}),
		reviewsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kpiboard_reviews_replaced_total",
			Help: "Review records written through replace-for-period.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpiboard_job_runs_total",
			Help: "Background job runs by type and final status.",
		}, []string{"job", "status"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests,
		c.duration,
		c.rateLimited,
		c.scores,
		c.malformedKPIs,
		c.reviewsReplaced,
		c.jobRuns,
	)
	return c
}

func (c *Collector) Record(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, route).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) ScoreComputed(view string, noData bool) {
	if c == nil {
		return
	}
	data := "reviewed"
	if noData {
		data = "none"
	}
	c.scores.WithLabelValues(view, data).Inc()
}

func (c *Collector) MalformedKPI() {
	if c == nil {
		return
	}
	c.malformedKPIs.Inc()
}

func (c *Collector) ReviewsReplaced(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.reviewsReplaced.Add(float64(n))
}

func (c *Collector) JobRun(jobType, status string) {
	if c == nil {
		return
	}
	c.jobRuns.WithLabelValues(jobType, status).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
