package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Inference metrics
	InferenceCalls    *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec

	// Book metrics
	Uploads *prometheus.CounterVec

	// Speech metrics
	SynthesisJobs *prometheus.CounterVec

	// Session metrics
	SessionsSaved prometheus.Counter
}

// NewMetrics registers collectors on a private registry so tests can build as many as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studymate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studymate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		),

		InferenceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studymate_inference_calls_total",
				Help: "Total number of LLM inference calls",
			},
			[]string{"provider", "mode", "outcome"},
		),
		InferenceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studymate_inference_duration_seconds",
				Help:    "LLM inference duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"provider", "mode"},
		),

		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studymate_uploads_total",
				Help: "Total number of book uploads by outcome",
			},
			[]string{"outcome"},
		),

		SynthesisJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studymate_synthesis_jobs_total",
				Help: "Total number of speech synthesis jobs by outcome",
			},
			[]string{"outcome"},
		),

		SessionsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "studymate_sessions_saved_total",
				Help: "Total number of session saves",
			},
		),
	}
}

func (m *Metrics) RecordInference(provider, mode, outcome string, duration time.Duration) {
	m.InferenceCalls.WithLabelValues(provider, mode, outcome).Inc()
	m.InferenceDuration.WithLabelValues(provider, mode).Observe(duration.Seconds())
}

func (m *Metrics) RecordUpload(outcome string) {
	m.Uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSynthesis(outcome string) {
	m.SynthesisJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSessionSave() {
	m.SessionsSaved.Inc()
}

// Handler exposes the private registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		route := ctx.Route().Path
		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		m.RequestsTotal.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
