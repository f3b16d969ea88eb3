package server

import (
	"net/http"
	"time"

	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for sync jobs and implements [tasks.Observer].
//
// Collectors live on a private registry so several instances (one per test) never collide.
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal   *prometheus.CounterVec
	TracksTotal *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	ActiveJobs  prometheus.Gauge
}

var _ tasks.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the sync collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playsync_jobs_total",
				Help: "Total number of finished sync jobs",
			},
			[]string{"direction", "status"},
		),
		TracksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playsync_tracks_total",
				Help: "Total number of tracks processed by outcome",
			},
			[]string{"direction", "result"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playsync_job_duration_seconds",
				Help:    "Wall time from job start to its terminal state",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"direction"},
		),
		ActiveJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "playsync_active_jobs",
				Help: "Number of sync jobs currently running",
			},
		),
	}

	m.registry.MustRegister(m.JobsTotal, m.TracksTotal, m.JobDuration, m.ActiveJobs)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) JobStarted(direction string) {
	m.ActiveJobs.Inc()
}

func (m *Metrics) JobFinished(direction string, status models.SyncStatus, elapsed time.Duration) {
	m.ActiveJobs.Dec()
	m.JobsTotal.WithLabelValues(direction, string(status)).Inc()
	m.JobDuration.WithLabelValues(direction).Observe(elapsed.Seconds())
}

func (m *Metrics) TrackProcessed(direction, result string) {
	m.TracksTotal.WithLabelValues(direction, result).Inc()
}
