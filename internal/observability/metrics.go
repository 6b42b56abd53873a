// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paper_digest"

// Metrics counts what one process did. The pipeline is a batch job, so the
// registry is written to a node-exporter textfile instead of being scraped.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// PapersFetched counts normalized papers per category.
	PapersFetched *prometheus.CounterVec

	// EntriesSkipped counts feed entries dropped for missing fields, per category.
	EntriesSkipped *prometheus.CounterVec

	// PageFailures counts feed page requests that ended a stream, per category.
	PageFailures *prometheus.CounterVec

	// Fallbacks counts categories re-fetched through the resilient stream.
	Fallbacks *prometheus.CounterVec

	// StageSurvivors records how many papers left each pipeline stage.
	StageSurvivors *prometheus.GaugeVec

	// CollaboratorFailures counts LLM calls that fell back to their default, by call.
	CollaboratorFailures *prometheus.CounterVec

	// BatchesDelivered counts webhook batches by status ("ok", "failed").
	BatchesDelivered *prometheus.CounterVec

	// LastRunSeconds and LastRunTimestamp describe the latest completed run.
	LastRunSeconds   prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PapersFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "papers_fetched_total",
			Help: "Papers fetched from the feed, by category.",
		}, []string{"category"}),
		EntriesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "feed_entries_skipped_total",
			Help: "Feed entries skipped for missing required fields, by category.",
		}, []string{"category"}),
		PageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "feed_page_failures_total",
			Help: "Feed page requests that failed and ended the stream, by category.",
		}, []string{"category"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "feed_fallbacks_total",
			Help: "Categories re-fetched with the resilient stream, by category.",
		}, []string{"category"}),
		StageSurvivors: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "stage_papers",
			Help: "Papers remaining after each pipeline stage in the latest run.",
		}, []string{"stage"}),
		CollaboratorFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_failures_total",
			Help: "LLM calls that failed and used their fallback policy, by call.",
		}, []string{"call"}),
		BatchesDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "webhook_batches_total",
			Help: "Webhook batches sent, by status.",
		}, []string{"status"}),
		LastRunSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_duration_seconds",
			Help: "Wall-clock duration of the latest run.",
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time at which the latest run finished.",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Fetched(category string, n int) {
	if m != nil {
		m.PapersFetched.WithLabelValues(category).Add(float64(n))
	}
}

func (m *Metrics) Skipped(category string) {
	if m != nil {
		m.EntriesSkipped.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) PageFailed(category string) {
	if m != nil {
		m.PageFailures.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) FellBack(category string) {
	if m != nil {
		m.Fallbacks.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) Stage(stage string, n int) {
	if m != nil {
		m.StageSurvivors.WithLabelValues(stage).Set(float64(n))
	}
}

func (m *Metrics) CollaboratorFailed(call string) {
	if m != nil {
		m.CollaboratorFailures.WithLabelValues(call).Inc()
	}
}

func (m *Metrics) Batch(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.BatchesDelivered.WithLabelValues(status).Inc()
}

// RunFinished records the duration of a completed run.
func (m *Metrics) RunFinished(d time.Duration, at time.Time) {
	if m != nil {
		m.LastRunSeconds.Set(d.Seconds())
		m.LastRunTimestamp.Set(float64(at.Unix()))
	}
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
