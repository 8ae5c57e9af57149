package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/oews-ingest/internal/progress"
)

// PrometheusSink exports run and batch counters.
type PrometheusSink struct {
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runsActive    prometheus.Gauge
	runDuration   *prometheus.HistogramVec

	rowsWritten   *prometheus.CounterVec
	rowsSkipped   *prometheus.CounterVec
	batches       *prometheus.CounterVec
	seriesChecked *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec

	mu     sync.Mutex
	active map[[16]byte]struct{}
}

// NewPrometheusSink registers the collectors on reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_runs_started_total",
			Help: "Ingest runs started, by kind.",
		}, []string{"kind"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_runs_completed_total",
			Help: "Ingest runs completed, by kind and result.",
		}, []string{"kind", "result"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oews_runs_active",
			Help: "Ingest runs currently in progress.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oews_run_duration_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"kind", "result"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_rows_written_total",
			Help: "Rows inserted, by subject.",
		}, []string{"kind", "subject"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_rows_skipped_total",
			Help: "Rows skipped as conflicts, filtered or rejected, by subject.",
		}, []string{"kind", "subject"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_batches_total",
			Help: "Batches committed, by stage.",
		}, []string{"kind", "stage"}),
		seriesChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oews_series_checked_total",
			Help: "Series sent to the timeseries API, by result.",
		}, []string{"result"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oews_batch_duration_seconds",
			Help:    "Time to parse, validate and commit one batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind", "stage"}),
		active: make(map[[16]byte]struct{}),
	}
	for _, c := range []prometheus.Collector{
		s.runsStarted, s.runsCompleted, s.runsActive, s.runDuration,
		s.rowsWritten, s.rowsSkipped, s.batches, s.seriesChecked, s.batchDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		kind := evt.Kind
		if kind == "" {
			kind = "unknown"
		}
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.WithLabelValues(kind).Inc()
			if s.track(evt.RunID, true) {
				s.runsActive.Inc()
			}
		case progress.StageRunDone, progress.StageRunError:
			result := "success"
			if evt.Stage == progress.StageRunError {
				result = "error"
			}
			s.runsCompleted.WithLabelValues(kind, result).Inc()
			if evt.Dur > 0 {
				s.runDuration.WithLabelValues(kind, result).Observe(evt.Dur.Seconds())
			}
			if s.track(evt.RunID, false) {
				s.runsActive.Dec()
			}
		case progress.StageBatchCommitted, progress.StageBatchResolved:
			s.batches.WithLabelValues(kind, string(evt.Stage)).Inc()
			if evt.Rows > 0 {
				s.rowsWritten.WithLabelValues(kind, evt.Subject).Add(float64(evt.Rows))
			}
			if evt.Skipped > 0 {
				s.rowsSkipped.WithLabelValues(kind, evt.Subject).Add(float64(evt.Skipped))
			}
			if evt.Stage == progress.StageBatchResolved {
				s.seriesChecked.WithLabelValues("found").Add(float64(evt.Found))
				if missing := evt.Requested - evt.Found; missing > 0 {
					s.seriesChecked.WithLabelValues("missing").Add(float64(missing))
				}
			}
			if evt.Dur > 0 {
				s.batchDuration.WithLabelValues(kind, string(evt.Stage)).Observe(evt.Dur.Seconds())
			}
		}
	}
	return nil
}

// track records a run as active (start) or finished and reports whether the
// set changed.
func (s *PrometheusSink) track(id [16]byte, start bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	if start {
		s.active[id] = struct{}{}
		return !ok
	}
	delete(s.active, id)
	return ok
}

// Close is a no-op.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
