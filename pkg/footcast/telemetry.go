package footcast

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry collects run metrics on a private registry, written out as a textfile at the end of a run
type Telemetry struct {
	Registry *prometheus.Registry

	MatchesLoaded  prometheus.Gauge
	MissingOdds    prometheus.Gauge
	SplitRows      *prometheus.GaugeVec
	ModelScore     *prometheus.GaugeVec
	TrainDuration  *prometheus.HistogramVec
	FixturesScored prometheus.Counter
	LastRun        prometheus.Gauge
}

func NewTelemetry() *Telemetry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Telemetry{
		Registry: reg,
		MatchesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "footcast_matches_loaded",
			Help: "Historical matches loaded after dedupe and division filter",
		}),
		MissingOdds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "footcast_missing_odds_rows",
			Help: "Feature rows that fell back to the neutral odds prior",
		}),
		SplitRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "footcast_split_rows",
			Help: "Rows per partition",
		}, []string{"part"}),
		ModelScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "footcast_model_score",
			Help: "Evaluation metric per model and partition",
		}, []string{"model", "part", "metric"}),
		TrainDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "footcast_train_duration_seconds",
			Help:    "Time spent fitting each model",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"model"}),
		FixturesScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "footcast_fixtures_scored_total",
			Help: "Upcoming fixtures given a prediction",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "footcast_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// ObserveMetrics records every metric of one evaluation
func (t *Telemetry) ObserveMetrics(model, part string, m Metrics) {
	t.ModelScore.WithLabelValues(model, part, "accuracy").Set(m.Accuracy)
	t.ModelScore.WithLabelValues(model, part, "macro_f1").Set(m.MacroF1)
	t.ModelScore.WithLabelValues(model, part, "log_loss").Set(m.LogLoss)
	t.ModelScore.WithLabelValues(model, part, "brier").Set(m.Brier)
}

// ObserveTraining records how long fitting a model took
func (t *Telemetry) ObserveTraining(model string, d time.Duration) {
	t.TrainDuration.WithLabelValues(model).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile format
func (t *Telemetry) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	t.LastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
