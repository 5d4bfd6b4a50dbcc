// Package metrics holds the Prometheus collectors for render and index
// batches. The CLI is short-lived, so metrics are written to a node
// exporter textfile instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/starrynight/startracker/internal/angles"
	"github.com/starrynight/startracker/internal/scene"
)

const namespace = "startracker"

// Metrics are all collectors of one process.
type Metrics struct {
	scenesTotal    *prometheus.CounterVec
	starsTotal     *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	visibleStars   *prometheus.GaugeVec

	indexPairs    prometheus.Gauge
	indexStars    prometheus.Gauge
	indexDuration prometheus.Histogram

	matchesTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scenesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenes_total",
			Help:      "Total scenes rendered",
		}, []string{"variant"}),

		starsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stars_total",
			Help:      "Stars placed in rendered scenes",
		}, []string{"variant", "result"}), // "drawn" / "skipped"

		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Scene composition duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"variant"}),

		visibleStars: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_stars",
			Help:      "Visible stars in the last rendered scene",
		}, []string{"variant"}),

		indexPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_pairs",
			Help:      "Pairs in the last built angle index",
		}),

		indexStars: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_stars",
			Help:      "Catalog stars fed to the last index build",
		}),

		indexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Angle index build duration",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		matchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triad_matches_total",
			Help:      "Triad identification attempts",
		}, []string{"result"}), // "none" / "unique" / "ambiguous"
	}

	reg.MustRegister(
		m.scenesTotal, m.starsTotal,
		m.renderDuration, m.visibleStars,
		m.indexPairs, m.indexStars, m.indexDuration,
		m.matchesTotal,
	)
	return m
}

// ObserveScene records one rendered scene.
func (m *Metrics) ObserveScene(sc *scene.Scene, elapsed time.Duration) {
	m.scenesTotal.WithLabelValues(sc.Variant).Inc()
	m.starsTotal.WithLabelValues(sc.Variant, "drawn").Add(float64(len(sc.Stars) - sc.Skipped))
	m.starsTotal.WithLabelValues(sc.Variant, "skipped").Add(float64(sc.Skipped))
	m.renderDuration.WithLabelValues(sc.Variant).Observe(elapsed.Seconds())
	m.visibleStars.WithLabelValues(sc.Variant).Set(float64(sc.Visible))
}

// ObserveIndex records one index build.
func (m *Metrics) ObserveIndex(stats angles.Stats) {
	m.indexPairs.Set(float64(stats.Kept))
	m.indexStars.Set(float64(stats.Stars))
	m.indexDuration.Observe(stats.Elapsed.Seconds())
}

// ObserveMatch records a triad lookup that returned n candidates.
func (m *Metrics) ObserveMatch(n int) {
	result := "ambiguous"
	switch n {
	case 0:
		result = "none"
	case 1:
		result = "unique"
	}
	m.matchesTotal.WithLabelValues(result).Inc()
}

// WriteTextfile writes everything g gathers to path in the text format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
