package otel

import (
	"context"
	"fmt"
	"time"

	"github.com/starrynight/startracker/internal/scene"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the OTel counterparts of the Prometheus batch metrics.
type Instruments struct {
	scenes      metric.Int64Counter
	starsDrawn  metric.Int64Counter
	overlaps    metric.Int64Counter
	renderTime  metric.Float64Histogram
	indexPairs  metric.Int64Counter
	indexBuildS metric.Float64Histogram
}

// NewInstruments registers every instrument on m.
func NewInstruments(m metric.Meter) (*Instruments, error) {
	var (
		in  Instruments
		err error
	)
	if in.scenes, err = m.Int64Counter("startracker.scenes",
		metric.WithDescription("Scenes rendered")); err != nil {
		return nil, fmt.Errorf("scenes counter: %w", err)
	}
	if in.starsDrawn, err = m.Int64Counter("startracker.stars.drawn",
		metric.WithDescription("Star patches drawn")); err != nil {
		return nil, fmt.Errorf("stars counter: %w", err)
	}
	if in.overlaps, err = m.Int64Counter("startracker.stars.skipped",
		metric.WithDescription("Stars skipped because their patch overlapped")); err != nil {
		return nil, fmt.Errorf("overlap counter: %w", err)
	}
	if in.renderTime, err = m.Float64Histogram("startracker.render.duration",
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("render histogram: %w", err)
	}
	if in.indexPairs, err = m.Int64Counter("startracker.index.pairs",
		metric.WithDescription("Pairs written to the angle index")); err != nil {
		return nil, fmt.Errorf("index counter: %w", err)
	}
	if in.indexBuildS, err = m.Float64Histogram("startracker.index.duration",
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("index histogram: %w", err)
	}
	return &in, nil
}

// RecordScene adds one rendered scene.
func (in *Instruments) RecordScene(ctx context.Context, sc *scene.Scene, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("variant", sc.Variant))
	in.scenes.Add(ctx, 1, attrs)
	in.starsDrawn.Add(ctx, int64(len(sc.Stars)-sc.Skipped), attrs)
	in.overlaps.Add(ctx, int64(sc.Skipped), attrs)
	in.renderTime.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordIndex adds one index build.
func (in *Instruments) RecordIndex(ctx context.Context, pairs int, elapsed time.Duration) {
	in.indexPairs.Add(ctx, int64(pairs))
	in.indexBuildS.Record(ctx, elapsed.Seconds())
}
