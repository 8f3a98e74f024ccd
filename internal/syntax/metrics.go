package syntax

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jward/arbor/syntax"

// instruments groups the OTel instruments shared by a Parser and the trees it
// produces. A nil instrument is skipped.
type instruments struct {
	parses    metric.Int64Counter
	failures  metric.Int64Counter
	duration  metric.Float64Histogram
	liveTrees metric.Int64UpDownCounter
}

func newInstruments(mp metric.MeterProvider, logger *slog.Logger) *instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	in := &instruments{}

	var err error
	in.parses, err = meter.Int64Counter(
		"arbor_parse_operations_total",
		metric.WithDescription("Total number of parse operations"),
	)
	if err != nil {
		logger.Warn("failed to create parse counter", "error", err)
	}

	in.failures, err = meter.Int64Counter(
		"arbor_parse_failures_total",
		metric.WithDescription("Total number of parse operations that produced no tree"),
	)
	if err != nil {
		logger.Warn("failed to create failure counter", "error", err)
	}

	in.duration, err = meter.Float64Histogram(
		"arbor_parse_duration_seconds",
		metric.WithDescription("Parse operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", "error", err)
	}

	in.liveTrees, err = meter.Int64UpDownCounter(
		"arbor_live_trees",
		metric.WithDescription("Number of syntax trees whose engine memory is still held"),
	)
	if err != nil {
		logger.Warn("failed to create live tree counter", "error", err)
	}

	return in
}

func (in *instruments) recordParse(ctx context.Context, lang string, incremental bool, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("language", lang),
		attribute.Bool("incremental", incremental),
	)
	if in.parses != nil {
		in.parses.Add(ctx, 1, attrs)
	}
	if err != nil && in.failures != nil {
		in.failures.Add(ctx, 1, attrs)
	}
	if in.duration != nil {
		in.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

func (in *instruments) treeDelta(lang string, delta int64) {
	if in == nil || in.liveTrees == nil {
		return
	}
	in.liveTrees.Add(context.Background(), delta, metric.WithAttributes(attribute.String("language", lang)))
}
