// Package app contains the price oracle for the pricing context.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/crosschain-arb/business/pricing/domain"
	venueapp "github.com/fd1az/crosschain-arb/business/venue/app"
	venuedomain "github.com/fd1az/crosschain-arb/business/venue/domain"
	"github.com/fd1az/crosschain-arb/internal/apperror"
	"github.com/fd1az/crosschain-arb/internal/asset"
	"github.com/fd1az/crosschain-arb/internal/logger"
	"github.com/fd1az/crosschain-arb/internal/notify"
)

const (
	tracerName = "pricing"
	meterName  = "pricing"
)

// EventPublisher is the slice of the notification dispatcher the oracle
// needs. *notify.Dispatcher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev notify.Event)
}

// OracleConfig holds oracle settings.
type OracleConfig struct {
	SampleTimeout time.Duration // budget for one full sampling round
}

// oracleMetrics holds OTEL metric instruments.
type oracleMetrics struct {
	samplesTotal   metric.Int64Counter
	partialSamples metric.Int64Counter
	sampleErrors   metric.Int64Counter
	sampleLatency  metric.Float64Histogram
}

// Oracle fans one price probe out to every venue concurrently and
// assembles the answers into a Sample.
type Oracle struct {
	config   OracleConfig
	adapters []venueapp.Adapter
	logger   logger.LoggerInterface
	events   EventPublisher

	tracer  trace.Tracer
	metrics *oracleMetrics
}

// NewOracle creates a price oracle over the given venue adapters.
func NewOracle(cfg OracleConfig, adapters []venueapp.Adapter, events EventPublisher, log logger.LoggerInterface) (*Oracle, error) {
	if cfg.SampleTimeout == 0 {
		cfg.SampleTimeout = 8 * time.Second
	}
	if len(adapters) == 0 {
		return nil, apperror.New(apperror.CodeRequiredField,
			apperror.WithMessage("oracle needs at least one venue adapter"))
	}

	o := &Oracle{
		config:   cfg,
		adapters: adapters,
		logger:   log,
		events:   events,
		tracer:   otel.Tracer(tracerName),
	}

	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return o, nil
}

func (o *Oracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.samplesTotal, err = meter.Int64Counter(
		"pricing_samples_total",
		metric.WithDescription("Total sampling rounds"),
	)
	if err != nil {
		return err
	}

	o.metrics.partialSamples, err = meter.Int64Counter(
		"pricing_partial_samples_total",
		metric.WithDescription("Rounds where at least one venue failed"),
	)
	if err != nil {
		return err
	}

	o.metrics.sampleErrors, err = meter.Int64Counter(
		"pricing_sample_errors_total",
		metric.WithDescription("Rounds where every venue failed"),
	)
	if err != nil {
		return err
	}

	o.metrics.sampleLatency, err = meter.Float64Histogram(
		"pricing_sample_latency_ms",
		metric.WithDescription("Full sampling round latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Sample probes every venue for the price of trading amount base tokens.
// Venues are probed concurrently; one venue's failure does not abort the
// others. The returned sample is never nil unless every venue failed.
func (o *Oracle) Sample(ctx context.Context, amount decimal.Decimal) (*domain.Sample, error) {
	ctx, span := o.tracer.Start(ctx, "pricing.sample",
		trace.WithAttributes(attribute.String("amount", amount.String())),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.config.SampleTimeout)
	defer cancel()

	start := time.Now()
	o.metrics.samplesTotal.Add(ctx, 1)

	sample := &domain.Sample{
		Quotes:    make(map[venuedomain.VenueID]venuedomain.Quote, len(o.adapters)),
		Errors:    make(map[venuedomain.VenueID]error),
		SampledAt: start,
	}

	var mu sync.Mutex
	var g errgroup.Group

	for _, adapter := range o.adapters {
		g.Go(func() error {
			size, err := asset.ParseDecimal(adapter.Pair().Base, amount)
			if err != nil {
				mu.Lock()
				sample.Errors[adapter.ID()] = apperror.Wrap(err, apperror.CodeInvalidTradeSize, string(adapter.ID()))
				mu.Unlock()
				return nil
			}

			quote, err := adapter.GetPrice(ctx, size)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sample.Errors[adapter.ID()] = err
				return nil
			}
			sample.Quotes[adapter.ID()] = *quote
			return nil
		})
	}

	// Errors are collected per venue, never returned from the group.
	_ = g.Wait()

	o.metrics.sampleLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	for id, err := range sample.Errors {
		o.logger.Warn(ctx, "venue sample failed", "venue", id, "error", err)
	}

	if len(sample.Quotes) == 0 {
		o.metrics.sampleErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "all venues failed")
		return nil, apperror.New(apperror.CodeSampleFailed,
			apperror.WithContext(fmt.Sprintf("%d venues polled", len(o.adapters))))
	}

	if sample.Partial() {
		o.metrics.partialSamples.Add(ctx, 1)
		span.AddEvent("partial_sample")
	}

	for _, quote := range sample.Quotes {
		o.events.Publish(ctx, notify.NewEvent(notify.KindPriceSampled, notify.PriceSampled{
			Venue:     string(quote.Venue),
			Pair:      quote.Pair.String(),
			Price:     quote.Price.Rate(),
			SampledAt: quote.SampledAt,
		}))
	}

	span.SetStatus(codes.Ok, "sample complete")
	return sample, nil
}
