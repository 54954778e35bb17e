package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/crosschain-arb/internal/logger"
)

const meterName = "crosschain-arb/notify"

// DispatcherConfig holds dispatcher settings.
type DispatcherConfig struct {
	BufferSize      int           // queued events before Publish starts dropping
	DeliveryTimeout time.Duration // per-sink delivery budget
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BufferSize:      256,
		DeliveryTimeout: 5 * time.Second,
	}
}

// dispatcherMetrics holds OTEL metric instruments.
type dispatcherMetrics struct {
	published      metric.Int64Counter
	dropped        metric.Int64Counter
	deliveryErrors metric.Int64Counter
}

// Dispatcher fans events out to all registered sinks from a single
// background goroutine. Publish never blocks: when the buffer is full the
// event is dropped and counted.
type Dispatcher struct {
	config DispatcherConfig
	logger logger.LoggerInterface
	sinks  []Sink

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	metrics *dispatcherMetrics
}

// NewDispatcher creates a dispatcher delivering to the given sinks.
func NewDispatcher(cfg DispatcherConfig, log logger.LoggerInterface, sinks ...Sink) (*Dispatcher, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultDispatcherConfig().BufferSize
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDispatcherConfig().DeliveryTimeout
	}

	d := &Dispatcher{
		config: cfg,
		logger: log,
		sinks:  sinks,
		events: make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	if err := d.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	d.wg.Add(1)
	go d.run()

	return d, nil
}

// initMetrics initializes OTEL metric instruments.
func (d *Dispatcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &dispatcherMetrics{}

	d.metrics.published, err = meter.Int64Counter(
		"notify_events_published_total",
		metric.WithDescription("Events accepted for delivery"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	d.metrics.dropped, err = meter.Int64Counter(
		"notify_events_dropped_total",
		metric.WithDescription("Events dropped because the buffer was full"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	d.metrics.deliveryErrors, err = meter.Int64Counter(
		"notify_delivery_errors_total",
		metric.WithDescription("Per-sink delivery failures"),
		metric.WithUnit("{error}"),
	)
	return err
}

// Publish enqueues an event for delivery. Never blocks.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.events <- ev:
		d.metrics.published.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(ev.Kind))))
	default:
		d.metrics.dropped.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(ev.Kind))))
		d.logger.Warn(ctx, "notification dropped, buffer full", "kind", ev.Kind)
	}
}

// Close stops the dispatcher after draining queued events.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			// Drain whatever made it into the buffer before shutdown.
			for {
				select {
				case ev := <-d.events:
					d.deliver(ev)
				default:
					return
				}
			}
		case ev := <-d.events:
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
		err := sink.Notify(ctx, ev)
		cancel()

		if err != nil {
			d.metrics.deliveryErrors.Add(context.Background(), 1,
				metric.WithAttributes(
					attribute.String("sink", sink.Name()),
					attribute.String("kind", string(ev.Kind)),
				))
			d.logger.Warn(context.Background(), "notification delivery failed",
				"sink", sink.Name(),
				"kind", ev.Kind,
				"error", err)
		}
	}
}
