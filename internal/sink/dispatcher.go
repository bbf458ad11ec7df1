package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spendvoice/internal/log"
	"spendvoice/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Dispatcher fans a payload out to every sink in the background.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *log.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) DispatcherOption {
	return func(x *Dispatcher) { x.logger = l.WithComponent(log.ComponentSink) }
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(x *Dispatcher) { x.metrics = m }
}

func NewDispatcher(sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sinks:   sinks,
		timeout: defaultTimeout,
		logger:  log.Discard(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch returns immediately. Each sink gets exactly one attempt; failures
// are logged and counted, never returned. Cancelling ctx does not abort
// deliveries already issued.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) {
	if len(d.sinks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		var g errgroup.Group
		for _, s := range d.sinks {
			g.Go(func() error {
				return d.deliver(ctx, s, p)
			})
		}
		_ = g.Wait()
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, p Payload) error {
	err := s.Deliver(ctx, p)
	switch {
	case err == nil:
		d.metrics.RecordSinkDelivery(ctx, s.Name(), metrics.StatusOK)
		d.logger.DebugContext(ctx, "Sink delivery succeeded", log.FieldSink, s.Name(), log.FieldDate, p.Date)
		return nil
	case errors.Is(err, ErrNotConfigured):
		return nil
	default:
		d.metrics.RecordSinkDelivery(ctx, s.Name(), metrics.StatusError)
		d.logger.ErrorContext(ctx, "Sink delivery failed",
			log.FieldSink, s.Name(),
			log.FieldDate, p.Date,
			log.FieldError, err,
		)
		return err
	}
}

// Wait blocks until every issued dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
