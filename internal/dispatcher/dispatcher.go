package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/gw2overlay/linkbridge/internal/dispatcher"

// Topics published by the bridge.
const (
	TopicSample    = "telemetry.sample"
	TopicMapChange = "telemetry.mapchange"
)

// ErrQueueFull is returned when a non-blocking buffered handler drops an event.
var ErrQueueFull = errors.New("dispatcher: queue full")

// Event is one published occurrence on a topic.
type Event struct {
	Topic   string
	Payload any
	Time    time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type buffer struct {
	topic string
	ch    chan Event
}

// Dispatcher routes events to the handlers subscribed to their topic.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	buffers  []buffer
	closed   bool
	wg       sync.WaitGroup
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a Dispatcher. Metrics go to the global OTel meter provider,
// which is a no-op until one is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}

	m := otel.Meter(meterName)
	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for _, b := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(b.ch)),
					metric.WithAttributes(attribute.String("topic", b.topic)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Subscribe adds a handler for topic. Several handlers may share a topic;
// they run in subscription order. Handlers must not call Subscribe or Close.
func (d *Dispatcher) Subscribe(topic string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(topic, handler)
	}
	if cfg.bufferSize > 0 {
		handler = d.withBuffer(topic, cfg.bufferSize, cfg.blocking, handler)
	}

	d.mu.Lock()
	d.handlers[topic] = append(d.handlers[topic], handler)
	d.mu.Unlock()
}

// Publish delivers e to every handler of its topic, stamping Time when unset.
// Errors from synchronous handlers and queue drops are joined.
func (d *Dispatcher) Publish(e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	// held across delivery so Close cannot close a buffer mid-send
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs := d.handlers[e.Topic]

	if d.closed {
		return fmt.Errorf("dispatcher closed: %s", e.Topic)
	}
	if len(hs) == 0 {
		return fmt.Errorf("no subscribers: %s", e.Topic)
	}

	var errs []error
	for _, h := range hs {
		if err := h(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasSubscribers reports whether any handler is registered for topic.
func (d *Dispatcher) HasSubscribers(topic string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[topic]) > 0
}

// Close stops accepting events and waits until buffered handlers have
// processed what was already queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, b := range d.buffers {
		close(b.ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(topic string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	ch := make(chan Event, size)

	d.mu.Lock()
	d.buffers = append(d.buffers, buffer{topic: topic, ch: ch})
	d.mu.Unlock()

	topicAttr := metric.WithAttributes(attribute.String("topic", topic))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range ch {
			if err := h(e); err != nil {
				d.logger.Error("buffered handler failed", "topic", topic, "error", err)
			}
			d.processed.Add(context.Background(), 1, topicAttr)
		}
	}()

	if blocking {
		return func(e Event) error {
			ch <- e
			return nil
		}
	}

	return func(e Event) error {
		select {
		case ch <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, topicAttr)
			return fmt.Errorf("%w: %s", ErrQueueFull, topic)
		}
	}
}

func (d *Dispatcher) withLogging(topic string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "topic", topic)

		err := h(e)
		if err != nil {
			d.logger.Error("event failed", "topic", topic, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "topic", topic, "duration", time.Since(start))
		}
		return err
	}
}
