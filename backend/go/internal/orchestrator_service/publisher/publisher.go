package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/logger"
)

const (
	defaultQueueSize      = 1024
	defaultPublishTimeout = 5 * time.Second
)

// EventPublisher delivers task progress events to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.TaskEvent) error
	Close() error
}

// MultiOption configures a Multi.
type MultiOption func(*Multi)

// WithQueueSize sets how many events each sink may have pending before new ones are dropped.
func WithQueueSize(n int) MultiOption {
	return func(m *Multi) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// WithPublishTimeout bounds every call into a sink.
func WithPublishTimeout(d time.Duration) MultiOption {
	return func(m *Multi) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// Multi fans events out to every sink without waiting for them.
// Each sink has its own queue and worker, so a slow sink neither blocks the
// caller nor delays the others, and events reach each sink in publish order.
// A full queue drops the event for that sink; failures are logged.
type Multi struct {
	logger    *logger.Logger
	queueSize int
	timeout   time.Duration

	mu     sync.RWMutex
	sinks  []*sinkQueue
	closed bool
}

type queuedEvent struct {
	ctx   context.Context
	event *models.TaskEvent
}

type sinkQueue struct {
	name  string
	pub   EventPublisher
	queue chan queuedEvent
	done  chan struct{}
}

// NewMulti creates an empty fan-out publisher.
func NewMulti(log *logger.Logger, opts ...MultiOption) *Multi {
	if log == nil {
		log = logger.Discard()
	}
	m := &Multi{
		logger:    log,
		queueSize: defaultQueueSize,
		timeout:   defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers a sink under a name used in logs and starts its worker.
func (m *Multi) Add(name string, pub EventPublisher) {
	s := &sinkQueue{
		name:  name,
		pub:   pub,
		queue: make(chan queuedEvent, m.queueSize),
		done:  make(chan struct{}),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.sinks = append(m.sinks, s)
	go m.drain(s)
}

// Len returns the number of registered sinks.
func (m *Multi) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

// Publish queues event for every sink and returns immediately.
func (m *Multi) Publish(ctx context.Context, event *models.TaskEvent) error {
	// Delivery happens after the caller returns, so only ctx values are kept.
	ctx = context.WithoutCancel(ctx)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}
	for _, s := range m.sinks {
		select {
		case s.queue <- queuedEvent{ctx: ctx, event: event}:
		default:
			m.logger.WithTask(event.TaskID).
				WithPayload(map[string]interface{}{"sink": s.name, "seq": event.Activity.Seq}).
				Warn("Event queue full, dropping task event")
		}
	}
	return nil
}

func (m *Multi) drain(s *sinkQueue) {
	defer close(s.done)
	for q := range s.queue {
		ctx, cancel := context.WithTimeout(q.ctx, m.timeout)
		err := s.pub.Publish(ctx, q.event)
		cancel()
		if err != nil {
			m.logger.WithTask(q.event.TaskID).
				WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"sink": s.name, "seq": q.event.Activity.Seq}).
				Warn("Failed to publish task event")
		}
	}
}

// Close stops accepting events, delivers what is already queued,
// then closes every sink and returns the joined errors.
func (m *Multi) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sinks := m.sinks
	m.mu.Unlock()

	for _, s := range sinks {
		close(s.queue)
	}
	var errs []error
	for _, s := range sinks {
		<-s.done
		if err := s.pub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
