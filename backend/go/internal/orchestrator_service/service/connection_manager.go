package service

import (
	"context"
	"sync"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/logger"
)

const subscriberBuffer = 64

// Subscription receives the live events of one task.
// Events is closed after the terminal event, on Cancel, or when the subscriber falls behind.
type Subscription struct {
	Events <-chan *models.TaskEvent

	taskID  string
	ch      chan *models.TaskEvent
	manager *ConnectionManager
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.manager.remove(s.taskID, s)
}

// ConnectionManager tracks live websocket subscribers per task and implements
// publisher.EventPublisher so it can sit next to the Kafka and Redis sinks.
type ConnectionManager struct {
	mu          sync.Mutex
	subscribers map[string]map[*Subscription]struct{}
	logger      *logger.Logger
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager(log *logger.Logger) *ConnectionManager {
	if log == nil {
		log = logger.Discard()
	}
	return &ConnectionManager{
		subscribers: make(map[string]map[*Subscription]struct{}),
		logger:      log,
	}
}

// Subscribe registers a new subscriber for taskID.
func (m *ConnectionManager) Subscribe(taskID string) *Subscription {
	ch := make(chan *models.TaskEvent, subscriberBuffer)
	sub := &Subscription{Events: ch, taskID: taskID, ch: ch, manager: m}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribers[taskID] == nil {
		m.subscribers[taskID] = make(map[*Subscription]struct{})
	}
	m.subscribers[taskID][sub] = struct{}{}
	return sub
}

// Count returns the number of live subscribers for taskID.
func (m *ConnectionManager) Count(taskID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers[taskID])
}

// Publish delivers event to every subscriber of its task without blocking.
func (m *ConnectionManager) Publish(_ context.Context, event *models.TaskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subscribers[event.TaskID]
	for sub := range subs {
		select {
		case sub.ch <- event:
		default:
			m.logger.WithTask(event.TaskID).Warn("WebSocket subscriber fell behind, dropping connection")
			m.removeLocked(event.TaskID, sub)
		}
	}
	if event.Final() {
		for sub := range subs {
			m.removeLocked(event.TaskID, sub)
		}
	}
	return nil
}

// Close detaches every subscriber.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for taskID, subs := range m.subscribers {
		for sub := range subs {
			m.removeLocked(taskID, sub)
		}
	}
	return nil
}

func (m *ConnectionManager) remove(taskID string, sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(taskID, sub)
}

func (m *ConnectionManager) removeLocked(taskID string, sub *Subscription) {
	subs, ok := m.subscribers[taskID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(m.subscribers, taskID)
	}
}
