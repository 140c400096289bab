package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"AgentHub/backend/go/internal/models"
)

// ErrNotFound is returned by lookups for ids that were never stored.
var ErrNotFound = errors.New("not found")

// TaskStore defines the interface for task storage.
// Update runs fn against the stored task under the store's lock; readers only ever see clones.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, id string, fn func(*models.Task) error) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
}

// MemoryTaskStore is a process-lifetime TaskStore. Tasks are never evicted.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
	order []string
}

// NewMemoryTaskStore creates a new MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*models.Task)}
}

// Create inserts a new task.
func (s *MemoryTaskStore) Create(ctx context.Context, task *models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	s.order = append(s.order, task.ID)
	return nil
}

// Get retrieves a copy of a task by its ID.
func (s *MemoryTaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task.Clone(), nil
}

// Update applies fn to the stored task. If fn fails the stored task is left untouched.
func (s *MemoryTaskStore) Update(ctx context.Context, id string, fn func(*models.Task) error) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	working := task.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.tasks[id] = working
	return working.Clone(), nil
}

// List returns copies of all tasks, newest first.
func (s *MemoryTaskStore) List(ctx context.Context) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Task, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.tasks[s.order[i]].Clone())
	}
	return out, nil
}
