package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"AgentHub/backend/go/internal/models"
)

// DeliverableStore holds finished deliverables. Stored deliverables are immutable;
// Delete only exists to withdraw one whose task could not be completed.
type DeliverableStore interface {
	Save(ctx context.Context, d *models.Deliverable) error
	Get(ctx context.Context, id string) (*models.Deliverable, error)
	List(ctx context.Context) ([]*models.Deliverable, error)
	Delete(ctx context.Context, id string) error
}

// MemoryDeliverableStore is a process-lifetime DeliverableStore.
type MemoryDeliverableStore struct {
	mu           sync.RWMutex
	deliverables map[string]models.Deliverable
	seq          map[string]int
	next         int
}

// NewMemoryDeliverableStore creates a new MemoryDeliverableStore.
func NewMemoryDeliverableStore() *MemoryDeliverableStore {
	return &MemoryDeliverableStore{
		deliverables: make(map[string]models.Deliverable),
		seq:          make(map[string]int),
	}
}

// Save stores d. Saving an id twice is an error.
func (s *MemoryDeliverableStore) Save(ctx context.Context, d *models.Deliverable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deliverables[d.ID]; exists {
		return fmt.Errorf("deliverable %s already exists", d.ID)
	}
	s.deliverables[d.ID] = *d
	s.next++
	s.seq[d.ID] = s.next
	return nil
}

// Get retrieves a copy of a deliverable by its ID.
func (s *MemoryDeliverableStore) Get(ctx context.Context, id string) (*models.Deliverable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliverables[id]
	if !ok {
		return nil, fmt.Errorf("deliverable %s: %w", id, ErrNotFound)
	}
	return &d, nil
}

// Delete removes a deliverable.
func (s *MemoryDeliverableStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliverables[id]; !ok {
		return fmt.Errorf("deliverable %s: %w", id, ErrNotFound)
	}
	delete(s.deliverables, id)
	delete(s.seq, id)
	return nil
}

// List returns all deliverables ordered newest first by creation time.
// Deliverables created at the same instant keep reverse insertion order.
func (s *MemoryDeliverableStore) List(ctx context.Context) ([]*models.Deliverable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Deliverable, 0, len(s.deliverables))
	for id := range s.deliverables {
		d := s.deliverables[id]
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}
