package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AgentHub/backend/go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	task := models.NewTask("t1", "desc", time.Now())
	require.NoError(t, s.Create(ctx, task))
	assert.Error(t, s.Create(ctx, task), "duplicate id")

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "desc", got.Description)

	got.Description = "mutated"
	again, _ := s.Get(ctx, "t1")
	assert.Equal(t, "desc", again.Description, "Get returns a copy")

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	require.NoError(t, s.Create(ctx, models.NewTask("t1", "d", time.Now())))

	updated, err := s.Update(ctx, "t1", func(task *models.Task) error {
		task.AppendActivity(models.ActivityAnalyzing, "", "hello", time.Now())
		return task.Advance(models.TaskStatusRouting, time.Now())
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRouting, updated.Status)

	_, err = s.Update(ctx, "t1", func(task *models.Task) error {
		task.AppendActivity(models.ActivityError, "", "should not stick", time.Now())
		return errors.New("rejected")
	})
	require.Error(t, err)

	got, _ := s.Get(ctx, "t1")
	assert.Len(t, got.Activities, 1, "failed updates are discarded")

	_, err = s.Update(ctx, "nope", func(*models.Task) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskStoreConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	require.NoError(t, s.Create(ctx, models.NewTask("t1", "d", time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.Get(ctx, "t1")
			}
		}()
	}
	for j := 0; j < 50; j++ {
		_, err := s.Update(ctx, "t1", func(task *models.Task) error {
			task.AppendActivity(models.ActivityAgentStart, "a", "x", time.Now())
			return nil
		})
		require.NoError(t, err)
	}
	wg.Wait()

	got, _ := s.Get(ctx, "t1")
	assert.Len(t, got.Activities, 50)
	for i, a := range got.Activities {
		assert.Equal(t, i+1, a.Seq)
	}
}

func TestTaskStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTaskStore()
	require.NoError(t, s.Create(ctx, models.NewTask("a", "d", time.Now())))
	require.NoError(t, s.Create(ctx, models.NewTask("b", "d", time.Now())))
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
}

func TestDeliverableStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDeliverableStore()
	base := time.Unix(1000, 0)

	require.NoError(t, s.Save(ctx, &models.Deliverable{ID: "old", CreatedAt: base}))
	require.NoError(t, s.Save(ctx, &models.Deliverable{ID: "new", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.Save(ctx, &models.Deliverable{ID: "tie", CreatedAt: base}))
	assert.Error(t, s.Save(ctx, &models.Deliverable{ID: "old"}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	ids := []string{list[0].ID, list[1].ID, list[2].ID}
	assert.Equal(t, []string{"new", "tie", "old"}, ids)

	d, err := s.Get(ctx, "new")
	require.NoError(t, err)
	d.Title = "changed"
	again, _ := s.Get(ctx, "new")
	assert.Empty(t, again.Title)

	_, err = s.Get(ctx, "never-stored")
	assert.ErrorIs(t, err, ErrNotFound)
	list2, _ := s.List(ctx)
	assert.Len(t, list2, 3, "missed lookups do not change state")
}

func TestDeliverableStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDeliverableStore()
	require.NoError(t, s.Save(ctx, &models.Deliverable{ID: "d1"}))
	require.NoError(t, s.Save(ctx, &models.Deliverable{ID: "d2"}))

	require.NoError(t, s.Delete(ctx, "d1"))
	_, err := s.Get(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "d2", list[0].ID)

	assert.ErrorIs(t, s.Delete(ctx, "d1"), ErrNotFound)
}
