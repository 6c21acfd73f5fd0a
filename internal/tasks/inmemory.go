package tasks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is the default store for local/dev use and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Task
	trash map[string]Trashed
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[string]Task),
		trash: make(map[string]Trashed),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[task.ID] = task.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, taskID string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[taskID]
	if !ok {
		return Task{}, ErrStoreNotFound
	}
	return t.Clone(), nil
}

// ListDay returns the tasks visible on day: tasks starting that day, plus
// tasks whose start..due range spans it. Sorted by creation time.
func (s *InMemoryStore) ListDay(_ context.Context, day time.Time) ([]Task, error) {
	target := DayKey(day)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	for _, t := range s.byID {
		start := DayKey(t.StartDay())
		if t.DueAt != nil {
			if start <= target && target <= DayKey(*t.DueAt) {
				out = append(out, t.Clone())
			}
			continue
		}
		if start == target {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListSeries(_ context.Context, seriesID string) ([]Task, error) {
	if seriesID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	for _, t := range s.byID {
		if t.SeriesID == seriesID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDay().Before(out[j].StartDay()) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[task.ID]; !ok {
		return ErrStoreNotFound
	}
	s.byID[task.ID] = task.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[taskID]; !ok {
		return ErrStoreNotFound
	}
	delete(s.byID, taskID)
	return nil
}

func (s *InMemoryStore) PutTrash(_ context.Context, item Trashed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trash[item.Task.ID] = item
	return nil
}

func (s *InMemoryStore) GetTrash(_ context.Context, taskID string) (Trashed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.trash[taskID]
	if !ok {
		return Trashed{}, ErrStoreNotFound
	}
	return item, nil
}

func (s *InMemoryStore) ListTrash(_ context.Context) ([]Trashed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Trashed, 0, len(s.trash))
	for _, item := range s.trash {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.Before(out[j].DeletedAt) })
	return out, nil
}

func (s *InMemoryStore) RemoveTrash(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trash[taskID]; !ok {
		return ErrStoreNotFound
	}
	delete(s.trash, taskID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
