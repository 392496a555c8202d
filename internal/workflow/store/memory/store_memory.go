// Package memory provides a single-process workflow store.
package memory

import (
	"context"
	"sort"
	"sync"

	"regulus/internal/workflow/models"
	"regulus/pkg/platform/sentinel"
)

// InMemoryStore keeps deep copies of instances so callers cannot mutate
// stored state.
type InMemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*models.Instance
}

func New() *InMemoryStore {
	return &InMemoryStore{instances: make(map[string]*models.Instance)}
}

func (s *InMemoryStore) Create(_ context.Context, inst *models.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[inst.ID]; ok {
		return sentinel.ErrConflict
	}
	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return inst.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, inst *models.Instance, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.instances[inst.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Instance, 0)
	for _, inst := range s.instances {
		if filter.Matches(inst) {
			out = append(out, inst.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
