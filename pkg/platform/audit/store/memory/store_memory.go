package memory

import (
	"context"
	"sort"
	"sync"

	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in sequence order. Used by tests and by
// single-process deployments without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	bySeq   map[uint64]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySeq: make(map[uint64]int)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.bySeq = make(map[uint64]int)
}

// AppendBatch ignores sequences already stored.
func (s *InMemoryStore) AppendBatch(_ context.Context, entries []audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, ok := s.bySeq[e.Sequence]; ok {
			continue
		}
		s.entries = append(s.entries, cloneEntry(e))
		s.bySeq[e.Sequence] = len(s.entries) - 1
	}
	if !sort.SliceIsSorted(s.entries, func(i, j int) bool {
		return s.entries[i].Sequence < s.entries[j].Sequence
	}) {
		sort.Slice(s.entries, func(i, j int) bool {
			return s.entries[i].Sequence < s.entries[j].Sequence
		})
		for i, e := range s.entries {
			s.bySeq[e.Sequence] = i
		}
	}
	return nil
}

func (s *InMemoryStore) Range(_ context.Context, q audit.Query) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if q.FromSequence != 0 && e.Sequence < q.FromSequence {
			continue
		}
		if q.ToSequence != 0 && e.Sequence > q.ToSequence {
			break
		}
		if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && e.Timestamp.After(q.End) {
			continue
		}
		out = append(out, cloneEntry(e))
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, sequence uint64) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.bySeq[sequence]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e := cloneEntry(s.entries[i])
	return &e, nil
}

func (s *InMemoryStore) Head(_ context.Context) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil, nil
	}
	e := cloneEntry(s.entries[len(s.entries)-1])
	return &e, nil
}

// Tamper replaces a stored entry in place without rehashing. Forensic
// drills use it to prove verification catches edits.
func (s *InMemoryStore) Tamper(sequence uint64, mutate func(*audit.Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.bySeq[sequence]
	if !ok {
		return false
	}
	mutate(&s.entries[i])
	return true
}

func cloneEntry(e audit.Entry) audit.Entry {
	if e.Metadata != nil {
		md := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		e.Metadata = md
	}
	return e
}
