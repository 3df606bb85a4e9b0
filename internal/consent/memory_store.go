package consent

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
)

// MemoryStore: in-process хранилище. Записи никогда не удаляются (нужны для аудита).
type MemoryStore struct {
	mu    sync.RWMutex
	items []*domain.ConsentRequest
	index map[string]*domain.ConsentRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]*domain.ConsentRequest)}
}

func (s *MemoryStore) Insert(_ context.Context, req *domain.ConsentRequest) error {
	cp := req.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, cp)
	s.index[cp.ID] = cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return req.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, status domain.ConsentStatus) ([]*domain.ConsentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Пустой слайс, а не nil: в JSON будет [] вместо null
	out := make([]*domain.ConsentRequest, 0, len(s.items))
	for _, req := range s.items {
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Resolve(_ context.Context, id string, approved bool, at time.Time) (*domain.ConsentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := req.Resolve(approved, at); err != nil {
		return nil, err
	}
	return req.Clone(), nil
}
