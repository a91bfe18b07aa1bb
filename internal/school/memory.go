package school

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	schools map[string]*School
}

func NewMemoryRepository() Repository {
	return &memoryRepository{schools: make(map[string]*School)}
}

func (r *memoryRepository) Create(_ context.Context, s *School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	c := *s
	r.schools[s.ID] = &c
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*School, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schools[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*School, int, error) {
	r.mu.RLock()
	var out []*School
	for _, s := range r.schools {
		if filter.IsActive != nil && s.IsActive != *filter.IsActive {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *School) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if filter.SortOrder == "DESC" {
		slices.Reverse(out)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	total := len(out)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return out[start:end], total, nil
}

func (r *memoryRepository) Update(_ context.Context, s *School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schools[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	c := *s
	r.schools[s.ID] = &c
	return nil
}

func (r *memoryRepository) ActiveIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, s := range r.schools {
		if s.IsActive {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
