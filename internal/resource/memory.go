package resource

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepository keeps resources in process memory.
type memoryRepository struct {
	mu        sync.RWMutex
	resources map[string]*Resource
	now       func() time.Time
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		resources: make(map[string]*Resource),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryRepository) Create(_ context.Context, res *Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res.ID = uuid.NewString()
	res.CreatedAt = r.now()
	res.UpdatedAt = res.CreatedAt
	r.resources[res.ID] = res.Clone()
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return res.Clone(), nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*Resource, int, error) {
	r.mu.RLock()
	var matched []*Resource
	for _, res := range r.resources {
		if res.SchoolID != filter.SchoolID {
			continue
		}
		if filter.Kind != "" && res.Kind != filter.Kind {
			continue
		}
		if filter.Category != "" && !slices.Contains(res.Categories, filter.Category) {
			continue
		}
		if filter.IsActive != nil && res.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, res.Clone())
	}
	r.mu.RUnlock()

	sortByName(matched)
	if filter.SortOrder == "DESC" {
		slices.Reverse(matched)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	total := len(matched)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (r *memoryRepository) ListBySchool(_ context.Context, schoolID string) ([]*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Resource
	for _, res := range r.resources {
		if res.SchoolID == schoolID {
			out = append(out, res.Clone())
		}
	}
	sortByName(out)
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, res *Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.resources[res.ID]
	if !ok {
		return ErrNotFound
	}
	res.UpdatedAt = r.now()
	updated := res.Clone()
	updated.Windows = slices.Clone(cur.Windows)
	r.resources[res.ID] = updated
	return nil
}

func (r *memoryRepository) SetWindows(_ context.Context, id string, windows []Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.resources[id]
	if !ok {
		return ErrNotFound
	}
	cur.Windows = slices.Clone(windows)
	cur.UpdatedAt = r.now()
	return nil
}

func sortByName(resources []*Resource) {
	slices.SortFunc(resources, func(a, b *Resource) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
