package user

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]*User)}
}

func (r *memoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *memoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrEmailAlreadyUsed
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *memoryRepository) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &t
	return nil
}

func (r *memoryRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memoryRepository) List(_ context.Context, filter UserFilter) ([]*User, int, error) {
	r.mu.RLock()
	var out []*User
	for _, u := range r.users {
		if filter.SchoolID != "" && u.SchoolID != filter.SchoolID {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Email != "" && !strings.Contains(u.Email, strings.ToLower(filter.Email)) {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if filter.SortOrder != "ASC" {
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

func (r *memoryRepository) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	cur.DisplayName = u.DisplayName
	cur.Role = u.Role
	cur.IsActive = u.IsActive
	return nil
}
