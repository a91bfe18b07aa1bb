package school

import (
	"context"
	"strings"
	"time"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"
)

type CreateRequest struct {
	Name     string
	Timezone string
}

type UpdateRequest struct {
	Name     *string
	Timezone *string
	IsActive *bool
}

// Watcher is told about every stored school change.
type Watcher interface {
	SchoolChanged(ctx context.Context, schoolID string)
}

// WatcherFunc adapts a function to Watcher.
type WatcherFunc func(ctx context.Context, schoolID string)

func (f WatcherFunc) SchoolChanged(ctx context.Context, schoolID string) { f(ctx, schoolID) }

// Service defines business logic for schools.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*School, error)
	GetByID(ctx context.Context, id string) (*School, error)
	List(ctx context.Context, filter Filter) ([]*School, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*School, error)
	// Location returns the time zone of an active school.
	Location(ctx context.Context, id string) (*time.Location, error)
	ActiveIDs(ctx context.Context) ([]string, error)
}

type service struct {
	repo            Repository
	defaultTimezone string
	watcher         Watcher
}

// NewService creates a new school service. watcher may be nil.
func NewService(repo Repository, defaultTimezone string, watcher Watcher) Service {
	return &service{repo: repo, defaultTimezone: defaultTimezone, watcher: watcher}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*School, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = s.defaultTimezone
	}
	if _, err := loadLocation(tz); err != nil {
		return nil, err
	}

	sc := &School{Name: name, Timezone: tz, IsActive: true}
	if err := s.repo.Create(ctx, sc); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"school_id": sc.ID, "timezone": sc.Timezone}).Info("school created")
	return sc, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*School, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*School, int, error) {
	filter.SortOrder = strings.ToUpper(filter.SortOrder)
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*School, error) {
	sc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		sc.Name = name
	}
	if req.Timezone != nil {
		if _, err := loadLocation(*req.Timezone); err != nil {
			return nil, err
		}
		sc.Timezone = *req.Timezone
	}
	if req.IsActive != nil {
		sc.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, sc); err != nil {
		return nil, err
	}

	if s.watcher != nil {
		s.watcher.SchoolChanged(ctx, id)
	}
	log.WithFields(log.Fields{"school_id": id, "timezone": sc.Timezone, "is_active": sc.IsActive}).Info("school updated")
	return sc, nil
}

func (s *service) Location(ctx context.Context, id string) (*time.Location, error) {
	sc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sc.IsActive {
		return nil, ErrInactive
	}
	return loadLocation(sc.Timezone)
}

func (s *service) ActiveIDs(ctx context.Context) ([]string, error) {
	return s.repo.ActiveIDs(ctx)
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" || strings.EqualFold(name, "local") {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}
