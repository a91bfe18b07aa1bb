package resource

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

type CreateRequest struct {
	SchoolID   string
	Kind       Kind
	Name       string
	Categories []string
	Windows    []Window
}

type UpdateRequest struct {
	Name       *string
	Categories *[]string
	IsActive   *bool
}

// Observer is told about every persisted resource change.
type Observer interface {
	ResourceChanged(ctx context.Context, res *Resource)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	GetByID(ctx context.Context, schoolID, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*Resource, error)
	Update(ctx context.Context, schoolID, id string, req UpdateRequest) (*Resource, error)
	SetWindows(ctx context.Context, schoolID, id string, windows []Window) (*Resource, error)
}

type service struct {
	repo     Repository
	observer Observer
}

// NewService creates a resource service. observer may be nil.
func NewService(repo Repository, observer Observer) Service {
	return &service{
		repo:     repo,
		observer: observer,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Resource, error) {
	if req.SchoolID == "" {
		return nil, ErrInvalidSchool
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !req.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	categories, err := checkCategories(req.Kind, req.Categories)
	if err != nil {
		return nil, err
	}
	if err := ValidateWindows(req.Windows); err != nil {
		return nil, err
	}

	res := &Resource{
		SchoolID:   req.SchoolID,
		Kind:       req.Kind,
		Name:       name,
		Categories: categories,
		IsActive:   true,
		Windows:    req.Windows,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"school_id": res.SchoolID, "resource_id": res.ID, "kind": res.Kind}).Info("resource created")
	s.notify(ctx, res)
	return res, nil
}

// GetByID returns the resource if it belongs to schoolID.
func (s *service) GetByID(ctx context.Context, schoolID, id string) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	return res, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	if filter.SchoolID == "" {
		return nil, 0, ErrInvalidSchool
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, 0, ErrInvalidKind
	}
	if filter.Category != "" {
		categories, err := NormalizeCategories([]string{filter.Category})
		if err != nil {
			return nil, 0, err
		}
		filter.Category = categories[0]
	}
	filter.SortOrder = strings.ToUpper(filter.SortOrder)
	return s.repo.List(ctx, filter)
}

func (s *service) ListBySchool(ctx context.Context, schoolID string) ([]*Resource, error) {
	return s.repo.ListBySchool(ctx, schoolID)
}

func (s *service) Update(ctx context.Context, schoolID, id string, req UpdateRequest) (*Resource, error) {
	res, err := s.GetByID(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		res.Name = name
	}
	if req.Categories != nil {
		categories, err := checkCategories(res.Kind, *req.Categories)
		if err != nil {
			return nil, err
		}
		res.Categories = categories
	}
	if req.IsActive != nil {
		res.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"school_id": schoolID, "resource_id": id, "is_active": res.IsActive}).Info("resource updated")
	s.notify(ctx, res)
	return res, nil
}

func (s *service) SetWindows(ctx context.Context, schoolID, id string, windows []Window) (*Resource, error) {
	res, err := s.GetByID(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateWindows(windows); err != nil {
		return nil, err
	}

	if err := s.repo.SetWindows(ctx, id, windows); err != nil {
		return nil, err
	}
	res.Windows = windows

	log.WithFields(log.Fields{"school_id": schoolID, "resource_id": id, "windows": len(windows)}).Info("resource windows replaced")
	s.notify(ctx, res)
	return res, nil
}

func (s *service) notify(ctx context.Context, res *Resource) {
	if s.observer != nil {
		s.observer.ResourceChanged(ctx, res.Clone())
	}
}

func checkCategories(kind Kind, categories []string) ([]string, error) {
	if kind == KindRoom {
		if len(categories) > 0 {
			return nil, ErrRoomCategories
		}
		return []string{}, nil
	}
	return NormalizeCategories(categories)
}
