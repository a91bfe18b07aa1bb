package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
)

// RegisterRequest describes a new account.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	SchoolID    string
	Role        auth.Role
}

// UpdateUserRequest defines the fields that can be updated.
type UpdateUserRequest struct {
	DisplayName *string
	Role        *auth.Role
	IsActive    *bool
}

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]*User, int, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	cleanEmail := normalizeEmail(req.Email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}
	if len(req.Password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if err := checkMembership(req.Role, req.SchoolID); err != nil {
		return nil, err
	}

	// Check if email is already used.
	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var displayNamePtr *string
	if d := strings.TrimSpace(req.DisplayName); d != "" {
		displayNamePtr = &d
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  displayNamePtr,
		SchoolID:     req.SchoolID,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": u.ID, "school_id": u.SchoolID, "role": u.Role}).Info("user registered")
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort below; bookkeeping failures do not fail the login.
	if s.hasher.NeedsRehash(u.PasswordHash) {
		if hash, err := s.hasher.Hash(password); err == nil {
			if err := s.repo.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
				log.WithError(err).WithField("user_id", u.ID).Warn("failed to upgrade password hash")
			}
		}
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		log.WithError(err).WithField("user_id", u.ID).Warn("failed to update last login")
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, ErrInvalidRole
	}
	filter.SortOrder = strings.ToUpper(filter.SortOrder)
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		if d := strings.TrimSpace(*req.DisplayName); d != "" {
			u.DisplayName = &d
		} else {
			u.DisplayName = nil
		}
	}
	if req.Role != nil {
		if err := checkMembership(*req.Role, u.SchoolID); err != nil {
			return nil, err
		}
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkMembership enforces that system admins stand outside every school and everyone else belongs to one.
func checkMembership(role auth.Role, schoolID string) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if role == auth.RoleSysAdmin {
		if schoolID != "" {
			return ErrSysAdminSchool
		}
		return nil
	}
	if schoolID == "" {
		return ErrSchoolRequired
	}
	return nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
