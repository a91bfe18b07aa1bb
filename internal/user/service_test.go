package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
)

func newTestService() Service {
	return NewService(NewMemoryRepository(), auth.NewBcryptPasswordHasherWithCost(4))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	u, err := svc.Register(ctx, RegisterRequest{
		Email:       "  Anna@Example.com ",
		Password:    "password123",
		DisplayName: "Anna",
		SchoolID:    "school-a",
		Role:        auth.RoleSecretary,
	})
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", u.Email)
	assert.NotEqual(t, "password123", u.PasswordHash)

	logged, err := svc.Login(ctx, "ANNA@example.com", "password123")
	require.NoError(t, err)
	assert.NotNil(t, logged.LastLoginAt)
	assert.Equal(t, auth.Identity{UserID: u.ID, Email: u.Email, SchoolID: "school-a", Role: auth.RoleSecretary}, logged.Identity())

	_, err = svc.Login(ctx, "anna@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	inactive := false
	_, err = svc.Update(ctx, u.ID, UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "anna@example.com", "password123")
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Register(ctx, RegisterRequest{Email: "taken@example.com", Password: "password123", SchoolID: "s", Role: auth.RoleInstructor})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"missing email", RegisterRequest{Password: "password123", SchoolID: "s", Role: auth.RoleStudent}, ErrEmailRequired},
		{"short password", RegisterRequest{Email: "a@b.ch", Password: "short", SchoolID: "s", Role: auth.RoleStudent}, ErrPasswordTooShort},
		{"unknown role", RegisterRequest{Email: "a@b.ch", Password: "password123", SchoolID: "s", Role: "janitor"}, ErrInvalidRole},
		{"school role without school", RegisterRequest{Email: "a@b.ch", Password: "password123", Role: auth.RoleSecretary}, ErrSchoolRequired},
		{"sysadmin inside a school", RegisterRequest{Email: "a@b.ch", Password: "password123", SchoolID: "s", Role: auth.RoleSysAdmin}, ErrSysAdminSchool},
		{"duplicate email", RegisterRequest{Email: "TAKEN@example.com", Password: "password123", SchoolID: "s", Role: auth.RoleStudent}, ErrEmailAlreadyUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	for _, req := range []RegisterRequest{
		{Email: "a@one.ch", Password: "password123", SchoolID: "one", Role: auth.RoleInstructor},
		{Email: "b@one.ch", Password: "password123", SchoolID: "one", Role: auth.RoleStudent},
		{Email: "c@two.ch", Password: "password123", SchoolID: "two", Role: auth.RoleStudent},
		{Email: "root@ops.ch", Password: "password123", Role: auth.RoleSysAdmin},
	} {
		_, err := svc.Register(ctx, req)
		require.NoError(t, err)
	}

	users, total, err := svc.List(ctx, UserFilter{SchoolID: "one"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, users, 2)

	users, total, err = svc.List(ctx, UserFilter{Role: auth.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, _, err = svc.List(ctx, UserFilter{Role: "janitor"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	users, _, err = svc.List(ctx, UserFilter{Email: "a@one"})
	require.NoError(t, err)
	require.Len(t, users, 1)

	promoted := auth.RoleSchoolAdmin
	name := " Anna "
	u, err := svc.Update(ctx, users[0].ID, UpdateUserRequest{Role: &promoted, DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSchoolAdmin, u.Role)
	assert.Equal(t, "Anna", *u.DisplayName)

	sysadmin := auth.RoleSysAdmin
	_, err = svc.Update(ctx, users[0].ID, UpdateUserRequest{Role: &sysadmin})
	assert.ErrorIs(t, err, ErrSysAdminSchool)
}

func TestLoginUpgradesHashCost(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	old := NewService(repo, auth.NewBcryptPasswordHasherWithCost(4))
	u, err := old.Register(ctx, RegisterRequest{Email: "a@b.ch", Password: "password123", SchoolID: "s", Role: auth.RoleStudent})
	require.NoError(t, err)

	hasher := auth.NewBcryptPasswordHasherWithCost(5)
	_, err = NewService(repo, hasher).Login(ctx, "a@b.ch", "password123")
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, hasher.NeedsRehash(stored.PasswordHash))
	assert.NoError(t, hasher.Compare(stored.PasswordHash, "password123"))
}
