package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProfileRepository is a mock implementation of identity.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindByUserID(ctx context.Context, userID string) (*identity.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Profile), args.Error(1)
}

func (m *MockProfileRepository) Save(ctx context.Context, profile *identity.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// MockRoleCapabilityRepository is a mock implementation of identity.RoleCapabilityRepository
type MockRoleCapabilityRepository struct {
	mock.Mock
}

func (m *MockRoleCapabilityRepository) FindByRole(ctx context.Context, role string) (identity.CapabilitySet, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(identity.CapabilitySet), args.Error(1)
}

func (m *MockRoleCapabilityRepository) Grant(ctx context.Context, role string, codes ...string) error {
	args := m.Called(ctx, role, codes)
	return args.Error(0)
}

func TestProfileService_FetchProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("returns profile", func(t *testing.T) {
		repo := new(MockProfileRepository)
		profile := &identity.Profile{UserID: "u1", FullName: "Anna", Role: identity.RoleAdministrator, Status: identity.ProfileStatusActive}
		repo.On("FindByUserID", ctx, "u1").Return(profile, nil)

		svc := NewProfileService(repo, zap.NewNop())
		got, err := svc.FetchProfile(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, profile, got)
		repo.AssertExpectations(t)
	})

	t.Run("passes not found through", func(t *testing.T) {
		repo := new(MockProfileRepository)
		repo.On("FindByUserID", ctx, "u2").Return(nil, identity.ErrProfileNotFound)

		svc := NewProfileService(repo, nil)
		_, err := svc.FetchProfile(ctx, "u2")

		assert.ErrorIs(t, err, identity.ErrProfileNotFound)
	})
}

func TestPermissionService_Capabilities(t *testing.T) {
	ctx := context.Background()

	t.Run("uses repository rows", func(t *testing.T) {
		repo := new(MockRoleCapabilityRepository)
		repo.On("FindByRole", ctx, "Planner").Return(identity.NewCapabilitySet("planning:read", identity.CapabilityViewAll), nil)

		svc := NewPermissionService(repo, zap.NewNop())
		set, err := svc.Capabilities(ctx, "Planner")

		require.NoError(t, err)
		assert.True(t, set.IsAdmin())
	})

	t.Run("falls back to built-in table", func(t *testing.T) {
		repo := new(MockRoleCapabilityRepository)
		repo.On("FindByRole", ctx, identity.RoleAdministrator).Return(identity.CapabilitySet{}, nil)

		svc := NewPermissionService(repo, zap.NewNop())
		set, err := svc.Capabilities(ctx, identity.RoleAdministrator)

		require.NoError(t, err)
		assert.True(t, set.IsAdmin())
	})

	t.Run("wraps repository errors", func(t *testing.T) {
		repo := new(MockRoleCapabilityRepository)
		repo.On("FindByRole", ctx, identity.RoleVerkoper).Return(nil, errors.New("connection refused"))

		svc := NewPermissionService(repo, zap.NewNop())
		_, err := svc.Capabilities(ctx, identity.RoleVerkoper)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestCapabilityPolicy_Elevated(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRoleCapabilityRepository)
	repo.On("FindByRole", ctx, identity.RoleAdministrator).Return(identity.CapabilitySet{}, nil)
	repo.On("FindByRole", ctx, identity.RoleVerkoper).Return(identity.CapabilitySet{}, nil)
	repo.On("FindByRole", ctx, "Broken").Return(nil, errors.New("timeout"))

	policy := NewCapabilityPolicy(NewPermissionService(repo, nil), zap.NewNop())

	assert.True(t, policy.Elevated(ctx, session.UserInfo{ID: "u1", Role: identity.RoleAdministrator}))
	assert.False(t, policy.Elevated(ctx, session.UserInfo{ID: "u2", Role: identity.RoleVerkoper}))
	assert.False(t, policy.Elevated(ctx, session.UserInfo{ID: "u3", Role: "Broken"}))
	assert.False(t, policy.Elevated(ctx, session.UserInfo{ID: "u4"}))
}
