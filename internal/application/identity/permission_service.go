package identity

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// PermissionService resolves roles into capability sets. Roles without rows in
// the repository fall back to the built-in role table.
type PermissionService struct {
	capabilityRepo identity.RoleCapabilityRepository
	defaults       map[string][]string
	logger         *zap.Logger
}

// NewPermissionService creates a new permission service
func NewPermissionService(capabilityRepo identity.RoleCapabilityRepository, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{
		capabilityRepo: capabilityRepo,
		defaults:       identity.DefaultCapabilities(),
		logger:         logger,
	}
}

// Capabilities returns the capability set of a role
func (s *PermissionService) Capabilities(ctx context.Context, role string) (identity.CapabilitySet, error) {
	set, err := s.capabilityRepo.FindByRole(ctx, role)
	if err != nil {
		s.logger.Error("Failed to load role capabilities", zap.String("role", role), zap.Error(err))
		return nil, fmt.Errorf("load capabilities for role %s: %w", role, err)
	}
	if len(set) == 0 {
		set = identity.NewCapabilitySet(s.defaults[role]...)
		s.logger.Debug("Using built-in capabilities", zap.String("role", role), zap.Int("count", len(set)))
	}
	return set, nil
}

var _ identity.PermissionService = (*PermissionService)(nil)
