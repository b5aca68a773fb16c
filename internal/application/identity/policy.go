package identity

import (
	"context"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/session"
	"go.uber.org/zap"
)

// CapabilityPolicy decides whether a user sees the gated administrator views
// by looking up the elevated capability for the user's role.
type CapabilityPolicy struct {
	permissions identity.PermissionService
	logger      *zap.Logger
}

// NewCapabilityPolicy creates a policy backed by a permission service
func NewCapabilityPolicy(permissions identity.PermissionService, logger *zap.Logger) *CapabilityPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapabilityPolicy{permissions: permissions, logger: logger}
}

// Elevated reports whether the user holds admin:view_all. Lookup failures
// count as non-elevated.
func (p *CapabilityPolicy) Elevated(ctx context.Context, user session.UserInfo) bool {
	if user.Role == "" {
		return false
	}
	set, err := p.permissions.Capabilities(ctx, user.Role)
	if err != nil {
		p.logger.Warn("Capability lookup failed, treating user as non-elevated",
			zap.String("user_id", user.ID), zap.Error(err))
		return false
	}
	return set.IsAdmin()
}
