package identity

import (
	"context"
	"sort"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
)

// Permission represents a functional permission in resource:action form
type Permission struct {
	Code     string // e.g., "quote:create"
	Resource string // e.g., "quote"
	Action   string // e.g., "create"
}

// NewPermissionFromCode parses a "resource:action" code
func NewPermissionFromCode(code string) (Permission, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(code)), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Permission{}, shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code must be in format 'resource:action'")
	}
	return Permission{Code: parts[0] + ":" + parts[1], Resource: parts[0], Action: parts[1]}, nil
}

// CapabilityViewAll grants access to administrator-only aggregate views
const CapabilityViewAll = "admin:view_all"

// CapabilitySet is the set of permission codes granted to a role
type CapabilitySet map[string]struct{}

// NewCapabilitySet builds a set from permission codes
func NewCapabilitySet(codes ...string) CapabilitySet {
	set := make(CapabilitySet, len(codes))
	for _, c := range codes {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission code
func (s CapabilitySet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// IsAdmin reports whether the set carries the elevated capability
func (s CapabilitySet) IsAdmin() bool {
	return s.Has(CapabilityViewAll)
}

// Codes returns the permission codes in sorted order
func (s CapabilitySet) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// RoleCapabilityRepository looks up the capabilities granted to a role
type RoleCapabilityRepository interface {
	FindByRole(ctx context.Context, role string) (CapabilitySet, error)
	Grant(ctx context.Context, role string, codes ...string) error
}

// DefaultCapabilities is the built-in role table used when the database has
// no rows for a role.
func DefaultCapabilities() map[string][]string {
	return map[string][]string{
		RoleAdministrator: {CapabilityViewAll, "customer:read", "quote:read", "invoice:read", "user:manage", "settings:manage"},
		RoleAdministratie: {"customer:read", "quote:read", "invoice:read", "receipt:read"},
		RoleVerkoper:      {"customer:read", "quote:read", "quote:create"},
		RoleMonteur:       {"planning:read", "time_registration:create"},
		RoleGebruiker:     {"planning:read"},
	}
}
