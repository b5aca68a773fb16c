package identity

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
)

// ProfileStatus represents the status of a user profile
type ProfileStatus string

const (
	ProfileStatusActive   ProfileStatus = "active"   // Normal active status
	ProfileStatusInactive ProfileStatus = "inactive" // Deactivated by an administrator
)

// Role names used by the CRM. Role strings come from the profiles table and
// are matched case-sensitively.
const (
	RoleAdministrator = "Administrator"
	RoleAdministratie = "Administratie"
	RoleVerkoper      = "Verkoper"
	RoleMonteur       = "Monteur"
	RoleGebruiker     = "Gebruiker"
)

// Profile is the user's profile record
type Profile struct {
	UserID   string
	FullName string
	Role     string
	Status   ProfileStatus
}

// ErrProfileNotFound is returned when no profile exists for a user
var ErrProfileNotFound = shared.NewDomainError("PROFILE_NOT_FOUND", "Profile not found")

// NewProfile creates a profile with the given role
func NewProfile(userID, fullName, role string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, shared.NewDomainError("INVALID_USER_ID", "User ID cannot be empty")
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = RoleGebruiker
	}
	return &Profile{
		UserID:   userID,
		FullName: strings.TrimSpace(fullName),
		Role:     role,
		Status:   ProfileStatusActive,
	}, nil
}

// IsActive returns true if the profile may use the application
func (p *Profile) IsActive() bool {
	return p.Status == ProfileStatusActive
}

// DisplayName returns the full name, falling back to the user ID
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.UserID
}

// ProfileRepository defines the interface for profile persistence
type ProfileRepository interface {
	// FindByUserID returns the profile or ErrProfileNotFound
	FindByUserID(ctx context.Context, userID string) (*Profile, error)
	// Save creates or updates a profile
	Save(ctx context.Context, profile *Profile) error
}
