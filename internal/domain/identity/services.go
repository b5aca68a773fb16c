package identity

import "context"

// ProfileService fetches the profile record of a user
type ProfileService interface {
	// FetchProfile returns the profile, or ErrProfileNotFound
	FetchProfile(ctx context.Context, userID string) (*Profile, error)
}

// PermissionService resolves a role into its capability set
type PermissionService interface {
	Capabilities(ctx context.Context, role string) (CapabilitySet, error)
}
