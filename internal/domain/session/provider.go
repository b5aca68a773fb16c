package session

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/shared"
)

// ErrSessionExpired is returned by a Provider when the stored session can no
// longer be used and the user has to log in again. Any other provider error is
// treated as transient.
var ErrSessionExpired = shared.NewDomainError(CodeSessionExpired, "Session has expired")

// Session is an authenticated session as reported by the session provider
type Session struct {
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// IsExpired reports whether the session has expired at the given instant
func (s *Session) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.IsZero() && !at.Before(s.ExpiresAt)
}

// Provider is the session source consumed by the bootstrap path.
// Change events (login/logout) are delivered as SignedInEvent and
// SignedOutEvent on the event bus.
type Provider interface {
	// HasCachedSession reports whether a previously stored session exists,
	// without validating it.
	HasCachedSession(ctx context.Context) (bool, error)
	// CurrentSession returns the validated current session, or nil when there is none.
	CurrentSession(ctx context.Context) (*Session, error)
}
