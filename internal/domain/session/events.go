package session

import "github.com/crm/backend/internal/domain/shared"

// Aggregate type for session events
const AggregateTypeSession = "Session"

// Event types
const (
	EventTypeSignedIn  = "SessionSignedIn"
	EventTypeSignedOut = "SessionSignedOut"
)

// SignedInEvent is published when a user logs in
type SignedInEvent struct {
	shared.BaseDomainEvent
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// NewSignedInEvent creates a new SignedInEvent
func NewSignedInEvent(s *Session) *SignedInEvent {
	return &SignedInEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSignedIn, AggregateTypeSession, s.UserID),
		UserID:          s.UserID,
		Email:           s.Email,
	}
}

// SignedOutEvent is published when a user logs out or the session is revoked
type SignedOutEvent struct {
	shared.BaseDomainEvent
	UserID string `json:"user_id"`
}

// NewSignedOutEvent creates a new SignedOutEvent
func NewSignedOutEvent(userID string) *SignedOutEvent {
	return &SignedOutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSignedOut, AggregateTypeSession, userID),
		UserID:          userID,
	}
}
