package session

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SectionResetter drops section state that belongs to the previous user
type SectionResetter interface {
	Reset(ctx context.Context)
}

// SessionEventHandler reacts to session change events from the session
// provider: a sign-in re-runs the bootstrap path, a sign-out ends the session.
type SessionEventHandler struct {
	bootstrapper *Bootstrapper
	sections     SectionResetter
	logger       *zap.Logger
}

// NewSessionEventHandler creates a new handler for session change events
func NewSessionEventHandler(bootstrapper *Bootstrapper, logger *zap.Logger) *SessionEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionEventHandler{
		bootstrapper: bootstrapper,
		logger:       logger,
	}
}

// WithSectionReset resets r before every sign-in and sign-out is handled
func (h *SessionEventHandler) WithSectionReset(r SectionResetter) *SessionEventHandler {
	h.sections = r
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *SessionEventHandler) EventTypes() []string {
	return []string{session.EventTypeSignedIn, session.EventTypeSignedOut}
}

// Handle processes SignedInEvent and SignedOutEvent
func (h *SessionEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *session.SignedInEvent:
		h.logger.Info("session signed in", zap.String("user_id", e.UserID))
		h.resetSections(ctx)
		h.bootstrapper.Boot(ctx)
		return nil
	case *session.SignedOutEvent:
		h.logger.Info("session signed out", zap.String("user_id", e.UserID))
		h.bootstrapper.Logout(ctx)
		h.resetSections(ctx)
		return nil
	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

func (h *SessionEventHandler) resetSections(ctx context.Context) {
	if h.sections != nil {
		h.sections.Reset(ctx)
	}
}

// Ensure SessionEventHandler implements shared.EventHandler
var _ shared.EventHandler = (*SessionEventHandler)(nil)
