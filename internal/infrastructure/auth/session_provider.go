package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TokenStore persists the access token of the current session
type TokenStore interface {
	Save(ctx context.Context, token string, ttl time.Duration) error
	Load(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

// SessionProvider serves the stored session to the bootstrap path and
// publishes sign-in and sign-out events
type SessionProvider struct {
	tokens    TokenStore
	jwt       *JWTService
	blacklist TokenBlacklist
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionProvider creates a provider
func NewSessionProvider(
	tokens TokenStore,
	jwt *JWTService,
	blacklist TokenBlacklist,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *SessionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionProvider{
		tokens:    tokens,
		jwt:       jwt,
		blacklist: blacklist,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// HasCachedSession reports whether a token is stored, without validating it
func (p *SessionProvider) HasCachedSession(ctx context.Context) (bool, error) {
	_, ok, err := p.tokens.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read stored session: %w", err)
	}
	return ok, nil
}

// CurrentSession validates the stored token. It returns nil without error
// when nothing is stored, and session.ErrSessionExpired when the stored
// token can no longer be used.
func (p *SessionProvider) CurrentSession(ctx context.Context) (*session.Session, error) {
	token, ok, err := p.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	claims, err := p.jwt.Parse(token)
	if err != nil {
		p.logger.Info("Stored session rejected", zap.Error(err))
		return nil, session.ErrSessionExpired
	}

	if p.blacklist != nil && claims.ID != "" {
		revoked, err := p.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			p.logger.Info("Stored session was revoked", zap.String("user_id", claims.UserID()))
			return nil, session.ErrSessionExpired
		}
	}

	return &session.Session{
		UserID:      claims.UserID(),
		Email:       claims.Email,
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAtTime(),
	}, nil
}

// SignIn verifies token, stores it and announces the new session
func (p *SessionProvider) SignIn(ctx context.Context, token string) (*session.Session, error) {
	claims, err := p.jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	if p.blacklist != nil && claims.ID != "" {
		revoked, err := p.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	s := &session.Session{
		UserID:      claims.UserID(),
		Email:       claims.Email,
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAtTime(),
	}
	if err := p.tokens.Save(ctx, token, p.remaining(s.ExpiresAt)); err != nil {
		return nil, err
	}

	p.logger.Info("Session signed in", zap.String("user_id", s.UserID))
	if err := p.publisher.Publish(ctx, session.NewSignedInEvent(s)); err != nil {
		return s, fmt.Errorf("failed to publish sign-in: %w", err)
	}
	return s, nil
}

// SignOut revokes and forgets the stored token and announces the sign-out.
// Signing out without a stored session still publishes the event.
func (p *SessionProvider) SignOut(ctx context.Context) error {
	token, ok, err := p.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stored session: %w", err)
	}

	var userID string
	if ok {
		claims, err := p.jwt.ParseUnverifiedExpiry(token)
		switch {
		case errors.Is(err, ErrInvalidToken):
			p.logger.Warn("Discarding unreadable stored session")
		case err != nil:
			return err
		default:
			userID = claims.UserID()
			if p.blacklist != nil && claims.ID != "" {
				if err := p.blacklist.Revoke(ctx, claims.ID, p.remaining(claims.ExpiresAtTime())); err != nil {
					return err
				}
			}
		}
		if err := p.tokens.Clear(ctx); err != nil {
			return err
		}
	}

	p.logger.Info("Session signed out", zap.String("user_id", userID))
	if err := p.publisher.Publish(ctx, session.NewSignedOutEvent(userID)); err != nil {
		return fmt.Errorf("failed to publish sign-out: %w", err)
	}
	return nil
}

func (p *SessionProvider) remaining(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	return expiresAt.Sub(p.now())
}

var _ session.Provider = (*SessionProvider)(nil)
