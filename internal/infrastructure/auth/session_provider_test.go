package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, time.Duration) error { return errors.New("down") }
func (failingStore) Load(context.Context) (string, bool, error)        { return "", false, errors.New("down") }
func (failingStore) Clear(context.Context) error                       { return errors.New("down") }

type providerFixture struct {
	provider  *SessionProvider
	store     *cache.MemorySessionStore
	jwt       *JWTService
	blacklist *InMemoryTokenBlacklist
	publisher *recordingPublisher
}

func newProviderFixture() *providerFixture {
	f := &providerFixture{
		store:     cache.NewMemorySessionStore(),
		jwt:       NewJWTService(testJWTConfig()),
		blacklist: NewInMemoryTokenBlacklist(),
		publisher: &recordingPublisher{},
	}
	f.provider = NewSessionProvider(f.store, f.jwt, f.blacklist, f.publisher, zap.NewNop())
	return f
}

func (f *providerFixture) issue(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token, err := f.jwt.Issue(IssueInput{UserID: "user-1", Email: "jan@example.nl", TTL: ttl})
	require.NoError(t, err)
	return token
}

func TestSessionProvider_NoStoredSession(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()

	cached, err := f.provider.HasCachedSession(ctx)
	require.NoError(t, err)
	assert.False(t, cached)

	s, err := f.provider.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSessionProvider_SignInStoresAndPublishes(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	token := f.issue(t, time.Hour)

	s, err := f.provider.SignIn(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)

	cached, err := f.provider.HasCachedSession(ctx)
	require.NoError(t, err)
	assert.True(t, cached)

	current, err := f.provider.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "jan@example.nl", current.Email)
	assert.Equal(t, token, current.AccessToken)

	require.Len(t, f.publisher.events, 1)
	signedIn, ok := f.publisher.events[0].(*session.SignedInEvent)
	require.True(t, ok)
	assert.Equal(t, "user-1", signedIn.UserID)
}

func TestSessionProvider_SignInRejectsInvalidToken(t *testing.T) {
	f := newProviderFixture()

	_, err := f.provider.SignIn(context.Background(), f.issue(t, -time.Minute))
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Empty(t, f.publisher.events)
}

func TestSessionProvider_ExpiredStoredTokenIsFatal(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, f.issue(t, -time.Minute), 0))

	_, err := f.provider.CurrentSession(ctx)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestSessionProvider_StoreFailureIsTransient(t *testing.T) {
	f := newProviderFixture()
	p := NewSessionProvider(failingStore{}, f.jwt, nil, f.publisher, nil)

	_, err := p.CurrentSession(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrSessionExpired)

	_, err = p.HasCachedSession(context.Background())
	assert.Error(t, err)
}

func TestSessionProvider_SignOutRevokes(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	token := f.issue(t, time.Hour)
	_, err := f.provider.SignIn(ctx, token)
	require.NoError(t, err)

	require.NoError(t, f.provider.SignOut(ctx))

	cached, err := f.provider.HasCachedSession(ctx)
	require.NoError(t, err)
	assert.False(t, cached)

	claims, err := f.jwt.Parse(token)
	require.NoError(t, err)
	revoked, err := f.blacklist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.Len(t, f.publisher.events, 2)
	signedOut, ok := f.publisher.events[1].(*session.SignedOutEvent)
	require.True(t, ok)
	assert.Equal(t, "user-1", signedOut.UserID)

	// the revoked token cannot be used to sign in again
	_, err = f.provider.SignIn(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestSessionProvider_RevokedStoredTokenIsFatal(t *testing.T) {
	f := newProviderFixture()
	ctx := context.Background()
	token := f.issue(t, time.Hour)
	claims, err := f.jwt.Parse(token)
	require.NoError(t, err)

	require.NoError(t, f.store.Save(ctx, token, time.Hour))
	require.NoError(t, f.blacklist.Revoke(ctx, claims.ID, time.Hour))

	_, err = f.provider.CurrentSession(ctx)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestSessionProvider_SignOutWithoutSession(t *testing.T) {
	f := newProviderFixture()

	require.NoError(t, f.provider.SignOut(context.Background()))
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, session.EventTypeSignedOut, f.publisher.events[0].EventType())
}
