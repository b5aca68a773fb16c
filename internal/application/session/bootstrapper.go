package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// BootstrapConfig contains configuration for the bootstrapper
type BootstrapConfig struct {
	StepTimeout time.Duration // Timeout for each collaborator call (0 = none)
}

// DefaultBootstrapConfig returns default configuration
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		StepTimeout: 10 * time.Second,
	}
}

// Bootstrapper drives the session machine through the bootstrap path:
// authenticating, optional cache validation, profile, permissions, ready.
//
// Each Boot takes a generation token. Logout and newer boots invalidate older
// tokens, and a transition is only applied while its token is current, so a
// late profile or permission response can never overwrite the state of a
// newer session.
type Bootstrapper struct {
	machine     *session.Machine
	sessions    session.Provider
	profiles    identity.ProfileService
	permissions identity.PermissionService
	config      BootstrapConfig
	logger      *zap.Logger
	now         func() time.Time

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	user       *session.UserInfo
}

// NewBootstrapper creates a new bootstrapper
func NewBootstrapper(
	machine *session.Machine,
	sessions session.Provider,
	profiles identity.ProfileService,
	permissions identity.PermissionService,
	config BootstrapConfig,
	logger *zap.Logger,
) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{
		machine:     machine,
		sessions:    sessions,
		profiles:    profiles,
		permissions: permissions,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// token identifies one Boot run
type token struct {
	generation uint64
}

// Boot runs the bootstrap path to completion, or until a newer Boot or a
// Logout supersedes it. The final state is read from the machine.
func (b *Bootstrapper) Boot(ctx context.Context) {
	tok, ctx := b.begin(ctx)

	hasCache, err := b.sessions.HasCachedSession(ctx)
	if err != nil {
		b.log(ctx).Warn("Cached session lookup failed, continuing without cache", zap.Error(err))
		hasCache = false
	}
	if !b.apply(tok, func() { b.machine.StartAuthenticating(hasCache) }) {
		return
	}
	if hasCache {
		if !b.apply(tok, b.machine.StartValidatingCache) {
			return
		}
	}

	sess, err := b.currentSession(ctx)
	if err != nil {
		b.fail(ctx, tok, b.authError(err))
		return
	}
	if sess == nil {
		b.log(ctx).Info("No session found")
		b.apply(tok, b.machine.SetUnauthenticated)
		return
	}
	ctx = logger.WithUserID(ctx, sess.UserID)
	if sess.IsExpired(b.now()) {
		b.fail(ctx, tok, session.NewFatalError(session.CodeSessionExpired, "Session has expired"))
		return
	}

	if !b.apply(tok, func() { b.machine.StartLoadingProfile(sess.UserID) }) {
		return
	}
	profile, err := b.fetchProfile(ctx, sess.UserID)
	if err != nil {
		b.fail(ctx, tok, b.profileError(err))
		return
	}
	if !profile.IsActive() {
		b.fail(ctx, tok, session.NewFatalError(session.CodeProfileInactive, "Profile is not active"))
		return
	}

	if !b.apply(tok, func() { b.machine.StartLoadingPermissions(sess.UserID) }) {
		return
	}
	caps, err := b.capabilities(ctx, profile.Role)
	if err != nil {
		b.fail(ctx, tok, b.stepError(err, session.CodePermissionsFailed, "Failed to load permissions"))
		return
	}

	user := session.UserInfo{
		ID:      sess.UserID,
		Email:   sess.Email,
		Role:    profile.Role,
		IsAdmin: caps.IsAdmin(),
	}
	if b.apply(tok, func() {
		b.machine.SetReady(user)
		b.user = &user
	}) {
		b.log(ctx).Info("Session ready",
			zap.String("role", user.Role),
			zap.Bool("is_admin", user.IsAdmin))
	}
}

// Logout invalidates in-flight boots, resets the machine and marks the
// session as absent.
func (b *Bootstrapper) Logout(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generation++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.user = nil
	b.machine.Reset()
	b.machine.SetUnauthenticated()
	b.log(ctx).Info("Session ended")
}

// CurrentUser returns the user of the last completed boot, if still current
func (b *Bootstrapper) CurrentUser() (session.UserInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.user == nil {
		return session.UserInfo{}, false
	}
	return *b.user, true
}

// Machine returns the machine driven by this bootstrapper
func (b *Bootstrapper) Machine() *session.Machine {
	return b.machine
}

// SessionToken identifies the current session generation. Work started now
// may only touch the machine while the token is still current.
func (b *Bootstrapper) SessionToken() uint64 {
	return b.current().generation
}

// Escalate moves a ready session into error on behalf of a section whose load
// started under tok. It is a no-op once a logout or a newer boot has made tok
// stale, and while a bootstrap owns the machine.
func (b *Bootstrapper) Escalate(tok uint64, name session.SectionName, operation string, appErr session.AppError) bool {
	escalated := false
	b.apply(token{generation: tok}, func() {
		if !b.machine.IsReady() {
			return
		}
		b.machine.StartLoadingSection(name, operation)
		b.machine.SetError(appErr)
		escalated = true
	})
	return escalated
}

func (b *Bootstrapper) current() token {
	b.mu.Lock()
	defer b.mu.Unlock()
	return token{generation: b.generation}
}

// begin starts a new generation and cancels the previous run
func (b *Bootstrapper) begin(ctx context.Context) (token, context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
	}
	b.generation++
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.user = nil
	return token{generation: b.generation}, ctx
}

// apply runs fn only while tok is the current generation. The check and the
// transition happen under the same lock as Logout.
func (b *Bootstrapper) apply(tok token, fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tok.generation != b.generation {
		b.logger.Debug("Dropping stale bootstrap transition",
			zap.Uint64("generation", tok.generation),
			zap.Uint64("current", b.generation))
		return false
	}
	fn()
	return true
}

func (b *Bootstrapper) fail(ctx context.Context, tok token, appErr session.AppError) {
	if b.apply(tok, func() { b.machine.SetError(appErr) }) {
		b.log(ctx).Warn("Bootstrap failed",
			zap.String("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.Bool("can_retry", appErr.CanRetry))
	}
}

func (b *Bootstrapper) log(ctx context.Context) *zap.Logger {
	return logger.LOr(ctx, b.logger)
}

func (b *Bootstrapper) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.config.StepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.config.StepTimeout)
}

func (b *Bootstrapper) currentSession(ctx context.Context) (*session.Session, error) {
	ctx, cancel := b.stepContext(ctx)
	defer cancel()
	return b.sessions.CurrentSession(ctx)
}

func (b *Bootstrapper) fetchProfile(ctx context.Context, userID string) (*identity.Profile, error) {
	ctx, cancel := b.stepContext(ctx)
	defer cancel()
	return b.profiles.FetchProfile(ctx, userID)
}

func (b *Bootstrapper) capabilities(ctx context.Context, role string) (identity.CapabilitySet, error) {
	ctx, cancel := b.stepContext(ctx)
	defer cancel()
	return b.permissions.Capabilities(ctx, role)
}

// authError maps a session provider failure. Expired sessions need a new
// login; anything else is treated as transient.
func (b *Bootstrapper) authError(err error) session.AppError {
	if errors.Is(err, session.ErrSessionExpired) {
		return session.NewFatalError(session.CodeSessionExpired, "Session has expired")
	}
	return b.stepError(err, session.CodeAuthUnavailable, "Authentication service unavailable")
}

// profileError maps a profile fetch failure. A missing profile stays
// retryable: profile rows may be created shortly after the account.
func (b *Bootstrapper) profileError(err error) session.AppError {
	if shared.CodeOf(err) == session.CodeProfileNotFound {
		return session.NewRetryableError(session.CodeProfileNotFound, "Profile not found")
	}
	return b.stepError(err, session.CodeProfileFailed, "Failed to load profile")
}

func (b *Bootstrapper) stepError(err error, code, message string) session.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return session.NewRetryableError(session.CodeTimeout, message+": request timed out")
	}
	return session.NewRetryableError(code, message)
}
