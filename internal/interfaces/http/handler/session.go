package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/i18n"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// SessionBooter runs the bootstrap path
type SessionBooter interface {
	Boot(ctx context.Context)
	Logout(ctx context.Context)
	Machine() *session.Machine
}

// SessionRecovery re-runs the step behind the current error
type SessionRecovery interface {
	Retry(ctx context.Context) error
}

// SessionAuth signs sessions in and out
type SessionAuth interface {
	SignIn(ctx context.Context, token string) (*session.Session, error)
	SignOut(ctx context.Context) error
}

// SessionHandler exposes the session machine over HTTP
type SessionHandler struct {
	BaseHandler
	booter   SessionBooter
	recovery SessionRecovery
	auth     SessionAuth
	messages *i18n.Messages
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(
	booter SessionBooter,
	recovery SessionRecovery,
	auth SessionAuth,
	messages *i18n.Messages,
	log *zap.Logger,
) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{
		booter:   booter,
		recovery: recovery,
		auth:     auth,
		messages: messages,
		logger:   log,
	}
}

// State returns the current session state
func (h *SessionHandler) State(c *gin.Context) {
	h.respondState(c)
}

// Boot re-runs the bootstrap path and returns the state it ended in
func (h *SessionHandler) Boot(c *gin.Context) {
	h.booter.Boot(c.Request.Context())
	h.respondState(c)
}

// Retry re-runs the failed step
func (h *SessionHandler) Retry(c *gin.Context) {
	h.tagSessionUser(c)
	if err := h.recovery.Retry(c.Request.Context()); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.HandleError(c, err)
			return
		}
		// A failed section retry is already reflected in the machine.
		logger.LOr(c.Request.Context(), h.logger).Debug("Retry failed", zap.Error(err))
	}
	h.respondState(c)
}

// Login verifies an access token and boots a session for it
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	s, err := h.auth.SignIn(c.Request.Context(), req.Token)
	if err != nil {
		if s == nil {
			h.signInError(c, err)
			return
		}
		tagUser(c, s.UserID)
		ctx := c.Request.Context()
		// The token is stored but nobody heard about it.
		logger.LOr(ctx, h.logger).Warn("Sign-in event not delivered, booting directly", zap.Error(err))
		h.booter.Boot(ctx)
	}
	h.respondState(c)
}

// Logout revokes the stored session. Local state is cleared even when
// revocation fails.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.tagSessionUser(c)
	ctx := c.Request.Context()
	if err := h.auth.SignOut(ctx); err != nil {
		logger.LOr(ctx, h.logger).Warn("Sign-out incomplete", zap.Error(err))
		h.booter.Logout(ctx)
	}
	h.respondState(c)
}

func (h *SessionHandler) signInError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrTokenRevoked):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeTokenRevoked, "Token has been revoked")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingUserID):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Token is invalid")
	default:
		_ = c.Error(err)
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Sign-in is temporarily unavailable")
	}
}

// tagSessionUser tags the request with the user the machine currently knows
func (h *SessionHandler) tagSessionUser(c *gin.Context) {
	switch s := h.booter.Machine().State().(type) {
	case session.Ready:
		tagUser(c, s.User.ID)
	case session.LoadingProfile:
		tagUser(c, s.UserID)
	case session.LoadingPermissions:
		tagUser(c, s.UserID)
	}
}

func (h *SessionHandler) respondState(c *gin.Context) {
	snap := h.booter.Machine().Snapshot()
	tag := h.messages.Match(c.GetHeader("Accept-Language"))
	h.Success(c, h.stateResponse(snap, tag))
}

func (h *SessionHandler) stateResponse(snap session.Snapshot, tag language.Tag) dto.SessionStateResponse {
	resp := dto.SessionStateResponse{
		Status:          snap.State.Status().String(),
		IsLoading:       snap.IsLoading,
		IsError:         snap.IsError,
		IsReady:         snap.IsReady,
		IsAuthenticated: snap.IsAuthenticated,
	}

	switch s := snap.State.(type) {
	case session.LoadingProfile:
		resp.UserID = s.UserID
	case session.LoadingPermissions:
		resp.UserID = s.UserID
	case session.LoadingSection:
		resp.Section = s.Section.String()
	case session.Ready:
		resp.User = &dto.UserResponse{
			ID:      s.User.ID,
			Email:   s.User.Email,
			Role:    s.User.Role,
			IsAdmin: s.User.IsAdmin,
		}
	case session.Failed:
		resp.Error = &dto.FriendlyError{
			Code:      s.Err.Code,
			Message:   h.messages.ErrorMessage(tag, s.Err.Code),
			CanRetry:  s.Err.CanRetry,
			Timestamp: s.Err.Timestamp,
		}
	}
	return resp
}
