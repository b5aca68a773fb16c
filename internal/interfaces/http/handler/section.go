package handler

import (
	"context"
	"errors"
	"time"

	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/i18n"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultMountWait is how long a section request waits for the first load
const DefaultMountWait = 2 * time.Second

// SectionGate is the section gate as seen by the HTTP layer
type SectionGate interface {
	Mount(ctx context.Context, viewer session.UserInfo, name session.SectionName) <-chan struct{}
	Render(ctx context.Context, viewer session.UserInfo, name session.SectionName, title string) section.View
	Retry(ctx context.Context, viewer session.UserInfo, name session.SectionName) error
}

// CurrentUser returns the signed-in user
type CurrentUser interface {
	CurrentUser() (session.UserInfo, bool)
}

// SectionHandler serves gated CRM sections
type SectionHandler struct {
	BaseHandler
	gate     SectionGate
	users    CurrentUser
	messages *i18n.Messages
	wait     time.Duration
	logger   *zap.Logger
}

// NewSectionHandler creates a new SectionHandler. A non-positive wait uses
// DefaultMountWait.
func NewSectionHandler(gate SectionGate, users CurrentUser, messages *i18n.Messages, wait time.Duration, log *zap.Logger) *SectionHandler {
	if wait <= 0 {
		wait = DefaultMountWait
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SectionHandler{
		gate:     gate,
		users:    users,
		messages: messages,
		wait:     wait,
		logger:   log,
	}
}

// Get mounts the section and renders it. A load still running after the
// mount wait renders as loading; the client polls again.
func (h *SectionHandler) Get(c *gin.Context) {
	user, name, ok := h.bind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	timer := time.NewTimer(h.wait)
	defer timer.Stop()
	select {
	case <-h.gate.Mount(ctx, user, name):
	case <-timer.C:
	case <-ctx.Done():
	}

	h.render(c, user, name)
}

// Retry re-runs the section loader and renders the outcome
func (h *SectionHandler) Retry(c *gin.Context) {
	user, name, ok := h.bind(c)
	if !ok {
		return
	}

	if err := h.gate.Retry(c.Request.Context(), user, name); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.HandleError(c, err)
			return
		}
		logger.LOr(c.Request.Context(), h.logger).Debug("Section retry failed",
			zap.String("section", name.String()),
			zap.Error(err))
	}
	h.render(c, user, name)
}

func (h *SectionHandler) bind(c *gin.Context) (session.UserInfo, session.SectionName, bool) {
	var req dto.SectionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return session.UserInfo{}, "", false
	}

	user, ok := h.users.CurrentUser()
	if !ok {
		h.Unauthorized(c, "No active session")
		return session.UserInfo{}, "", false
	}
	tagUser(c, user.ID)
	return user, session.SectionName(req.Section), true
}

func (h *SectionHandler) render(c *gin.Context, user session.UserInfo, name session.SectionName) {
	tag := h.messages.Match(c.GetHeader("Accept-Language"))
	view := h.gate.Render(c.Request.Context(), user, name, h.messages.SectionTitle(tag, name))

	resp := dto.SectionViewResponse{
		Kind:    string(view.Kind),
		Section: name.String(),
		Title:   view.Title,
	}
	switch view.Kind {
	case section.ViewLoading:
		resp.Message = h.messages.SectionLoading(tag, name)
	case section.ViewError:
		resp.Message = h.messages.SectionError(tag, name)
		resp.CanRetry = view.Retry != nil
	default:
		resp.Data = view.Data
	}
	h.Success(c, resp)
}
