//go:build devtools

package handler

import (
	"github.com/crm/backend/internal/application/diagnostics"
	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// DevtoolsEnabled reports whether the binary was built with the devtools tag
const DevtoolsEnabled = true

// DevtoolsHandler serves the loading-state overlay
type DevtoolsHandler struct {
	BaseHandler
	overlay *diagnostics.Overlay
}

// LoadingState returns the overlay view of the session machine
func (h *DevtoolsHandler) LoadingState(c *gin.Context) {
	h.Success(c, h.overlay.View())
}

// DevtoolsRoutes returns the devtools route group
func DevtoolsRoutes(machine *session.Machine, loader *section.Loader) router.RouteRegistrar {
	opts := []diagnostics.OverlayOption{}
	if loader != nil {
		opts = append(opts, diagnostics.WithSections(loader))
	}
	h := &DevtoolsHandler{overlay: diagnostics.NewOverlay(machine, opts...)}

	return router.NewDomainGroup("devtools", "/devtools").
		GET("/loading-state", h.LoadingState)
}
