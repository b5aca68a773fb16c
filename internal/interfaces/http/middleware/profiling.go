package middleware

import (
	"context"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling tags the CPU samples of each request with its method, route
// pattern and section.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		labels := map[string]string{
			telemetry.ProfilingLabelMethod: c.Request.Method,
			telemetry.ProfilingLabelRoute:  c.FullPath(),
		}
		if section, err := session.ParseSection(c.Param("section")); err == nil {
			labels[telemetry.ProfilingLabelSection] = section.String()
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
