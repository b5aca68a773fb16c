//go:build !devtools

package handler

import (
	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/interfaces/http/router"
)

// DevtoolsEnabled reports whether the binary was built with the devtools tag
const DevtoolsEnabled = false

// DevtoolsRoutes registers nothing outside devtools builds
func DevtoolsRoutes(*session.Machine, *section.Loader) router.RouteRegistrar {
	return nil
}
