package section

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/session"
)

// Cache stores fetched section data between loads
type Cache interface {
	// Get returns the cached data and whether it was found
	Get(ctx context.Context, name session.SectionName) (any, bool, error)
	// Set stores data for the section. A zero ttl uses the cache default.
	Set(ctx context.Context, name session.SectionName, data any, ttl time.Duration) error
	// Delete removes the section's cached data
	Delete(ctx context.Context, name session.SectionName) error
}

// noopCache is used when the loader has no cache configured
type noopCache struct{}

func (noopCache) Get(context.Context, session.SectionName) (any, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, session.SectionName, any, time.Duration) error {
	return nil
}
func (noopCache) Delete(context.Context, session.SectionName) error { return nil }
