package persistence

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
	"gorm.io/gorm"
)

// SectionTables maps each section to the table its rows are read from
var SectionTables = map[session.SectionName]string{
	session.SectionCustomers:        "customers",
	session.SectionProjects:         "projects",
	session.SectionPlanning:         "planning_entries",
	session.SectionTimeRegistration: "time_registrations",
	session.SectionReceipts:         "receipts",
	session.SectionQuotes:           "quotes",
	session.SectionPersonnel:        "personnel",
	session.SectionUsers:            "profiles",
	session.SectionSettings:         "app_settings",
	session.SectionEmail:            "email_messages",
	session.SectionChat:             "chat_messages",
}

// GormSectionSource reads the newest rows of each section's table
type GormSectionSource struct {
	db       *gorm.DB
	rowLimit int
}

// NewGormSectionSource creates a source. A non-positive rowLimit reads all rows.
func NewGormSectionSource(db *gorm.DB, rowLimit int) *GormSectionSource {
	return &GormSectionSource{db: db, rowLimit: rowLimit}
}

// Fetch returns the section's rows, newest first
func (s *GormSectionSource) Fetch(ctx context.Context, name session.SectionName) ([]map[string]any, error) {
	table, ok := SectionTables[name]
	if !ok {
		return nil, fmt.Errorf("no table for section %q", name)
	}

	query := s.db.WithContext(ctx).Table(table).Order("created_at DESC")
	if s.rowLimit > 0 {
		query = query.Limit(s.rowLimit)
	}

	rows := make([]map[string]any, 0)
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return rows, nil
}

// Fetchers returns one loader fetch function per section
func (s *GormSectionSource) Fetchers() map[session.SectionName]section.FetchFunc {
	out := make(map[session.SectionName]section.FetchFunc, len(SectionTables))
	for name := range SectionTables {
		out[name] = func(ctx context.Context) (any, error) {
			return s.Fetch(ctx, name)
		}
	}
	return out
}
