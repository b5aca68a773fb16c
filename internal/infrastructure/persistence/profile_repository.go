package persistence

import (
	"context"
	"errors"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProfileRepository implements ProfileRepository using GORM
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByUserID returns the profile or identity.ErrProfileNotFound
func (r *GormProfileRepository) FindByUserID(ctx context.Context, userID string) (*identity.Profile, error) {
	var model models.ProfileModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrProfileNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts the profile or updates name, role and status
func (r *GormProfileRepository) Save(ctx context.Context, profile *identity.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "role", "status", "updated_at"}),
		}).
		Create(models.ProfileModelFromDomain(profile)).Error
}

var _ identity.ProfileRepository = (*GormProfileRepository)(nil)
