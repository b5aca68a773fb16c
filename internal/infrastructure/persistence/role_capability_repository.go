package persistence

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRoleCapabilityRepository implements RoleCapabilityRepository using GORM
type GormRoleCapabilityRepository struct {
	db *gorm.DB
}

// NewGormRoleCapabilityRepository creates a new GormRoleCapabilityRepository
func NewGormRoleCapabilityRepository(db *gorm.DB) *GormRoleCapabilityRepository {
	return &GormRoleCapabilityRepository{db: db}
}

// FindByRole returns the role's capabilities. An unknown role yields an empty set.
func (r *GormRoleCapabilityRepository) FindByRole(ctx context.Context, role string) (identity.CapabilitySet, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&models.RoleCapabilityModel{}).
		Where("role = ?", role).
		Order("capability").
		Pluck("capability", &codes).Error; err != nil {
		return nil, err
	}
	return identity.NewCapabilitySet(codes...), nil
}

// Grant adds capabilities to a role, ignoring ones it already has
func (r *GormRoleCapabilityRepository) Grant(ctx context.Context, role string, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.RoleCapabilityModel, 0, len(codes))
	for _, code := range codes {
		perm, err := identity.NewPermissionFromCode(code)
		if err != nil {
			return err
		}
		rows = append(rows, models.RoleCapabilityModel{Role: role, Capability: perm.Code, CreatedAt: now})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

var _ identity.RoleCapabilityRepository = (*GormRoleCapabilityRepository)(nil)
