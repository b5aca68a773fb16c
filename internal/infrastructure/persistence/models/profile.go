package models

import (
	"time"

	"github.com/crm/backend/internal/domain/identity"
)

// ProfileModel is the persistence model of a user profile
type ProfileModel struct {
	UserID    string                 `gorm:"type:varchar(64);primaryKey"`
	FullName  string                 `gorm:"type:varchar(200)"`
	Role      string                 `gorm:"type:varchar(50);not null;default:'Gebruiker'"`
	Status    identity.ProfileStatus `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time              `gorm:"not null"`
	UpdatedAt time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the model to a domain Profile
func (m *ProfileModel) ToDomain() *identity.Profile {
	return &identity.Profile{
		UserID:   m.UserID,
		FullName: m.FullName,
		Role:     m.Role,
		Status:   m.Status,
	}
}

// ProfileModelFromDomain converts a domain Profile to its model
func ProfileModelFromDomain(p *identity.Profile) *ProfileModel {
	return &ProfileModel{
		UserID:   p.UserID,
		FullName: p.FullName,
		Role:     p.Role,
		Status:   p.Status,
	}
}

// RoleCapabilityModel grants one capability to one role
type RoleCapabilityModel struct {
	Role       string    `gorm:"type:varchar(50);primaryKey"`
	Capability string    `gorm:"type:varchar(100);primaryKey"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RoleCapabilityModel) TableName() string {
	return "role_capabilities"
}
