package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
)

// TenantRootModel holds the columns shared by tenant-owned aggregate tables
type TenantRootModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func tenantRootModel(r shared.TenantAggregateRoot) TenantRootModel {
	return TenantRootModel{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (m TenantRootModel) root() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
