package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel is the common base struct for persisted models.
// IDs are opaque UUID strings assigned on insert; gorm.Model is avoided so no
// implicit soft delete applies.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a fresh UUID. Any ID set by the caller is replaced, so
// identity always comes from the store.
func (m *BaseModel) BeforeCreate(_ *gorm.DB) error {
	m.ID = uuid.NewString()
	return nil
}
