package entity

import (
	"time"

	"github.com/google/uuid"
)

// Asset records every object pushed to storage so unreferenced uploads can
// be reclaimed.
type Asset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Bucket    string    `gorm:"size:100;not null;index" json:"bucket"`
	Path      string    `gorm:"type:text;not null" json:"path"`
	URL       string    `gorm:"type:text;not null;uniqueIndex" json:"url"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null" json:"owner_id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
