package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role struct {
	Name        string    `gorm:"size:20;primaryKey" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	RoleAdmin     = "admin"
	RoleExecutive = "executive"
	RoleMember    = "member"
)

// Account holds the credentials of one identity. It never leaves the server.
type Account struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Profile      *Profile   `gorm:"foreignKey:ID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Account) Confirmed() bool {
	return a.ConfirmedAt != nil
}

// Profile shares its primary key with the owning Account.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	StudentID string    `gorm:"size:50;not null" json:"student_id"`
	Email     string    `gorm:"size:100;not null" json:"email"`
	Role      string    `gorm:"size:20;not null;default:member;index" json:"role"`
	RoleRef   *Role     `gorm:"foreignKey:Role;references:Name;constraint:OnUpdate:CASCADE" json:"-"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
