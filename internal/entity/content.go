package entity

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title" validate:"required"`
	Description string `gorm:"type:text;not null" json:"description" validate:"required"`
	// Date is a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp.
	Date     string `gorm:"size:40;not null;index" json:"date" validate:"required"`
	ImageURL string `gorm:"type:text;not null" json:"image_url"`
}

type Announcement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title" validate:"required"`
	Content   string    `gorm:"type:text;not null" json:"content" validate:"required"`
	Author    string    `gorm:"size:100" json:"author"`
	Date      string    `gorm:"size:40;not null" json:"date" validate:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

type Socials struct {
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
}

type TeamMember struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"size:100;not null" json:"name" validate:"required"`
	Position string  `gorm:"size:100;not null" json:"position" validate:"required"`
	PhotoURL string  `gorm:"type:text;not null" json:"photo_url"`
	Socials  Socials `gorm:"serializer:json;type:jsonb" json:"socials"`
}

type Thread struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Title    string    `gorm:"size:200;not null" json:"title" validate:"required"`
	Author   string    `gorm:"size:100;not null" json:"author" validate:"required"`
	Replies  int       `gorm:"not null;default:0" json:"replies"`
	LastPost time.Time `gorm:"not null;index" json:"last_post"`
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.LastPost.IsZero() {
		t.LastPost = time.Now().UTC()
	}
	return nil
}
