package bootstrap

import (
	"errors"

	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	AdminEmail    = "admin@isf.club"
	adminPassword = "admin123"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.Account{},
		&entity.Profile{},
		&entity.Event{},
		&entity.Announcement{},
		&entity.TeamMember{},
		&entity.Thread{},
		&entity.Asset{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Manages portal content"},
		{Name: entity.RoleExecutive, Description: "Club executive"},
		{Name: entity.RoleMember, Description: "Club member"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedAdminUser(db *gorm.DB) error {
	var existing entity.Account
	err := db.Where("email = ?", AdminEmail).First(&existing).Error
	if err == nil {
		logger.Info().Msg("admin account already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		now := tx.NowFunc()
		account := entity.Account{
			Email:        AdminEmail,
			PasswordHash: string(hash),
			ConfirmedAt:  &now,
		}
		if err := tx.Omit("Profile").Create(&account).Error; err != nil {
			return err
		}

		profile := entity.Profile{
			ID:        account.ID,
			Name:      "Administrator",
			StudentID: "ADMIN",
			Email:     AdminEmail,
			Role:      entity.RoleAdmin,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		logger.Info().Str("email", AdminEmail).Str("password", adminPassword).Msg("admin account seeded")
		return nil
	})
}

// SeedTeam fills an empty roster so the home page has something to show.
func SeedTeam(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.TeamMember{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	team := []entity.TeamMember{
		{Name: "Aisha Rahman", Position: "President", PhotoURL: "https://picsum.photos/seed/president/400/400",
			Socials: entity.Socials{LinkedIn: "https://linkedin.com", Instagram: "https://instagram.com"}},
		{Name: "Omar Farouk", Position: "Vice President", PhotoURL: "https://picsum.photos/seed/vp/400/400",
			Socials: entity.Socials{LinkedIn: "https://linkedin.com", Instagram: "https://instagram.com"}},
		{Name: "Fatima Zahra", Position: "Secretary", PhotoURL: "https://picsum.photos/seed/secretary/400/400",
			Socials: entity.Socials{LinkedIn: "https://linkedin.com", Instagram: "https://instagram.com"}},
		{Name: "Yusuf Ali", Position: "Treasurer", PhotoURL: "https://picsum.photos/seed/treasurer/400/400",
			Socials: entity.Socials{LinkedIn: "https://linkedin.com", Instagram: "https://instagram.com"}},
		{Name: "Maryam Siddiqui", Position: "Events Coordinator", PhotoURL: "https://picsum.photos/seed/events/400/400",
			Socials: entity.Socials{LinkedIn: "https://linkedin.com", Instagram: "https://instagram.com"}},
	}

	if err := db.Create(&team).Error; err != nil {
		return err
	}
	logger.Info().Int("members", len(team)).Msg("team roster seeded")
	return nil
}
