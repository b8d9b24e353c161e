package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository interface {
	// CreateWithProfile stores the account and its profile atomically.
	CreateWithProfile(ctx context.Context, account *entity.Account, profile *entity.Profile) error
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	FindProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	Confirm(ctx context.Context, id uuid.UUID, at time.Time) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) CreateWithProfile(ctx context.Context, account *entity.Account, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.ErrAlreadyExists
			}
			return err
		}

		profile.ID = account.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}

		account.Profile = profile
		return nil
	})
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).Preload("Profile").Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var account entity.Account
	err := r.db.WithContext(ctx).Preload("Profile").First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *accountRepository) Confirm(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ? AND confirmed_at IS NULL", id).
		Update("confirmed_at", at)
	if res.Error != nil {
		return res.Error
	}
	return nil
}
