package repository

import (
	"context"
	"time"

	"anoa.com/isfportal/internal/entity"
	"gorm.io/gorm"
)

type AssetRepository interface {
	Create(ctx context.Context, asset *entity.Asset) error
	// FindOrphans returns assets older than cutoff that no content row points at.
	FindOrphans(ctx context.Context, cutoff time.Time) ([]entity.Asset, error)
	Delete(ctx context.Context, id uint) error
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *assetRepository) FindOrphans(ctx context.Context, cutoff time.Time) ([]entity.Asset, error) {
	var assets []entity.Asset
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("url NOT IN (?)", r.db.Model(&entity.Event{}).Select("image_url")).
		Where("url NOT IN (?)", r.db.Model(&entity.TeamMember{}).Select("photo_url")).
		Find(&assets).Error
	return assets, err
}

func (r *assetRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entity.Asset{}, id).Error
}
