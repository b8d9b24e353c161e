package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/internal/modules/asset/dto"
	"anoa.com/isfportal/internal/modules/asset/repository"
	"anoa.com/isfportal/pkg/apperror"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/storage"
	"github.com/google/uuid"
)

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

type AssetService interface {
	Upload(ctx context.Context, ownerID uuid.UUID, bucket, objectPath string, r io.Reader) (*dto.UploadResponse, error)
	CleanupOrphans(ctx context.Context) (int, error)
}

type assetService struct {
	repo      repository.AssetRepository
	storage   storage.ObjectStorage
	orphanAge time.Duration
	now       func() time.Time
}

func NewAssetService(repo repository.AssetRepository, objectStorage storage.ObjectStorage, orphanAge time.Duration) AssetService {
	if orphanAge <= 0 {
		orphanAge = 24 * time.Hour
	}
	return &assetService{
		repo:      repo,
		storage:   objectStorage,
		orphanAge: orphanAge,
		now:       time.Now,
	}
}

func (s *assetService) Upload(ctx context.Context, ownerID uuid.UUID, bucket, objectPath string, r io.Reader) (*dto.UploadResponse, error) {
	if !bucketPattern.MatchString(bucket) {
		return nil, apperror.New(http.StatusBadRequest, "invalid bucket name", apperror.ErrInvalidInput)
	}

	objectPath = strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	if objectPath == "" || objectPath == "." {
		return nil, apperror.New(http.StatusBadRequest, "object path is required", apperror.ErrInvalidInput)
	}

	url, err := s.storage.Upload(ctx, r, bucket, objectPath)
	if err != nil {
		return nil, fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}

	asset := &entity.Asset{
		Bucket:  bucket,
		Path:    objectPath,
		URL:     url,
		OwnerID: ownerID,
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, err
	}

	return &dto.UploadResponse{
		Key:       bucket + "/" + objectPath,
		PublicURL: url,
	}, nil
}

func (s *assetService) CleanupOrphans(ctx context.Context) (int, error) {
	orphans, err := s.repo.FindOrphans(ctx, s.now().Add(-s.orphanAge))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, orphan := range orphans {
		if err := s.storage.Delete(ctx, orphan.URL); err != nil {
			logger.Warn().Err(err).Str("url", orphan.URL).Msg("failed to delete orphan object")
			continue
		}

		// If DB delete fails, next run will pick it up again.
		if err := s.repo.Delete(ctx, orphan.ID); err != nil {
			logger.Warn().Err(err).Uint("asset_id", orphan.ID).Msg("failed to delete orphan record")
			continue
		}
		removed++
	}
	return removed, nil
}
