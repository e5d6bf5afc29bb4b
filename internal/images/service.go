package images

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motoyard/motoyard-backend/pkg/config"
	"github.com/motoyard/motoyard-backend/pkg/db"
	"github.com/motoyard/motoyard-backend/pkg/db/models"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/logger"
)

const thumbObjectPrefix = "thumb_"

type objectStore interface {
	UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error
	DeleteObject(ctx context.Context, bucket, object string) error
	PublicURL(bucket, object string) string
	DefaultBucket() string
}

// Service exposes the image pipeline.
type Service interface {
	Upload(ctx context.Context, file UploadFile) (*ImageDTO, error)
	UploadBatch(ctx context.Context, files []UploadFile) ([]ImageDTO, error)
	AttachToMotorcycle(ctx context.Context, motorcycleID string, file UploadFile) (*ImageDTO, error)
	DeleteByImageURL(ctx context.Context, imageURL string) error
	RemoveObject(ctx context.Context, objectName string) error
}

type storedObject struct {
	object      string
	thumbObject string
	imageURL    string
	thumbURL    string
}

// service implements the image pipeline.
type service struct {
	repo     *Repository
	dbClient *db.Client
	store    objectStore
	cfg      config.MediaConfig
	logg     *logger.Logger
}

// NewService constructs the image pipeline service.
func NewService(repo *Repository, dbClient *db.Client, store objectStore, cfg config.MediaConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("image repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if store == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = 640
	}
	if cfg.ThumbnailHeight <= 0 {
		cfg.ThumbnailHeight = 480
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		store:    store,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

// Upload stores a standalone image plus its thumbnail and records the row.
func (s *service) Upload(ctx context.Context, file UploadFile) (*ImageDTO, error) {
	stored, err := s.uploadObjects(ctx, file)
	if err != nil {
		return nil, err
	}

	image := &models.Image{
		ID:              uuid.New(),
		ImageURL:        stored.imageURL,
		ThumbURL:        stored.thumbURL,
		ObjectName:      stored.object,
		ThumbObjectName: stored.thumbObject,
	}
	if _, err := s.repo.Create(ctx, image); err != nil {
		s.removeStored(ctx, stored)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert image")
	}
	return NewImageDTO(image), nil
}

// UploadBatch uploads every file or none: on any failure the objects and rows
// created earlier in the batch are removed before the error is surfaced.
func (s *service) UploadBatch(ctx context.Context, files []UploadFile) ([]ImageDTO, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files provided")
	}

	results := make([]ImageDTO, 0, len(files))
	var createdRows []uuid.UUID
	var storedObjects []storedObject

	rollback := func() {
		for _, id := range createdRows {
			if err := s.repo.Delete(ctx, id); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "image_id", id.String()), "batch rollback: failed to delete image row")
			}
		}
		for _, stored := range storedObjects {
			s.removeStored(ctx, stored)
		}
	}

	for _, file := range files {
		stored, err := s.uploadObjects(ctx, file)
		if err != nil {
			rollback()
			return nil, err
		}
		storedObjects = append(storedObjects, stored)

		image := &models.Image{
			ID:              uuid.New(),
			ImageURL:        stored.imageURL,
			ThumbURL:        stored.thumbURL,
			ObjectName:      stored.object,
			ThumbObjectName: stored.thumbObject,
		}
		if _, err := s.repo.Create(ctx, image); err != nil {
			rollback()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert image")
		}
		createdRows = append(createdRows, image.ID)
		results = append(results, *NewImageDTO(image))
	}

	return results, nil
}

// AttachToMotorcycle uploads the image against a listing and auto-fills the
// listing thumbnail when it is still unset.
func (s *service) AttachToMotorcycle(ctx context.Context, motorcycleID string, file UploadFile) (*ImageDTO, error) {
	if _, err := s.repo.FindListing(ctx, motorcycleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no motorcycle found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load motorcycle")
	}

	stored, err := s.uploadObjects(ctx, file)
	if err != nil {
		return nil, err
	}

	image := &models.Image{
		ID:              uuid.New(),
		MotorcycleID:    &motorcycleID,
		ImageURL:        stored.imageURL,
		ThumbURL:        stored.thumbURL,
		ObjectName:      stored.object,
		ThumbObjectName: stored.thumbObject,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		position, err := txRepo.NextPosition(ctx, motorcycleID)
		if err != nil {
			return err
		}
		image.Position = position

		if _, err := txRepo.Create(ctx, image); err != nil {
			return err
		}

		_, err = txRepo.SetListingThumbnailIfUnset(ctx, motorcycleID, stored.thumbURL)
		return err
	}); err != nil {
		s.removeStored(ctx, stored)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: attach image")
	}

	return NewImageDTO(image), nil
}

// DeleteByImageURL removes the row and both storage objects.
func (s *service) DeleteByImageURL(ctx context.Context, imageURL string) error {
	image, err := s.repo.FindByImageURL(ctx, imageURL)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no image found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load image")
	}

	if err := s.repo.Delete(ctx, image.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete image")
	}

	// Storage failures are logged; the sweeper reconciles stragglers.
	for _, object := range []string{image.ObjectName, image.ThumbObjectName} {
		if object == "" {
			continue
		}
		if err := s.RemoveObject(ctx, object); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "object_name", object), "failed to remove storage object")
		}
	}
	return nil
}

// RemoveObject deletes one storage object from the default bucket.
func (s *service) RemoveObject(ctx context.Context, objectName string) error {
	return s.store.DeleteObject(ctx, s.store.DefaultBucket(), objectName)
}

// uploadObjects builds the thumbnail and pushes both derivatives to storage.
// When the original upload fails after the thumbnail succeeded, the thumbnail
// is removed before the error returns.
func (s *service) uploadObjects(ctx context.Context, file UploadFile) (storedObject, error) {
	if len(file.Data) == 0 {
		return storedObject{}, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	maxBytes := s.cfg.MaxUploadMB * 1024 * 1024
	if len(file.Data) > maxBytes {
		return storedObject{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d MB", s.cfg.MaxUploadMB))
	}

	ext := strings.ToLower(path.Ext(file.FileName))
	if ext == "" {
		return storedObject{}, pkgerrors.New(pkgerrors.CodeValidation, "file name must carry an image extension")
	}

	thumb, err := buildThumbnail(file.Data, ext, s.cfg.ThumbnailWidth, s.cfg.ThumbnailHeight)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "file_name", file.FileName), "thumbnail generation failed")
		return storedObject{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to process image")
	}

	base := uuid.NewString()
	bucket := s.store.DefaultBucket()
	stored := storedObject{
		object:      base + ext,
		thumbObject: thumbObjectPrefix + base + ext,
	}
	contentType := contentTypeForExt(ext)

	if err := s.store.UploadObject(ctx, bucket, stored.thumbObject, contentType, thumb); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "object_name", stored.thumbObject), "thumbnail upload failed")
		return storedObject{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to process image")
	}
	if err := s.store.UploadObject(ctx, bucket, stored.object, contentType, file.Data); err != nil {
		if delErr := s.store.DeleteObject(ctx, bucket, stored.thumbObject); delErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "object_name", stored.thumbObject), "failed to roll back thumbnail object")
		}
		s.logg.Warn(s.logg.WithField(ctx, "object_name", stored.object), "image upload failed")
		return storedObject{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to process image")
	}

	stored.imageURL = s.store.PublicURL(bucket, stored.object)
	stored.thumbURL = s.store.PublicURL(bucket, stored.thumbObject)
	return stored, nil
}

func (s *service) removeStored(ctx context.Context, stored storedObject) {
	for _, object := range []string{stored.object, stored.thumbObject} {
		if object == "" {
			continue
		}
		if err := s.RemoveObject(ctx, object); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "object_name", object), "failed to remove storage object")
		}
	}
}
