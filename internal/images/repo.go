package images

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motoyard/motoyard-backend/pkg/db/models"
)

// Repository persists image rows and the listing columns the pipeline touches.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new image row.
func (r *Repository) Create(ctx context.Context, image *models.Image) (*models.Image, error) {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, err
	}
	return image, nil
}

// Delete removes an image row by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Image{}).Error
}

// FindByImageURL looks up the row owning the given full-size URL.
func (r *Repository) FindByImageURL(ctx context.Context, imageURL string) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).First(&image, "image_url = ?", imageURL).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// FindByObjectName looks up the row owning the given storage object, full-size or thumbnail.
func (r *Repository) FindByObjectName(ctx context.Context, objectName string) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).
		First(&image, "object_name = ? OR thumb_object_name = ?", objectName, objectName).
		Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// FindListing loads the owning listing row.
func (r *Repository) FindListing(ctx context.Context, id string) (*models.Motorcycle, error) {
	var motorcycle models.Motorcycle
	if err := r.db.WithContext(ctx).First(&motorcycle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &motorcycle, nil
}

// SetListingThumbnailIfUnset fills thumbnail_url only when it is still null.
// Returns true when the row was updated.
func (r *Repository) SetListingThumbnailIfUnset(ctx context.Context, motorcycleID, thumbURL string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Motorcycle{}).
		Where("id = ? AND thumbnail_url IS NULL", motorcycleID).
		Update("thumbnail_url", thumbURL)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClearListingThumbnail nulls thumbnail_url when it still points at the given URL.
// Returns true when the row was updated.
func (r *Repository) ClearListingThumbnail(ctx context.Context, motorcycleID, thumbURL string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Motorcycle{}).
		Where("id = ? AND thumbnail_url = ?", motorcycleID, thumbURL).
		Update("thumbnail_url", nil)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// NextPosition returns the next display slot for the listing's images.
func (r *Repository) NextPosition(ctx context.Context, motorcycleID string) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("motorcycle_id = ?", motorcycleID).
		Select("MAX(position)").
		Scan(&max).
		Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}
