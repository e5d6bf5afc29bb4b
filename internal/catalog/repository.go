package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/motoyard/motoyard-backend/pkg/db/models"
	"github.com/motoyard/motoyard-backend/pkg/pagination"
)

// Repository wires together listing persistence helpers.
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

// FindByID loads the listing with its images ordered for display.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Motorcycle, error) {
	var motorcycle models.Motorcycle
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		First(&motorcycle, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &motorcycle, nil
}

// Create inserts a new listing row.
func (r *Repository) Create(ctx context.Context, motorcycle *models.Motorcycle) (*models.Motorcycle, error) {
	if err := r.db.WithContext(ctx).Create(motorcycle).Error; err != nil {
		return nil, err
	}
	return motorcycle, nil
}

// Update updates an existing listing row.
func (r *Repository) Update(ctx context.Context, motorcycle *models.Motorcycle) (*models.Motorcycle, error) {
	if err := r.db.WithContext(ctx).Save(motorcycle).Error; err != nil {
		return nil, err
	}
	return motorcycle, nil
}

// Delete removes a listing by ID. Image rows cascade via the FK.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Motorcycle{}).Error
}

// ListImages returns the image rows attached to the listing.
func (r *Repository) ListImages(ctx context.Context, motorcycleID string) ([]models.Image, error) {
	var rows []models.Image
	err := r.db.WithContext(ctx).
		Where("motorcycle_id = ?", motorcycleID).
		Order("position ASC, created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// DeleteImages removes all image rows attached to the listing.
func (r *Repository) DeleteImages(ctx context.Context, motorcycleID string) error {
	return r.db.WithContext(ctx).
		Where("motorcycle_id = ?", motorcycleID).
		Delete(&models.Image{}).
		Error
}

// ListPage fetches one page of listings using the buffered limit so the
// service can detect whether a further page exists.
func (r *Repository) ListPage(ctx context.Context, params ListParams) ([]models.Motorcycle, error) {
	page := params.Pagination.Normalize()
	buffered := pagination.LimitWithBuffer(params.Pagination.Limit)

	var rows []models.Motorcycle
	err := r.db.WithContext(ctx).
		Where("sold = ? AND status = ?", params.ShowSold, params.ShowStatus).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(buffered).
		Find(&rows).
		Error
	return rows, err
}
