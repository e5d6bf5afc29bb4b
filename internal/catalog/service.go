package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/motoyard/motoyard-backend/pkg/db"
	"github.com/motoyard/motoyard-backend/pkg/db/models"
	"github.com/motoyard/motoyard-backend/pkg/enums"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/logger"
	"github.com/motoyard/motoyard-backend/pkg/security"
)

const (
	listingIDLength     = 12
	listingIDMaxRetries = 5
)

// Service exposes catalog management operations.
type Service interface {
	ListMotorcycles(ctx context.Context, params ListParams) (*ListResult, error)
	GetMotorcycle(ctx context.Context, id string) (*MotorcycleDTO, error)
	CreateMotorcycle(ctx context.Context, input CreateMotorcycleInput) (*MotorcycleDTO, error)
	UpdateMotorcycle(ctx context.Context, id string, input UpdateMotorcycleInput) (*MotorcycleDTO, error)
	DeleteMotorcycle(ctx context.Context, id string) error
}

type objectRemover interface {
	RemoveObject(ctx context.Context, objectName string) error
}

// service implements the catalog service.
type service struct {
	repo     *Repository
	dbClient *db.Client
	storage  objectRemover
	logg     *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client, storage objectRemover, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		storage:  storage,
		logg:     logg,
	}, nil
}

// ListMotorcycles returns one page of listings with the over-fetch trimmed off.
func (s *service) ListMotorcycles(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ShowStatus == "" {
		params.ShowStatus = enums.ListingStatusActive
	}
	if !params.ShowStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", params.ShowStatus))
	}

	normalized := params.Pagination.Normalize()
	rows, err := s.repo.ListPage(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list motorcycles")
	}

	hasNext := len(rows) == normalized.Limit+1
	if hasNext {
		rows = rows[:normalized.Limit]
	}

	result := &ListResult{
		Items:       make([]MotorcycleDTO, 0, len(rows)),
		Limit:       normalized.Limit,
		HasNextPage: hasNext,
	}
	if len(rows) > 0 {
		page := normalized.Page
		result.Page = &page
	}
	for i := range rows {
		result.Items = append(result.Items, *NewMotorcycleDTO(&rows[i]))
	}
	return result, nil
}

// GetMotorcycle loads a single listing with its images.
func (s *service) GetMotorcycle(ctx context.Context, id string) (*MotorcycleDTO, error) {
	motorcycle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no motorcycle found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load motorcycle")
	}
	return NewMotorcycleDTO(motorcycle), nil
}

// CreateMotorcycle validates the payload and inserts a listing under a fresh
// short identifier, retrying on the unlikely ID collision.
func (s *service) CreateMotorcycle(ctx context.Context, input CreateMotorcycleInput) (*MotorcycleDTO, error) {
	if err := validateListingFields(input.Year, input.Price, input.OdometerKM); err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = enums.ListingStatusActive
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}

	var created *models.Motorcycle
	for attempt := 0; attempt < listingIDMaxRetries; attempt++ {
		id, err := security.RandomAlphaString(listingIDLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate listing id")
		}

		motorcycle := &models.Motorcycle{
			ID:          id,
			Make:        input.Make,
			Model:       input.Model,
			Year:        input.Year,
			Price:       input.Price,
			OdometerKM:  input.OdometerKM,
			Description: input.Description,
			Sold:        input.Sold,
			Status:      status,
		}
		created, err = s.repo.Create(ctx, motorcycle)
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "") {
			created = nil
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert motorcycle")
	}
	if created == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a listing id")
	}

	return NewMotorcycleDTO(created), nil
}

// UpdateMotorcycle applies the patch to an existing listing.
func (s *service) UpdateMotorcycle(ctx context.Context, id string, input UpdateMotorcycleInput) (*MotorcycleDTO, error) {
	motorcycle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no motorcycle found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load motorcycle")
	}

	applyUpdate(motorcycle, input)
	if err := validateListingFields(motorcycle.Year, motorcycle.Price, motorcycle.OdometerKM); err != nil {
		return nil, err
	}
	if !motorcycle.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", motorcycle.Status))
	}

	updated, err := s.repo.Update(ctx, motorcycle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update motorcycle")
	}
	return NewMotorcycleDTO(updated), nil
}

// DeleteMotorcycle removes the listing and its image rows in one transaction,
// then clears the storage objects best-effort.
func (s *service) DeleteMotorcycle(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no motorcycle found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load motorcycle")
	}

	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list listing images")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteImages(ctx, id); err != nil {
			return err
		}
		return txRepo.Delete(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete motorcycle")
	}

	// Storage failures are logged and reconciled later; the listing is gone
	// either way.
	lctx := s.logg.WithListingID(ctx, id)
	for _, img := range images {
		for _, object := range []string{img.ObjectName, img.ThumbObjectName} {
			if object == "" {
				continue
			}
			if err := s.storage.RemoveObject(lctx, object); err != nil {
				s.logg.Warn(s.logg.WithField(lctx, "object_name", object), "failed to remove storage object")
			}
		}
	}
	return nil
}

func applyUpdate(m *models.Motorcycle, input UpdateMotorcycleInput) {
	if input.Make != nil {
		m.Make = *input.Make
	}
	if input.Model != nil {
		m.Model = *input.Model
	}
	if input.Year != nil {
		m.Year = *input.Year
	}
	if input.Price != nil {
		m.Price = *input.Price
	}
	if input.OdometerKM != nil {
		m.OdometerKM = *input.OdometerKM
	}
	if input.Description != nil {
		m.Description = input.Description
	}
	if input.Sold != nil {
		m.Sold = *input.Sold
	}
	if input.Status != nil {
		m.Status = *input.Status
	}
	m.UpdatedAt = time.Now().UTC()
}

func validateListingFields(year int, price decimal.Decimal, odometerKM int) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if odometerKM <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "odometer_km must be greater than zero")
	}
	if year < 1000 || year > 9999 {
		return pkgerrors.New(pkgerrors.CodeValidation, "year must be a four digit number")
	}
	return nil
}
