package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/motoyard/motoyard-backend/pkg/db/models"
	"github.com/motoyard/motoyard-backend/pkg/enums"
	"github.com/motoyard/motoyard-backend/pkg/pagination"
)

// ListParams captures the browse-endpoint knobs.
type ListParams struct {
	Pagination pagination.Params
	ShowSold   bool
	ShowStatus enums.ListingStatus
}

// MotorcycleDTO is the listing payload returned to clients.
type MotorcycleDTO struct {
	ID           string            `json:"id"`
	Make         string            `json:"make"`
	Model        string            `json:"model"`
	Year         int               `json:"year"`
	Price        decimal.Decimal   `json:"price"`
	OdometerKM   int               `json:"odometer_km"`
	Description  *string           `json:"description,omitempty"`
	Sold         bool              `json:"sold"`
	Status       string            `json:"status"`
	ThumbnailURL *string           `json:"thumbnail_url,omitempty"`
	Images       []ListingImageDTO `json:"images,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ListingImageDTO surfaces an attached product photo.
type ListingImageDTO struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"image_url"`
	ThumbURL  string    `json:"thumb_url"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResult is the paginated browse response. Page is nil when the requested
// page is past the end of the data.
type ListResult struct {
	Items       []MotorcycleDTO `json:"items"`
	Page        *int            `json:"page"`
	Limit       int             `json:"limit"`
	HasNextPage bool            `json:"has_next_page"`
}

// CreateMotorcycleInput holds the validated payload to create a listing.
type CreateMotorcycleInput struct {
	Make        string
	Model       string
	Year        int
	Price       decimal.Decimal
	OdometerKM  int
	Description *string
	Sold        bool
	Status      enums.ListingStatus
}

// UpdateMotorcycleInput holds optional mutation values for a listing. Nil
// fields are left untouched.
type UpdateMotorcycleInput struct {
	Make        *string
	Model       *string
	Year        *int
	Price       *decimal.Decimal
	OdometerKM  *int
	Description *string
	Sold        *bool
	Status      *enums.ListingStatus
}

// NewMotorcycleDTO builds a DTO from the persisted model.
func NewMotorcycleDTO(m *models.Motorcycle) *MotorcycleDTO {
	dto := &MotorcycleDTO{
		ID:           m.ID,
		Make:         m.Make,
		Model:        m.Model,
		Year:         m.Year,
		Price:        m.Price,
		OdometerKM:   m.OdometerKM,
		Description:  m.Description,
		Sold:         m.Sold,
		Status:       m.Status.String(),
		ThumbnailURL: m.ThumbnailURL,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, img := range m.Images {
		dto.Images = append(dto.Images, ListingImageDTO{
			ID:        img.ID.String(),
			ImageURL:  img.ImageURL,
			ThumbURL:  img.ThumbURL,
			Position:  img.Position,
			CreatedAt: img.CreatedAt,
		})
	}
	return dto
}
