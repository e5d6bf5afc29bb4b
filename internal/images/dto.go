package images

import (
	"time"

	"github.com/motoyard/motoyard-backend/pkg/db/models"
)

// ImageDTO is the upload payload returned to clients.
type ImageDTO struct {
	ID           string    `json:"id"`
	MotorcycleID *string   `json:"motorcycle_id,omitempty"`
	ImageURL     string    `json:"image_url"`
	ThumbURL     string    `json:"thumb_url"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

// UploadFile carries one file of a batch upload.
type UploadFile struct {
	FileName string
	Data     []byte
}

// NewImageDTO builds a DTO from the persisted row.
func NewImageDTO(image *models.Image) *ImageDTO {
	return &ImageDTO{
		ID:           image.ID.String(),
		MotorcycleID: image.MotorcycleID,
		ImageURL:     image.ImageURL,
		ThumbURL:     image.ThumbURL,
		Position:     image.Position,
		CreatedAt:    image.CreatedAt,
	}
}
