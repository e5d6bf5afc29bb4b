package models

import (
	"time"

	"github.com/google/uuid"
)

// Image captures an uploaded product photo and its thumbnail derivative.
// MotorcycleID is nil for standalone uploads that are not attached to a
// listing yet.
type Image struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	MotorcycleID    *string   `gorm:"column:motorcycle_id;type:varchar(12);index"`
	ImageURL        string    `gorm:"column:image_url;not null"`
	ThumbURL        string    `gorm:"column:thumb_url;not null"`
	ObjectName      string    `gorm:"column:object_name;not null;unique"`
	ThumbObjectName string    `gorm:"column:thumb_object_name;not null"`
	Position        int       `gorm:"column:position;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
