package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/motoyard/motoyard-backend/pkg/enums"
)

// Motorcycle represents a listing in the store catalog.
//
// The primary key is a short random alpha identifier rather than a UUID; it is
// surfaced directly in storefront URLs.
type Motorcycle struct {
	ID           string              `gorm:"column:id;type:varchar(12);primaryKey"`
	Make         string              `gorm:"column:make;not null"`
	Model        string              `gorm:"column:model;not null"`
	Year         int                 `gorm:"column:year;not null"`
	Price        decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	OdometerKM   int                 `gorm:"column:odometer_km;not null"`
	Description  *string             `gorm:"column:description"`
	Sold         bool                `gorm:"column:sold;not null;default:false"`
	Status       enums.ListingStatus `gorm:"column:status;type:text;not null;default:'active'"`
	ThumbnailURL *string             `gorm:"column:thumbnail_url"`
	Images       []Image             `gorm:"foreignKey:MotorcycleID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
