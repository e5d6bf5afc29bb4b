package catalog

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/motoyard/motoyard-backend/pkg/db/models"
	"github.com/motoyard/motoyard-backend/pkg/enums"
	"github.com/motoyard/motoyard-backend/pkg/security"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Motorcycle{}, &models.Image{}); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	return conn
}

func mustCreateTestMotorcycle(t *testing.T, tx *gorm.DB, createdAt time.Time, mutate func(*models.Motorcycle)) *models.Motorcycle {
	t.Helper()
	id, err := security.RandomAlphaString(12)
	if err != nil {
		t.Fatalf("generate id: %v", err)
	}
	motorcycle := &models.Motorcycle{
		ID:         id,
		Make:       "Honda",
		Model:      fmt.Sprintf("CB%d", createdAt.Unix()%1000),
		Year:       2020,
		Price:      decimal.NewFromInt(4500),
		OdometerKM: 12000,
		Status:     enums.ListingStatusActive,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if mutate != nil {
		mutate(motorcycle)
	}
	if err := tx.Create(motorcycle).Error; err != nil {
		t.Fatalf("create motorcycle: %v", err)
	}
	return motorcycle
}

func mustAttachTestImage(t *testing.T, tx *gorm.DB, motorcycleID string, position int) *models.Image {
	t.Helper()
	object := fmt.Sprintf("%s.jpg", uuid.NewString())
	image := &models.Image{
		ID:              uuid.New(),
		MotorcycleID:    &motorcycleID,
		ImageURL:        "https://storage.googleapis.com/test-bucket/" + object,
		ThumbURL:        "https://storage.googleapis.com/test-bucket/thumb_" + object,
		ObjectName:      object,
		ThumbObjectName: "thumb_" + object,
		Position:        position,
	}
	if err := tx.Create(image).Error; err != nil {
		t.Fatalf("create image: %v", err)
	}
	return image
}
