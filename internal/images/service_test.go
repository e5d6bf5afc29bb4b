package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/motoyard/motoyard-backend/pkg/config"
	"github.com/motoyard/motoyard-backend/pkg/db"
	"github.com/motoyard/motoyard-backend/pkg/db/models"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/enums"
	"github.com/motoyard/motoyard-backend/pkg/logger"
)

type fakeStore struct {
	bucket      string
	objects     map[string][]byte
	deleted     []string
	failObjects map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bucket:      "test-bucket",
		objects:     map[string][]byte{},
		failObjects: map[string]bool{},
	}
}

func (f *fakeStore) UploadObject(_ context.Context, _, object, _ string, data []byte) error {
	if f.shouldFail(object) {
		return errors.New("storage unavailable")
	}
	f.objects[object] = data
	return nil
}

func (f *fakeStore) DeleteObject(_ context.Context, _, object string) error {
	f.deleted = append(f.deleted, object)
	delete(f.objects, object)
	return nil
}

func (f *fakeStore) PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object)
}

func (f *fakeStore) DefaultBucket() string { return f.bucket }

// failOriginals makes every non-thumbnail upload fail.
func (f *fakeStore) failOriginals() { f.failObjects["originals"] = true }

func (f *fakeStore) shouldFail(object string) bool {
	if f.failObjects["originals"] && !strings.HasPrefix(object, thumbObjectPrefix) {
		return true
	}
	return f.failObjects[object]
}

func newImagesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "images.db")
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Motorcycle{}, &models.Image{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestImageService(t *testing.T) (Service, *fakeStore, *gorm.DB) {
	t.Helper()
	conn := newImagesTestDB(t)
	store := newFakeStore()
	logg := logger.New(logger.Options{Output: io.Discard})
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), store, config.MediaConfig{
		MaxUploadMB:     1,
		ThumbnailWidth:  32,
		ThumbnailHeight: 32,
	}, logg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc, store, conn
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func mustCreateListing(t *testing.T, conn *gorm.DB, id string) {
	t.Helper()
	listing := &models.Motorcycle{
		ID:         id,
		Make:       "Honda",
		Model:      "CB500F",
		Year:       2021,
		Price:      decimal.NewFromInt(5200),
		OdometerKM: 8000,
		Status:     enums.ListingStatusActive,
	}
	if err := conn.Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
}

func errorCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var typed *pkgerrors.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error, got %v", err)
	}
	return typed.Code()
}

func TestUploadStoresObjectsAndRow(t *testing.T) {
	svc, store, conn := newTestImageService(t)
	ctx := context.Background()

	dto, err := svc.Upload(ctx, UploadFile{FileName: "bike.png", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if dto.MotorcycleID != nil {
		t.Fatalf("standalone upload should not be attached, got %v", *dto.MotorcycleID)
	}
	if !strings.HasPrefix(dto.ImageURL, "https://storage.googleapis.com/test-bucket/") {
		t.Fatalf("unexpected image url %q", dto.ImageURL)
	}
	if !strings.Contains(dto.ThumbURL, "/"+thumbObjectPrefix) {
		t.Fatalf("thumb url should carry the thumbnail prefix, got %q", dto.ThumbURL)
	}
	if len(store.objects) != 2 {
		t.Fatalf("expected 2 stored objects, got %d", len(store.objects))
	}

	var count int64
	if err := conn.Model(&models.Image{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 image row, got %d", count)
	}
}

func TestUploadRollsBackThumbnailWhenOriginalFails(t *testing.T) {
	svc, store, conn := newTestImageService(t)
	store.failOriginals()
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadFile{FileName: "bike.png", Data: testPNG(t)})
	if err == nil {
		t.Fatal("expected upload to fail")
	}
	if code := errorCode(t, err); code != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %s", code)
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected thumbnail rollback, %d objects remain", len(store.objects))
	}
	if len(store.deleted) != 1 || !strings.HasPrefix(store.deleted[0], thumbObjectPrefix) {
		t.Fatalf("expected exactly the thumbnail to be deleted, got %v", store.deleted)
	}

	var count int64
	if err := conn.Model(&models.Image{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no image rows, got %d", count)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestImageService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		file UploadFile
		code pkgerrors.Code
	}{
		{"empty file", UploadFile{FileName: "bike.png"}, pkgerrors.CodeValidation},
		{"no extension", UploadFile{FileName: "bike", Data: testPNG(t)}, pkgerrors.CodeValidation},
		{"oversized", UploadFile{FileName: "bike.png", Data: make([]byte, 1024*1024+1)}, pkgerrors.CodeValidation},
		{"not an image", UploadFile{FileName: "bike.png", Data: []byte("plain text")}, pkgerrors.CodeDependency},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.file)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := errorCode(t, err); code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, code)
			}
		})
	}
}

func TestUploadBatchAllOrNothing(t *testing.T) {
	svc, store, conn := newTestImageService(t)
	ctx := context.Background()

	dtos, err := svc.UploadBatch(ctx, []UploadFile{
		{FileName: "front.png", Data: testPNG(t)},
		{FileName: "side.png", Data: testPNG(t)},
	})
	if err != nil {
		t.Fatalf("batch upload: %v", err)
	}
	if len(dtos) != 2 {
		t.Fatalf("expected 2 dtos, got %d", len(dtos))
	}
	if len(store.objects) != 4 {
		t.Fatalf("expected 4 stored objects, got %d", len(store.objects))
	}

	// Second batch fails on its second file: the first file's objects and row
	// must be rolled back, leaving only the first batch in place.
	_, err = svc.UploadBatch(ctx, []UploadFile{
		{FileName: "tank.png", Data: testPNG(t)},
		{FileName: "broken.png", Data: []byte("not an image")},
	})
	if err == nil {
		t.Fatal("expected batch to fail")
	}
	if len(store.objects) != 4 {
		t.Fatalf("expected rollback to the first batch's 4 objects, got %d", len(store.objects))
	}

	var count int64
	if err := conn.Model(&models.Image{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 image rows, got %d", count)
	}
}

func TestUploadBatchRejectsEmpty(t *testing.T) {
	svc, _, _ := newTestImageService(t)
	_, err := svc.UploadBatch(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if code := errorCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}

func TestAttachToMotorcycle(t *testing.T) {
	svc, _, conn := newTestImageService(t)
	ctx := context.Background()
	mustCreateListing(t, conn, "abcDEFghiJKL")

	first, err := svc.AttachToMotorcycle(ctx, "abcDEFghiJKL", UploadFile{FileName: "front.png", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if first.MotorcycleID == nil || *first.MotorcycleID != "abcDEFghiJKL" {
		t.Fatalf("expected attached image, got %+v", first)
	}
	if first.Position != 0 {
		t.Fatalf("expected first image at position 0, got %d", first.Position)
	}

	second, err := svc.AttachToMotorcycle(ctx, "abcDEFghiJKL", UploadFile{FileName: "side.png", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if second.Position != 1 {
		t.Fatalf("expected second image at position 1, got %d", second.Position)
	}

	// The first attached image's thumbnail becomes the listing thumbnail and
	// later attachments leave it alone.
	var listing models.Motorcycle
	if err := conn.First(&listing, "id = ?", "abcDEFghiJKL").Error; err != nil {
		t.Fatalf("load listing: %v", err)
	}
	if listing.ThumbnailURL == nil || *listing.ThumbnailURL != first.ThumbURL {
		t.Fatalf("expected listing thumbnail %q, got %v", first.ThumbURL, listing.ThumbnailURL)
	}
}

func TestAttachToMissingMotorcycle(t *testing.T) {
	svc, store, _ := newTestImageService(t)

	_, err := svc.AttachToMotorcycle(context.Background(), "missing123ab", UploadFile{FileName: "front.png", Data: testPNG(t)})
	if err == nil {
		t.Fatal("expected error")
	}
	if code := errorCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
	if len(store.objects) != 0 {
		t.Fatalf("nothing should be uploaded for a missing listing, got %d objects", len(store.objects))
	}
}

func TestDeleteByImageURL(t *testing.T) {
	svc, store, conn := newTestImageService(t)
	ctx := context.Background()

	dto, err := svc.Upload(ctx, UploadFile{FileName: "bike.png", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.DeleteByImageURL(ctx, dto.ImageURL); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected both objects removed, %d remain", len(store.objects))
	}

	var count int64
	if err := conn.Model(&models.Image{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no image rows, got %d", count)
	}

	err = svc.DeleteByImageURL(ctx, dto.ImageURL)
	if err == nil {
		t.Fatal("expected error for unknown url")
	}
	if code := errorCode(t, err); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
}
