package catalog

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/motoyard/motoyard-backend/pkg/db"
	"github.com/motoyard/motoyard-backend/pkg/db/models"
	"github.com/motoyard/motoyard-backend/pkg/enums"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/logger"
	"github.com/motoyard/motoyard-backend/pkg/pagination"
)

type fakeObjectRemover struct {
	mu      sync.Mutex
	removed []string
	fail    bool
}

func (f *fakeObjectRemover) RemoveObject(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return context.DeadlineExceeded
	}
	f.removed = append(f.removed, objectName)
	return nil
}

func newTestService(t *testing.T) (Service, *Repository, *fakeObjectRemover) {
	t.Helper()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	remover := &fakeObjectRemover{}
	logg := logger.New(logger.Options{ServiceName: "catalog-test", Output: io.Discard})
	svc, err := NewService(repo, db.NewFromConn(conn), remover, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, remover
}

func TestCreateAndGetMotorcycleRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	desc := "clean title, one owner"
	created, err := svc.CreateMotorcycle(ctx, CreateMotorcycleInput{
		Make:        "Yamaha",
		Model:       "MT-07",
		Year:        2021,
		Price:       decimal.NewFromFloat(6999.50),
		OdometerKM:  8200,
		Description: &desc,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.ID) != 12 {
		t.Fatalf("expected 12-char listing id, got %q", created.ID)
	}
	if created.Status != enums.ListingStatusActive.String() {
		t.Fatalf("expected default active status, got %s", created.Status)
	}

	fetched, err := svc.GetMotorcycle(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Make != "Yamaha" || fetched.Model != "MT-07" || fetched.Year != 2021 {
		t.Fatalf("round trip mismatch: %+v", fetched)
	}
	if !fetched.Price.Equal(decimal.NewFromFloat(6999.50)) {
		t.Fatalf("price mismatch: %s", fetched.Price)
	}
	if fetched.Description == nil || *fetched.Description != desc {
		t.Fatalf("description mismatch")
	}
}

func TestCreateMotorcycleValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateMotorcycleInput
	}{
		{"negative price", CreateMotorcycleInput{Make: "H", Model: "M", Year: 2020, Price: decimal.NewFromInt(-1), OdometerKM: 100}},
		{"zero price", CreateMotorcycleInput{Make: "H", Model: "M", Year: 2020, Price: decimal.Zero, OdometerKM: 100}},
		{"zero odometer", CreateMotorcycleInput{Make: "H", Model: "M", Year: 2020, Price: decimal.NewFromInt(100), OdometerKM: 0}},
		{"three digit year", CreateMotorcycleInput{Make: "H", Model: "M", Year: 999, Price: decimal.NewFromInt(100), OdometerKM: 100}},
		{"five digit year", CreateMotorcycleInput{Make: "H", Model: "M", Year: 10000, Price: decimal.NewFromInt(100), OdometerKM: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateMotorcycle(ctx, tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}

	// nothing persisted
	result, err := svc.ListMotorcycles(ctx, ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatalf("rejected inputs must not be persisted, found %d rows", len(result.Items))
	}
}

func TestListMotorcyclesPaging(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		mustCreateTestMotorcycle(t, repo.db, base.Add(time.Duration(i)*time.Minute), nil)
	}

	first, err := svc.ListMotorcycles(ctx, ListParams{
		Pagination: pagination.Params{Page: 1, Limit: 3},
	})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(first.Items) != 3 || !first.HasNextPage {
		t.Fatalf("expected full page with next, got items=%d next=%v", len(first.Items), first.HasNextPage)
	}
	if first.Page == nil || *first.Page != 1 {
		t.Fatalf("expected page 1, got %v", first.Page)
	}

	last, err := svc.ListMotorcycles(ctx, ListParams{
		Pagination: pagination.Params{Page: 3, Limit: 3},
	})
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if len(last.Items) != 1 || last.HasNextPage {
		t.Fatalf("expected short last page, got items=%d next=%v", len(last.Items), last.HasNextPage)
	}

	empty, err := svc.ListMotorcycles(ctx, ListParams{
		Pagination: pagination.Params{Page: 9, Limit: 3},
	})
	if err != nil {
		t.Fatalf("list past the end should not error: %v", err)
	}
	if len(empty.Items) != 0 || empty.Page != nil || empty.HasNextPage {
		t.Fatalf("expected empty result with nil page, got %+v", empty)
	}
}

func TestListMotorcyclesClampsPageAndLimit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	mustCreateTestMotorcycle(t, repo.db, time.Now().UTC(), nil)

	result, err := svc.ListMotorcycles(ctx, ListParams{
		Pagination: pagination.Params{Page: -3, Limit: -10},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Limit != pagination.DefaultLimit {
		t.Fatalf("expected clamped limit, got %d", result.Limit)
	}
	if result.Page == nil || *result.Page != 1 {
		t.Fatalf("expected clamped page 1, got %v", result.Page)
	}
}

func TestUpdateMotorcyclePatchSemantics(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	motorcycle := mustCreateTestMotorcycle(t, repo.db, time.Now().UTC(), nil)

	sold := true
	price := decimal.NewFromInt(3800)
	updated, err := svc.UpdateMotorcycle(ctx, motorcycle.ID, UpdateMotorcycleInput{
		Sold:  &sold,
		Price: &price,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Sold {
		t.Fatalf("expected sold flag set")
	}
	if !updated.Price.Equal(price) {
		t.Fatalf("expected patched price, got %s", updated.Price)
	}
	if updated.Make != motorcycle.Make || updated.Model != motorcycle.Model {
		t.Fatalf("untouched fields must survive the patch")
	}

	badYear := 50
	if _, err := svc.UpdateMotorcycle(ctx, motorcycle.ID, UpdateMotorcycleInput{Year: &badYear}); err == nil {
		t.Fatal("expected validation error for patched year")
	}
}

func TestUpdateMotorcycleNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateMotorcycle(context.Background(), "missingmodel", UpdateMotorcycleInput{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteMotorcycleCascadesImagesAndStorage(t *testing.T) {
	svc, repo, remover := newTestService(t)
	ctx := context.Background()

	motorcycle := mustCreateTestMotorcycle(t, repo.db, time.Now().UTC(), nil)
	img1 := mustAttachTestImage(t, repo.db, motorcycle.ID, 0)
	img2 := mustAttachTestImage(t, repo.db, motorcycle.ID, 1)

	if err := svc.DeleteMotorcycle(ctx, motorcycle.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetMotorcycle(ctx, motorcycle.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected listing gone, got %v", err)
	}

	var count int64
	if err := repo.db.Model(&models.Image{}).Where("motorcycle_id = ?", motorcycle.ID).Count(&count).Error; err != nil {
		t.Fatalf("count images: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected image rows removed, found %d", count)
	}

	want := map[string]bool{
		img1.ObjectName: true, img1.ThumbObjectName: true,
		img2.ObjectName: true, img2.ThumbObjectName: true,
	}
	if len(remover.removed) != len(want) {
		t.Fatalf("expected %d storage deletions, got %d", len(want), len(remover.removed))
	}
	for _, object := range remover.removed {
		if !want[object] {
			t.Fatalf("unexpected storage deletion %q", object)
		}
	}
}

func TestDeleteMotorcycleSurvivesStorageFailure(t *testing.T) {
	svc, repo, remover := newTestService(t)
	remover.fail = true
	ctx := context.Background()

	motorcycle := mustCreateTestMotorcycle(t, repo.db, time.Now().UTC(), nil)
	mustAttachTestImage(t, repo.db, motorcycle.ID, 0)

	if err := svc.DeleteMotorcycle(ctx, motorcycle.ID); err != nil {
		t.Fatalf("storage failures must not abort the delete: %v", err)
	}
	if _, err := svc.GetMotorcycle(ctx, motorcycle.ID); pkgerrors.As(err) == nil {
		t.Fatalf("expected listing gone, got %v", err)
	}
}
