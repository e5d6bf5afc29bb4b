package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/motoyard/motoyard-backend/internal/catalog"
	"github.com/motoyard/motoyard-backend/pkg/enums"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubCatalogService struct {
	lastListParams catalog.ListParams
	listResult     *catalog.ListResult
	getErr         error
	created        *catalog.CreateMotorcycleInput
	deletedID      string
}

func (s *stubCatalogService) ListMotorcycles(_ context.Context, params catalog.ListParams) (*catalog.ListResult, error) {
	s.lastListParams = params
	if s.listResult != nil {
		return s.listResult, nil
	}
	return &catalog.ListResult{Items: []catalog.MotorcycleDTO{}, Limit: 15}, nil
}

func (s *stubCatalogService) GetMotorcycle(_ context.Context, id string) (*catalog.MotorcycleDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &catalog.MotorcycleDTO{ID: id, Make: "Honda", Model: "CB500F"}, nil
}

func (s *stubCatalogService) CreateMotorcycle(_ context.Context, input catalog.CreateMotorcycleInput) (*catalog.MotorcycleDTO, error) {
	s.created = &input
	return &catalog.MotorcycleDTO{ID: "abcDEFghiJKL", Make: input.Make, Model: input.Model}, nil
}

func (s *stubCatalogService) UpdateMotorcycle(_ context.Context, id string, _ catalog.UpdateMotorcycleInput) (*catalog.MotorcycleDTO, error) {
	return &catalog.MotorcycleDTO{ID: id}, nil
}

func (s *stubCatalogService) DeleteMotorcycle(_ context.Context, id string) error {
	s.deletedID = id
	return nil
}

func requestWithRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestListMotorcyclesQueryParsing(t *testing.T) {
	stub := &stubCatalogService{}
	handler := ListMotorcycles(stub, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/motorcycles?page=3&limit=10&show_sold=true&show_status=inactive", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	params := stub.lastListParams
	if params.Pagination.Page != 3 || params.Pagination.Limit != 10 {
		t.Fatalf("unexpected pagination %+v", params.Pagination)
	}
	if !params.ShowSold || params.ShowStatus != enums.ListingStatusInactive {
		t.Fatalf("unexpected filters %+v", params)
	}
}

func TestListMotorcyclesRejectsBadStatus(t *testing.T) {
	handler := ListMotorcycles(&stubCatalogService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/motorcycles?show_status=archived", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetMotorcycleNotFound(t *testing.T) {
	stub := &stubCatalogService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "no motorcycle found with this id")}
	handler := GetMotorcycle(stub, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/motorcycles/missing123ab", nil)
	req = requestWithRouteParam(req, "motorcycleId", "missing123ab")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND code, got %q", envelope.Error.Code)
	}
}

func TestCreateMotorcycle(t *testing.T) {
	stub := &stubCatalogService{}
	handler := CreateMotorcycle(stub, testLogger())

	body := `{"make":"Honda","model":"CB500F","year":2021,"price":"5200.50","odometer_km":8000,"status":"active"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/motorcycles", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if stub.created == nil {
		t.Fatal("expected create to be invoked")
	}
	if !stub.created.Price.Equal(decimal.RequireFromString("5200.50")) {
		t.Fatalf("unexpected price %s", stub.created.Price)
	}
	if stub.created.Status != enums.ListingStatusActive {
		t.Fatalf("unexpected status %s", stub.created.Status)
	}
}

func TestCreateMotorcycleRejectsMissingFields(t *testing.T) {
	handler := CreateMotorcycle(&stubCatalogService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/motorcycles", strings.NewReader(`{"make":"Honda"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteMotorcycle(t *testing.T) {
	stub := &stubCatalogService{}
	handler := DeleteMotorcycle(stub, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/motorcycles/abcDEFghiJKL", nil)
	req = requestWithRouteParam(req, "motorcycleId", "abcDEFghiJKL")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.deletedID != "abcDEFghiJKL" {
		t.Fatalf("expected delete to be invoked, got %q", stub.deletedID)
	}
}
