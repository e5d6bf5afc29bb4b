package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/motoyard/motoyard-backend/internal/images"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
)

type stubImageService struct {
	uploaded []images.UploadFile
	attached string
	deleted  string
}

func (s *stubImageService) Upload(_ context.Context, file images.UploadFile) (*images.ImageDTO, error) {
	s.uploaded = append(s.uploaded, file)
	return &images.ImageDTO{ImageURL: "https://storage.googleapis.com/bucket/" + file.FileName}, nil
}

func (s *stubImageService) UploadBatch(_ context.Context, files []images.UploadFile) ([]images.ImageDTO, error) {
	dtos := make([]images.ImageDTO, 0, len(files))
	for _, file := range files {
		s.uploaded = append(s.uploaded, file)
		dtos = append(dtos, images.ImageDTO{ImageURL: "https://storage.googleapis.com/bucket/" + file.FileName})
	}
	return dtos, nil
}

func (s *stubImageService) AttachToMotorcycle(_ context.Context, motorcycleID string, file images.UploadFile) (*images.ImageDTO, error) {
	s.attached = motorcycleID
	s.uploaded = append(s.uploaded, file)
	return &images.ImageDTO{MotorcycleID: &motorcycleID}, nil
}

func (s *stubImageService) DeleteByImageURL(_ context.Context, imageURL string) error {
	if s.deleted != "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no image found")
	}
	s.deleted = imageURL
	return nil
}

func (s *stubImageService) RemoveObject(context.Context, string) error { return nil }

func multipartBody(t *testing.T, field string, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("fake image bytes")); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadProductImageSingle(t *testing.T) {
	stub := &stubImageService{}
	handler := UploadProductImage(stub, testLogger())

	body, contentType := multipartBody(t, "files", "bike.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/productImage", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(stub.uploaded) != 1 || stub.uploaded[0].FileName != "bike.png" {
		t.Fatalf("unexpected uploads %+v", stub.uploaded)
	}
}

func TestUploadProductImageBatch(t *testing.T) {
	stub := &stubImageService{}
	handler := UploadProductImage(stub, testLogger())

	body, contentType := multipartBody(t, "files", "front.png", "side.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/productImage", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(stub.uploaded) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(stub.uploaded))
	}
}

func TestUploadProductImageRequiresFiles(t *testing.T) {
	handler := UploadProductImage(&stubImageService{}, testLogger())

	body, contentType := multipartBody(t, "attachments", "bike.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/productImage", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAttachProductImage(t *testing.T) {
	stub := &stubImageService{}
	handler := AttachProductImage(stub, testLogger())

	body, contentType := multipartBody(t, "file", "front.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/motorcycles/abcDEFghiJKL/productImage", body)
	req.Header.Set("Content-Type", contentType)
	req = requestWithRouteParam(req, "motorcycleId", "abcDEFghiJKL")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if stub.attached != "abcDEFghiJKL" {
		t.Fatalf("expected attach to listing, got %q", stub.attached)
	}
}

func TestDeleteProductImage(t *testing.T) {
	stub := &stubImageService{}
	handler := DeleteProductImage(stub, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/productImage", strings.NewReader(`{"image_url":"https://storage.googleapis.com/bucket/a.png"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.deleted != "https://storage.googleapis.com/bucket/a.png" {
		t.Fatalf("unexpected deleted url %q", stub.deleted)
	}
}
