package controllers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/motoyard/motoyard-backend/api/responses"
	"github.com/motoyard/motoyard-backend/api/validators"
	"github.com/motoyard/motoyard-backend/internal/images"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/logger"
)

// Multipart form memory ceiling; larger parts spill to temp files.
const maxMultipartMemory = 32 << 20

type deleteImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// UploadProductImage stores a standalone image and its thumbnail.
func UploadProductImage(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}

		files, err := readUploadedFiles(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if len(files) == 1 {
			dto, err := svc.Upload(r.Context(), files[0])
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, dto)
			return
		}

		dtos, err := svc.UploadBatch(r.Context(), files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dtos)
	}
}

// DeleteProductImage removes the row plus the original and thumbnail objects.
func DeleteProductImage(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}

		var payload deleteImageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteByImageURL(r.Context(), payload.ImageURL); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "image deleted"})
	}
}

// AttachProductImage uploads an image against a listing and fills the
// listing thumbnail when unset.
func AttachProductImage(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "image service unavailable"))
			return
		}

		motorcycleID := chi.URLParam(r, "motorcycleId")

		files, err := readUploadedFiles(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(files) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "exactly one file is required"))
			return
		}

		dto, err := svc.AttachToMotorcycle(r.Context(), motorcycleID, files[0])
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// readUploadedFiles collects every part named "files" (or a single "file").
func readUploadedFiles(r *http.Request) ([]images.UploadFile, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	if r.MultipartForm == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files provided")
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files provided")
	}

	files := make([]images.UploadFile, 0, len(headers))
	for _, header := range headers {
		file, err := readFilePart(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func readFilePart(header *multipart.FileHeader) (images.UploadFile, error) {
	part, err := header.Open()
	if err != nil {
		return images.UploadFile{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file part")
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return images.UploadFile{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file part")
	}
	return images.UploadFile{FileName: header.Filename, Data: data}, nil
}
