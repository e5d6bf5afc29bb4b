package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/motoyard/motoyard-backend/api/responses"
	"github.com/motoyard/motoyard-backend/api/validators"
	"github.com/motoyard/motoyard-backend/internal/catalog"
	"github.com/motoyard/motoyard-backend/pkg/enums"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/logger"
)

type createMotorcycleRequest struct {
	Make        string          `json:"make" validate:"required,max=128"`
	Model       string          `json:"model" validate:"required,max=128"`
	Year        int             `json:"year" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	OdometerKM  int             `json:"odometer_km" validate:"required"`
	Description *string         `json:"description,omitempty"`
	Sold        *bool           `json:"sold,omitempty"`
	Status      *string         `json:"status,omitempty"`
}

type updateMotorcycleRequest struct {
	Make        *string          `json:"make,omitempty" validate:"omitempty,max=128"`
	Model       *string          `json:"model,omitempty" validate:"omitempty,max=128"`
	Year        *int             `json:"year,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	OdometerKM  *int             `json:"odometer_km,omitempty"`
	Description *string          `json:"description,omitempty"`
	Sold        *bool            `json:"sold,omitempty"`
	Status      *string          `json:"status,omitempty"`
}

// ListMotorcycles serves the paginated storefront catalog.
func ListMotorcycles(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		showSold, err := validators.ParseQueryBool(r, "show_sold", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := catalog.ListParams{
			Pagination: page,
			ShowSold:   showSold,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("show_status")); raw != "" {
			status, err := enums.ParseListingStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid show_status"))
				return
			}
			params.ShowStatus = status
		}

		result, err := svc.ListMotorcycles(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetMotorcycle serves a single listing with its image gallery.
func GetMotorcycle(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id := chi.URLParam(r, "motorcycleId")
		listing, err := svc.GetMotorcycle(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// CreateMotorcycle handles listing creation for superusers.
func CreateMotorcycle(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createMotorcycleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.CreateMotorcycle(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// UpdateMotorcycle applies a partial update to a listing.
func UpdateMotorcycle(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id := chi.URLParam(r, "motorcycleId")

		var payload updateMotorcycleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.UpdateMotorcycle(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// DeleteMotorcycle removes a listing, its image rows, and their objects.
func DeleteMotorcycle(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id := chi.URLParam(r, "motorcycleId")
		if err := svc.DeleteMotorcycle(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "motorcycle deleted"})
	}
}

func (p createMotorcycleRequest) toCreateInput() (catalog.CreateMotorcycleInput, error) {
	input := catalog.CreateMotorcycleInput{
		Make:        strings.TrimSpace(p.Make),
		Model:       strings.TrimSpace(p.Model),
		Year:        p.Year,
		Price:       p.Price,
		OdometerKM:  p.OdometerKM,
		Description: p.Description,
	}
	if p.Sold != nil {
		input.Sold = *p.Sold
	}
	if p.Status != nil {
		status, err := enums.ParseListingStatus(strings.TrimSpace(*p.Status))
		if err != nil {
			return catalog.CreateMotorcycleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = status
	}
	return input, nil
}

func (p updateMotorcycleRequest) toUpdateInput() (catalog.UpdateMotorcycleInput, error) {
	input := catalog.UpdateMotorcycleInput{
		Make:        p.Make,
		Model:       p.Model,
		Year:        p.Year,
		OdometerKM:  p.OdometerKM,
		Description: p.Description,
		Sold:        p.Sold,
	}
	input.Price = p.Price
	if p.Status != nil {
		status, err := enums.ParseListingStatus(strings.TrimSpace(*p.Status))
		if err != nil {
			return catalog.UpdateMotorcycleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = &status
	}
	return input, nil
}
