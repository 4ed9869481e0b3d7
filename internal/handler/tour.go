package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/crewdesk/console/internal/domain"
)

// idempotencyHeader may carry the idempotency key instead of the body field.
const idempotencyHeader = "Idempotency-Key"

// provisionTourRequest is the body of POST /tours/provision.
// Dates stay as typed strings: parsing them is part of form validation so a
// bad row is reported by position rather than as a decode failure.
type provisionTourRequest struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Color          string          `json:"color"`
	Departments    []string        `json:"departments"`
	Dates          []dateEntryBody `json:"dates"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type dateEntryBody struct {
	Date     string `json:"date"`
	Location string `json:"location"`
}

type tourResponse struct {
	ID          openapi_types.UUID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Color       string             `json:"color,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type tourDateResponse struct {
	ID         openapi_types.UUID  `json:"id"`
	Date       openapi_types.Date  `json:"date"`
	LocationID *openapi_types.UUID `json:"location_id,omitempty"`
}

type tourDetailResponse struct {
	tourResponse
	Dates []tourDateResponse `json:"dates"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// ProvisionTour handles POST /tours/provision.
// The run is detached from the request context: once started it always runs
// to completion (or compensation) even if the client goes away.
func (s *Server) ProvisionTour(w http.ResponseWriter, r *http.Request) {
	var body provisionTourRequest
	if !decodeBody(w, r, &body) {
		return
	}

	form := body.toForm()
	if form.IdempotencyKey == "" {
		form.IdempotencyKey = strings.TrimSpace(r.Header.Get(idempotencyHeader))
	}

	tour, err := s.provisioner.ProvisionTour(context.WithoutCancel(r.Context()), &form)
	if err != nil {
		s.respondError(w, r, err, "tour not found")
		return
	}
	writeJSON(w, http.StatusCreated, tourToResponse(tour))
}

// ListTours handles GET /tours.
func (s *Server) ListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := s.catalog.ListTours(r.Context())
	if err != nil {
		s.respondError(w, r, err, "tour not found")
		return
	}
	data := make([]tourResponse, len(tours))
	for i, t := range tours {
		data[i] = tourToResponse(t)
	}
	writeJSON(w, http.StatusOK, listResponse[tourResponse]{Data: data})
}

// GetTour handles GET /tours/{id}.
func (s *Server) GetTour(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid tour id")
		return
	}

	detail, err := s.catalog.GetTour(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, "tour not found")
		return
	}

	resp := tourDetailResponse{
		tourResponse: tourToResponse(detail.Tour),
		Dates:        make([]tourDateResponse, len(detail.Dates)),
	}
	for i, d := range detail.Dates {
		resp.Dates[i] = tourDateToResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- mapping helpers --------------------------------------------------------

func (b provisionTourRequest) toForm() domain.TourForm {
	form := domain.TourForm{
		Title:          b.Title,
		Description:    b.Description,
		Color:          b.Color,
		IdempotencyKey: strings.TrimSpace(b.IdempotencyKey),
	}
	for _, d := range b.Departments {
		form.Departments = append(form.Departments, domain.Department(strings.ToLower(strings.TrimSpace(d))))
	}
	for _, d := range b.Dates {
		form.Dates = append(form.Dates, domain.DateEntry{Date: d.Date, Location: d.Location})
	}
	return form
}

func tourToResponse(t domain.Tour) tourResponse {
	return tourResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Color:       t.Color,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func tourDateToResponse(d domain.TourDate) tourDateResponse {
	return tourDateResponse{
		ID:         d.ID,
		Date:       openapi_types.Date{Time: d.Date},
		LocationID: d.LocationID,
	}
}
