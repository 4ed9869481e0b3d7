package handler

import (
	"net/http"
	"strconv"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/crewdesk/console/internal/domain"
)

type locationResponse struct {
	ID        openapi_types.UUID `json:"id"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"created_at"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type pagedResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination pagination `json:"pagination"`
}

// ListLocations handles GET /locations.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=50, max=200).
func (s *Server) ListLocations(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	result, err := s.catalog.ListLocations(r.Context(), domain.NewPaginationParams(page, limit))
	if err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}

	data := make([]locationResponse, len(result.Items))
	for i, l := range result.Items {
		data[i] = locationResponse{ID: l.ID, Name: l.Name, CreatedAt: l.CreatedAt}
	}
	writeJSON(w, http.StatusOK, pagedResponse[locationResponse]{
		Data: data,
		Pagination: pagination{
			Page:  result.Page,
			Limit: result.Limit,
			Total: result.Total,
		},
	})
}

// queryInt reads an optional integer query parameter. A present but
// malformed value is answered with 400 and ok=false.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, name+" must be an integer")
		return nil, false
	}
	return &v, true
}
