package handler

import (
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/crewdesk/console/internal/domain"
)

type jobResponse struct {
	ID          openapi_types.UUID  `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	StartTime   time.Time           `json:"start_time"`
	EndTime     time.Time           `json:"end_time"`
	JobType     string              `json:"job_type"`
	Color       string              `json:"color,omitempty"`
	TourID      *openapi_types.UUID `json:"tour_id,omitempty"`
	TourDateID  *openapi_types.UUID `json:"tour_date_id,omitempty"`
	LocationID  *openapi_types.UUID `json:"location_id,omitempty"`
	Departments []string            `json:"departments"`
}

// ListJobs handles GET /jobs.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.catalog.ListJobs(r.Context())
	if err != nil {
		s.respondError(w, r, err, "job not found")
		return
	}
	data := make([]jobResponse, len(jobs))
	for i, j := range jobs {
		data[i] = jobToResponse(j)
	}
	writeJSON(w, http.StatusOK, listResponse[jobResponse]{Data: data})
}

func jobToResponse(j domain.Job) jobResponse {
	depts := make([]string, len(j.Departments))
	for i, d := range j.Departments {
		depts[i] = string(d)
	}
	return jobResponse{
		ID:          j.ID,
		Title:       j.Title,
		Description: j.Description,
		StartTime:   j.StartTime,
		EndTime:     j.EndTime,
		JobType:     string(j.Type),
		Color:       j.Color,
		TourID:      j.TourID,
		TourDateID:  j.TourDateID,
		LocationID:  j.LocationID,
		Departments: depts,
	}
}
