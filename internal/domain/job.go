package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobType discriminates the umbrella job of a tour from its per-date jobs.
type JobType string

const (
	// JobTypeTour marks the single job spanning a tour's whole date range.
	JobTypeTour JobType = "tour"
	// JobTypeSingle marks a job covering one calendar day.
	JobTypeSingle JobType = "single"
)

// Job is a unit of crew work with a time span.
// TourID is set for every job produced by tour provisioning, including the
// umbrella job, so the umbrella can be found without matching on title.
type Job struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	Type        JobType      `json:"job_type"`
	Color       string       `json:"color,omitempty"`
	TourID      *uuid.UUID   `json:"tour_id,omitempty"`
	TourDateID  *uuid.UUID   `json:"tour_date_id,omitempty"`
	LocationID  *uuid.UUID   `json:"location_id,omitempty"`
	Departments []Department `json:"departments"`
	CreatedAt   time.Time    `json:"created_at"`
}
