// Package domain contains the core data types for the crew console.
// This package has no infrastructure dependencies and is imported by every
// other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tour is the top-level aggregate for a multi-date touring production.
// Tour dates and the umbrella job belong to a tour.
type Tour struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TourDate links a tour to one calendar date and an optional location.
// Date is always midnight UTC of the calendar day it represents.
type TourDate struct {
	ID         uuid.UUID  `json:"id"`
	TourID     uuid.UUID  `json:"tour_id"`
	Date       time.Time  `json:"date"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TourDetail is a tour together with its dates ordered chronologically.
type TourDetail struct {
	Tour  Tour       `json:"tour"`
	Dates []TourDate `json:"dates"`
}
