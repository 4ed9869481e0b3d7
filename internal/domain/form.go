package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateEntry is one row of the tour form as the user typed it.
// Date is expected in "2006-01-02" form; either field may be blank.
type DateEntry struct {
	Date     string `json:"date"`
	Location string `json:"location"`
}

// TourForm is the raw state of the tour provisioning form.
// IdempotencyKey is optional; when set, resubmitting the same key returns the
// tour created by the first successful submission instead of a duplicate.
type TourForm struct {
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Color          string       `json:"color" validate:"omitempty,hexcolor"`
	Departments    []Department `json:"departments" validate:"dive,department"`
	Dates          []DateEntry  `json:"dates"`
	IdempotencyKey string       `json:"idempotency_key" validate:"omitempty,max=200"`
}

// NewTourForm returns a form in its initial state: one empty date row and no
// departments selected.
func NewTourForm() TourForm {
	return TourForm{Dates: []DateEntry{{}}}
}

// Reset clears the form back to its initial state.
func (f *TourForm) Reset() {
	*f = NewTourForm()
}

// ValidatedDate is a date row that passed normalization.
// Date is midnight of the calendar day in the provisioning time zone.
type ValidatedDate struct {
	Date     time.Time
	Location string
}

// ProvisioningRun is the claim a submission holds on its idempotency key.
// TourID is nil while the claiming run is still building and set once it has
// succeeded. ClaimedAt is when the current holder took the claim.
type ProvisioningRun struct {
	IdempotencyKey string
	TourID         *uuid.UUID
	ClaimedAt      time.Time
}

// Pending reports whether the run holding the key has not finished yet.
func (r ProvisioningRun) Pending() bool {
	return r.TourID == nil
}
