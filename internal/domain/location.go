package domain

import (
	"time"

	"github.com/google/uuid"
)

// Location is a venue shared across tours.
// Identity is the exact display name; the store enforces one row per name.
type Location struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
