package college

import (
	"context"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// Repository persists colleges.
type Repository interface {
	// Create stores a new college.
	Create(ctx context.Context, c *College) error

	// GetByID returns shared.ErrCollegeNotFound if absent.
	GetByID(ctx context.Context, id string) (*College, error)

	// List returns colleges ordered by name.
	List(ctx context.Context, p shared.Pagination) ([]*College, error)

	// Update overwrites name, location and contact.
	Update(ctx context.Context, c *College) error

	// Delete removes the college and its whole ownership tree in one
	// transaction, walking feedback, attendance, registrations,
	// students and events, then the college itself.
	Delete(ctx context.Context, id string) (DeleteSummary, error)
}

// DeleteSummary reports how many rows the cascade removed per entity kind.
type DeleteSummary struct {
	Feedback      int `json:"feedback"`
	Attendance    int `json:"attendance"`
	Registrations int `json:"registrations"`
	Students      int `json:"students"`
	Events        int `json:"events"`
}
