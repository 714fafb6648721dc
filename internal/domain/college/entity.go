// Package college holds the College aggregate: the root of the ownership tree
// for students and events.
package college

import (
	"strings"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// College owns a set of Students and Events. Deleting it removes both,
// transitively with their registrations, attendance and feedback.
type College struct {
	ID           string
	Name         string
	Location     string
	ContactEmail string
	CreatedAt    time.Time
}

// New validates the fields and builds a College with the given ID.
func New(id, name, location, contactEmail string, now time.Time) (*College, error) {
	c := &College{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Location:     strings.TrimSpace(location),
		ContactEmail: strings.TrimSpace(contactEmail),
		CreatedAt:    now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field-level constraints.
func (c *College) Validate() error {
	if c.ID == "" {
		return shared.InvalidInput("college", "Validate", "id is required")
	}
	if c.Name == "" || len(c.Name) > 200 {
		return shared.InvalidInput("college", "Validate", "name must be 1-200 characters")
	}
	if c.ContactEmail != "" && !strings.Contains(c.ContactEmail, "@") {
		return shared.InvalidInput("college", "Validate", "contact_email must be a valid email")
	}
	return nil
}

// Clone returns a deep copy.
func (c *College) Clone() *College {
	cp := *c
	return &cp
}
