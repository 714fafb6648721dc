package registration

import (
	"strings"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// MaxCommentLength bounds Feedback.Comment.
const MaxCommentLength = 2000

// Feedback is a one-off rating left by an attendee. Immutable once created.
type Feedback struct {
	ID             string
	RegistrationID string
	Rating         shared.Rating
	Comment        string
	SubmittedAt    time.Time
}

// AdmitFeedback applies the gate in order: qualifying attendance, no prior
// feedback, rating range. att and existing may be nil.
func AdmitFeedback(att *Attendance, existing *Feedback, rating int, comment string) error {
	if att == nil || !att.Status.Qualifies() {
		return shared.ErrAttendanceRequired
	}
	if existing != nil {
		return shared.ErrDuplicateFeedback
	}
	if _, err := shared.NewRating(rating); err != nil {
		return err
	}
	if len(comment) > MaxCommentLength {
		return shared.InvalidInput("feedback", "Validate", "comment is too long")
	}
	return nil
}

// NewFeedback builds a Feedback after AdmitFeedback has passed.
func NewFeedback(id, registrationID string, rating int, comment string, now time.Time) *Feedback {
	return &Feedback{
		ID:             id,
		RegistrationID: registrationID,
		Rating:         shared.Rating(rating),
		Comment:        strings.TrimSpace(comment),
		SubmittedAt:    now,
	}
}
