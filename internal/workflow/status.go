package workflow

import "fmt"

// Status is a case lifecycle label. The set is closed; anything else is a
// validation error at the boundary, never a new row value.
type Status string

const (
	StatusPendingIntake       Status = "pending_intake"
	StatusPendingApproval     Status = "pending_approval"
	StatusInDesign            Status = "in_design"
	StatusPendingReview       Status = "pending_review"
	StatusReviewRejected      Status = "review_rejected"
	StatusPendingClientReview Status = "pending_client_review"
	StatusClientRejected      Status = "client_rejected"
	StatusApproved            Status = "approved"
	StatusCancelled           Status = "cancelled"

	// Legacy statuses kept for records created before the intake/payment
	// stages existed. No new case ever enters them.
	StatusOpened   Status = "opened"
	StatusAssigned Status = "assigned"
)

var allStatuses = []Status{
	StatusPendingIntake,
	StatusPendingApproval,
	StatusInDesign,
	StatusPendingReview,
	StatusReviewRejected,
	StatusPendingClientReview,
	StatusClientRejected,
	StatusApproved,
	StatusCancelled,
	StatusOpened,
	StatusAssigned,
}

// ParseStatus validates a raw status value from the boundary.
func ParseStatus(v string) (Status, error) {
	for _, s := range allStatuses {
		if string(s) == v {
			return s, nil
		}
	}
	return "", ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", v)}
}

// Statuses returns every known status, workflow order first, legacy last.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsRejected reports whether landing on s counts as one refinement cycle.
func (s Status) IsRejected() bool {
	return s == StatusReviewRejected || s == StatusClientRejected
}

// IsTerminal reports whether s has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusCancelled
}

func (s Status) String() string { return string(s) }
