package workflow

import "fmt"

// ValidationError indicates malformed boundary input (unknown status, role
// or sub-role value). Non-retryable; the caller must correct the request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError indicates no rule exists for the requested
// (from, to) pair. Terminal for the request regardless of actor.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("no transition %s -> %s", e.From, e.To)
}

// ForbiddenError indicates a rule exists but the actor's role, sub-role or
// per-case assignment does not satisfy it.
type ForbiddenError struct {
	From   Status
	To     Status
	Role   Role
	Reason string
}

func (e ForbiddenError) Error() string {
	if e.From == "" && e.To == "" {
		return fmt.Sprintf("forbidden for %s: %s", e.Role, e.Reason)
	}
	if e.Reason != "" {
		return fmt.Sprintf("transition %s -> %s forbidden for %s: %s", e.From, e.To, e.Role, e.Reason)
	}
	return fmt.Sprintf("transition %s -> %s forbidden for %s", e.From, e.To, e.Role)
}
