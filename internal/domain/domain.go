package domain

// Case is the aggregate root of the review workflow. Status is a cached
// projection of the last audit entry's to_status; the audit log is the
// source of truth for history.
type Case struct {
	ID              string  `json:"id"`
	Status          string  `json:"status" enum:"pending_intake,pending_approval,in_design,pending_review,review_rejected,pending_client_review,client_rejected,approved,cancelled,opened,assigned"`
	OwnerID         string  `json:"owner_id"`
	DesignerID      *string `json:"designer_id,omitempty"`
	ReviewerID      *string `json:"reviewer_id,omitempty"`
	RefinementCount int     `json:"refinement_count"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
	UpdatedAt       string  `json:"updated_at" format:"date-time"`
}

// AuditEntry is one immutable record of an accepted transition (or, for
// assignment entries, a traceability record where from and to are equal).
// FromStatus is nil only on the creation entry.
type AuditEntry struct {
	ID          int64   `json:"id"`
	CaseID      string  `json:"case_id"`
	FromStatus  *string `json:"from_status,omitempty"`
	ToStatus    string  `json:"to_status"`
	PerformedBy string  `json:"performed_by"`
	Note        string  `json:"note,omitempty"`
	TS          string  `json:"ts" format:"date-time"`
}

// Actor is a registered participant. The registry record backs assignment
// checks and existence checks; request-time authorization uses the
// authenticated principal's claims.
type Actor struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role" enum:"owner,admin,staff"`
	SubRole   string `json:"sub_role,omitempty" enum:",designer,reviewer,both"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
