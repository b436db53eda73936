package server

import (
	"caseline/internal/domain"
)

// Request payloads

type CreateCaseRequest struct {
	OwnerID string `json:"owner_id"`
}

type TransitionCaseRequest struct {
	To   string  `json:"to" enum:"pending_intake,pending_approval,in_design,pending_review,review_rejected,pending_client_review,client_rejected,approved,cancelled,opened,assigned"`
	Note *string `json:"note,omitempty"`
}

type AssignCaseRequest struct {
	DesignerID *string `json:"designer_id,omitempty"`
	ReviewerID *string `json:"reviewer_id,omitempty"`
}

type RegisterActorRequest struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Role    string  `json:"role" enum:"owner,admin,staff"`
	SubRole *string `json:"sub_role,omitempty" enum:"designer,reviewer,both"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name"`
}

type DevLoginRequest struct {
	ActorID string  `json:"actor_id"`
	Role    string  `json:"role" enum:"owner,admin,staff"`
	SubRole *string `json:"sub_role,omitempty" enum:"designer,reviewer,both"`
}

// Response payloads

type CaseResponse struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	OwnerID         string  `json:"owner_id"`
	DesignerID      *string `json:"designer_id,omitempty"`
	ReviewerID      *string `json:"reviewer_id,omitempty"`
	RefinementCount int     `json:"refinement_count"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
	UpdatedAt       string  `json:"updated_at" format:"date-time"`
}

type AuditEntryResponse struct {
	ID          int64   `json:"id"`
	CaseID      string  `json:"case_id"`
	FromStatus  *string `json:"from_status,omitempty"`
	ToStatus    string  `json:"to_status"`
	PerformedBy string  `json:"performed_by"`
	Note        string  `json:"note,omitempty"`
	TS          string  `json:"ts" format:"date-time"`
}

type ActorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	SubRole   string `json:"sub_role,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name"`
	Key       string `json:"key,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type AvailableTransitionsResponse struct {
	CaseID string   `json:"case_id"`
	Status string   `json:"status"`
	Next   []string `json:"next"`
}

type RefinementReportResponse struct {
	CaseID string  `json:"case_id"`
	Count  int     `json:"count"`
	Start  *string `json:"start,omitempty" format:"date-time"`
	End    *string `json:"end,omitempty" format:"date-time"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	SubRole string `json:"sub_role,omitempty"`
	Source  string `json:"source"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

func caseResponse(c domain.Case) CaseResponse {
	return CaseResponse{
		ID:              c.ID,
		Status:          c.Status,
		OwnerID:         c.OwnerID,
		DesignerID:      c.DesignerID,
		ReviewerID:      c.ReviewerID,
		RefinementCount: c.RefinementCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func auditEntryResponse(e domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:          e.ID,
		CaseID:      e.CaseID,
		FromStatus:  e.FromStatus,
		ToStatus:    e.ToStatus,
		PerformedBy: e.PerformedBy,
		Note:        e.Note,
		TS:          e.TS,
	}
}

func actorResponse(a domain.Actor) ActorResponse {
	return ActorResponse{
		ID:        a.ID,
		Name:      a.Name,
		Role:      a.Role,
		SubRole:   a.SubRole,
		CreatedAt: a.CreatedAt,
	}
}

func mapCases(items []domain.Case) []CaseResponse {
	res := make([]CaseResponse, 0, len(items))
	for _, c := range items {
		res = append(res, caseResponse(c))
	}
	return res
}

func mapAuditEntries(items []domain.AuditEntry) []AuditEntryResponse {
	res := make([]AuditEntryResponse, 0, len(items))
	for _, e := range items {
		res = append(res, auditEntryResponse(e))
	}
	return res
}

func mapActors(items []domain.Actor) []ActorResponse {
	res := make([]ActorResponse, 0, len(items))
	for _, a := range items {
		res = append(res, actorResponse(a))
	}
	return res
}

func strPtrValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
