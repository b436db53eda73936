package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"caseline/internal/audit"
	"caseline/internal/config"
	"caseline/internal/domain"
	"caseline/internal/repo"
	"caseline/internal/workflow"
)

// Engine is the only component permitted to mutate case status. It is
// stateless request/response logic; concurrent calls on different cases
// share nothing, and races on one case are resolved by the repo's
// compare-and-swap (losers get repo.ConflictError and retry from a fresh
// read; the engine never retries on the caller's behalf).
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Audit  audit.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Audit:  audit.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CreateCase seeds a new case in pending_intake with refinement count 0
// and writes the creation audit entry (null from_status).
func (e Engine) CreateCase(ctx context.Context, ownerID string) (domain.Case, error) {
	owner, err := e.Repo.GetActor(ctx, ownerID)
	if err != nil {
		return domain.Case{}, fmt.Errorf("owner %s: %w", ownerID, err)
	}
	if owner.Role != string(workflow.RoleOwner) {
		return domain.Case{}, workflow.ValidationError{Field: "owner_id", Reason: fmt.Sprintf("actor %s is not a case owner", ownerID)}
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Case{
		ID:        uuid.New().String(),
		Status:    string(workflow.StatusPendingIntake),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Case{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertCase(ctx, tx, c); err != nil {
		return domain.Case{}, fmt.Errorf("insert case: %w", err)
	}
	if err := e.Audit.Append(ctx, tx, audit.Entry{
		CaseID:      c.ID,
		ToStatus:    c.Status,
		PerformedBy: ownerID,
	}); err != nil {
		return domain.Case{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Case{}, err
	}
	return c, nil
}

// AssignRequest names the actors an administrator places on a case. Empty
// IDs clear the corresponding assignment. The same actor may hold both
// slots; there is no self-review prevention.
type AssignRequest struct {
	CaseID     string
	DesignerID string
	ReviewerID string
	AdminID    string
}

// AssignActors sets the design and review assignees and records an
// assignment audit entry (from and to equal the current status).
func (e Engine) AssignActors(ctx context.Context, req AssignRequest) (domain.Case, error) {
	admin, err := e.Repo.GetActor(ctx, req.AdminID)
	if err != nil {
		return domain.Case{}, fmt.Errorf("admin %s: %w", req.AdminID, err)
	}
	if admin.Role != string(workflow.RoleAdmin) {
		return domain.Case{}, workflow.ForbiddenError{Role: workflow.Role(admin.Role), Reason: "only administrators assign actors"}
	}
	if req.DesignerID != "" {
		if err := e.requireCapability(ctx, req.DesignerID, workflow.SubRoleDesigner); err != nil {
			return domain.Case{}, err
		}
	}
	if req.ReviewerID != "" {
		if err := e.requireCapability(ctx, req.ReviewerID, workflow.SubRoleReviewer); err != nil {
			return domain.Case{}, err
		}
	}
	c, err := e.Repo.GetCase(ctx, req.CaseID)
	if err != nil {
		return domain.Case{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Case{}, err
	}
	defer tx.Rollback()

	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateAssignees(ctx, tx, c.ID, req.DesignerID, req.ReviewerID, now); err != nil {
		return domain.Case{}, err
	}
	note := assignmentNote(req.DesignerID, req.ReviewerID)
	if err := e.Audit.Append(ctx, tx, audit.Entry{
		CaseID:      c.ID,
		FromStatus:  c.Status,
		ToStatus:    c.Status,
		PerformedBy: req.AdminID,
		Note:        note,
	}); err != nil {
		return domain.Case{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Case{}, err
	}
	return e.Repo.GetCase(ctx, c.ID)
}

func (e Engine) requireCapability(ctx context.Context, actorID string, cap workflow.SubRole) error {
	a, err := e.Repo.GetActor(ctx, actorID)
	if err != nil {
		return fmt.Errorf("actor %s: %w", actorID, err)
	}
	if a.Role != string(workflow.RoleStaff) {
		return workflow.ValidationError{Field: "actor_id", Reason: fmt.Sprintf("actor %s is not staff", actorID)}
	}
	if !workflow.SubRole(a.SubRole).Covers(cap) {
		return workflow.ValidationError{Field: "actor_id", Reason: fmt.Sprintf("actor %s lacks %s capability", actorID, cap)}
	}
	return nil
}

func assignmentNote(designerID, reviewerID string) string {
	parts := []string{"assignment"}
	if designerID != "" {
		parts = append(parts, "designer="+designerID)
	}
	if reviewerID != "" {
		parts = append(parts, "reviewer="+reviewerID)
	}
	return strings.Join(parts, " ")
}

// TransitionRequest carries one requested status change. Role and SubRole
// come from the authenticated principal, not the actors registry.
type TransitionRequest struct {
	CaseID  string
	To      workflow.Status
	ActorID string
	Role    workflow.Role
	SubRole workflow.SubRole
	Note    string
}

// Transition validates the request against the transition table and the
// case's current state, then applies it atomically together with its
// audit entry. A request landing on a rejected status immediately chains
// the second hop back to in_design as its own atomic transaction: two
// audit entries, one externally visible operation. A failure between the
// hops leaves the case resting in the rejected status; re-issuing
// rejected -> in_design is itself a normal authorized transition.
func (e Engine) Transition(ctx context.Context, req TransitionRequest) (domain.Case, error) {
	c, err := e.Repo.GetCase(ctx, req.CaseID)
	if err != nil {
		return domain.Case{}, err
	}
	updated, err := e.applyHop(ctx, c, req)
	if err != nil {
		return domain.Case{}, err
	}
	if req.To.IsRejected() {
		rework := TransitionRequest{
			CaseID:  req.CaseID,
			To:      workflow.StatusInDesign,
			ActorID: req.ActorID,
			Role:    req.Role,
			SubRole: req.SubRole,
		}
		updated, err = e.applyHop(ctx, updated, rework)
		if err != nil {
			// The case rests in the rejected status with one audit
			// entry; the rework hop can be re-issued at any time.
			return domain.Case{}, err
		}
	}
	return updated, nil
}

// applyHop performs one table-checked, capability-checked, compare-and-
// swapped status change plus its audit entry in a single transaction.
func (e Engine) applyHop(ctx context.Context, c domain.Case, req TransitionRequest) (domain.Case, error) {
	from := workflow.Status(c.Status)
	rule, ok := workflow.Lookup(from, req.To)
	if !ok {
		return domain.Case{}, workflow.InvalidTransitionError{From: from, To: req.To}
	}
	if !rule.Authorizes(req.Role, req.SubRole) {
		return domain.Case{}, workflow.ForbiddenError{From: from, To: req.To, Role: req.Role}
	}
	if err := e.checkAssignment(c, rule, req.ActorID, req.Role); err != nil {
		return domain.Case{}, err
	}
	delta := 0
	if req.To.IsRejected() {
		delta = 1
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Case{}, err
	}
	defer tx.Rollback()

	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.ApplyTransition(ctx, tx, c.ID, c.Status, string(req.To), delta, now); err != nil {
		return domain.Case{}, err
	}
	if err := e.Audit.Append(ctx, tx, audit.Entry{
		CaseID:      c.ID,
		FromStatus:  c.Status,
		ToStatus:    string(req.To),
		PerformedBy: req.ActorID,
		Note:        req.Note,
	}); err != nil {
		return domain.Case{}, err
	}
	updated, err := e.Repo.GetCaseTx(ctx, tx, c.ID)
	if err != nil {
		return domain.Case{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Case{}, err
	}
	return updated, nil
}

// checkAssignment enforces the per-case eligibility on top of the rule's
// role grant: staff must be the assigned actor for the capability being
// exercised, owners must own the case, admins pass unchecked.
func (e Engine) checkAssignment(c domain.Case, rule workflow.Rule, actorID string, role workflow.Role) error {
	switch role {
	case workflow.RoleAdmin:
		return nil
	case workflow.RoleOwner:
		if c.OwnerID != actorID {
			return workflow.ForbiddenError{From: rule.From, To: rule.To, Role: role, Reason: "not the case owner"}
		}
		return nil
	case workflow.RoleStaff:
		switch rule.Capability() {
		case workflow.SubRoleDesigner:
			if c.DesignerID == nil || *c.DesignerID != actorID {
				return workflow.ForbiddenError{From: rule.From, To: rule.To, Role: role, Reason: "not the assigned designer"}
			}
		case workflow.SubRoleReviewer:
			if c.ReviewerID == nil || *c.ReviewerID != actorID {
				return workflow.ForbiddenError{From: rule.From, To: rule.To, Role: role, Reason: "not the assigned reviewer"}
			}
		}
		return nil
	}
	return workflow.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
}

// AvailableTransitions filters the transition table by the case's current
// status and the same role/sub-role/assignment checks as Transition. Pure
// query, no mutation.
func (e Engine) AvailableTransitions(ctx context.Context, caseID, actorID string, role workflow.Role, subRole workflow.SubRole) ([]workflow.Status, error) {
	c, err := e.Repo.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	var out []workflow.Status
	for _, rule := range workflow.RulesFrom(workflow.Status(c.Status)) {
		if !rule.Authorizes(role, subRole) {
			continue
		}
		if err := e.checkAssignment(c, rule, actorID, role); err != nil {
			continue
		}
		out = append(out, rule.To)
	}
	return out, nil
}

// History returns the case's audit trail, oldest first.
func (e Engine) History(ctx context.Context, caseID string) ([]domain.AuditEntry, error) {
	if _, err := e.Repo.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return e.Repo.History(ctx, caseID)
}
