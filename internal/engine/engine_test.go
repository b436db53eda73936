package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"caseline/internal/config"
	"caseline/internal/db"
	"caseline/internal/domain"
	"caseline/internal/engine"
	"caseline/internal/migrate"
	"caseline/internal/repo"
	"caseline/internal/workflow"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("practice-1")
	eng := engine.New(conn, cfg)
	clock := func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	eng.Now = clock
	eng.Audit.Now = clock
	ctx := context.Background()
	for _, a := range []domain.Actor{
		{ID: "dr-lee", Name: "Dr. Lee", Role: "owner"},
		{ID: "admin-1", Name: "Front Desk", Role: "admin"},
		{ID: "des-1", Name: "Designer One", Role: "staff", SubRole: "designer"},
		{ID: "rev-1", Name: "Reviewer One", Role: "staff", SubRole: "reviewer"},
		{ID: "staff-both", Name: "Senior Tech", Role: "staff", SubRole: "both"},
	} {
		if _, err := eng.Repo.UpsertActor(ctx, a); err != nil {
			t.Fatalf("seed actor %s: %v", a.ID, err)
		}
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

// newAssignedCase creates a case, approves intake, and assigns des-1/rev-1.
func newAssignedCase(t *testing.T, env testEnv) domain.Case {
	t.Helper()
	c, err := env.Engine.CreateCase(env.Ctx, "dr-lee")
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	c = mustTransition(t, env, c.ID, workflow.StatusPendingApproval, "dr-lee", "owner", "")
	c, err = env.Engine.AssignActors(env.Ctx, engine.AssignRequest{
		CaseID: c.ID, DesignerID: "des-1", ReviewerID: "rev-1", AdminID: "admin-1",
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return mustTransition(t, env, c.ID, workflow.StatusInDesign, "admin-1", "admin", "")
}

func mustTransition(t *testing.T, env testEnv, caseID string, to workflow.Status, actorID string, role workflow.Role, subRole workflow.SubRole) domain.Case {
	t.Helper()
	c, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		CaseID: caseID, To: to, ActorID: actorID, Role: role, SubRole: subRole,
	})
	if err != nil {
		t.Fatalf("transition to %s as %s: %v", to, actorID, err)
	}
	return c
}

func TestCreateCase(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.CreateCase(env.Ctx, "dr-lee")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != "pending_intake" {
		t.Fatalf("status = %s, want pending_intake", c.Status)
	}
	if c.RefinementCount != 0 {
		t.Fatalf("refinement count = %d, want 0", c.RefinementCount)
	}
	entries, err := env.Engine.History(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].FromStatus != nil {
		t.Fatalf("creation entry from_status = %v, want nil", *entries[0].FromStatus)
	}
	if entries[0].ToStatus != "pending_intake" {
		t.Fatalf("creation entry to_status = %s", entries[0].ToStatus)
	}
}

func TestCreateCaseRejectsNonOwner(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateCase(env.Ctx, "admin-1"); err == nil {
		t.Fatal("expected error creating case for non-owner actor")
	}
	if _, err := env.Engine.CreateCase(env.Ctx, "nobody"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown owner: err = %v, want ErrNotFound", err)
	}
}

func TestHappyPathApproval(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")
	c = mustTransition(t, env, c.ID, workflow.StatusPendingClientReview, "rev-1", "staff", "reviewer")
	c = mustTransition(t, env, c.ID, workflow.StatusApproved, "dr-lee", "owner", "")
	if c.Status != "approved" {
		t.Fatalf("status = %s, want approved", c.Status)
	}
	if c.RefinementCount != 0 {
		t.Fatalf("refinement count = %d, want 0", c.RefinementCount)
	}
	entries, err := env.Engine.History(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	// create + approve-intake + assignment + in_design + review + client + approved
	if len(entries) != 7 {
		t.Fatalf("audit entries = %d, want 7", len(entries))
	}
}

func TestReviewRejectionCompound(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")
	c, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		CaseID: c.ID, To: workflow.StatusReviewRejected,
		ActorID: "rev-1", Role: "staff", SubRole: "reviewer",
		Note: "margins off",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if c.Status != "in_design" {
		t.Fatalf("status after rejection = %s, want in_design", c.Status)
	}
	if c.RefinementCount != 1 {
		t.Fatalf("refinement count = %d, want 1", c.RefinementCount)
	}
	entries, err := env.Engine.History(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	last, prev := entries[len(entries)-1], entries[len(entries)-2]
	if prev.ToStatus != "review_rejected" || prev.Note != "margins off" {
		t.Fatalf("rejection entry = %+v", prev)
	}
	if last.FromStatus == nil || *last.FromStatus != "review_rejected" || last.ToStatus != "in_design" {
		t.Fatalf("rework entry = %+v", last)
	}
	if last.PerformedBy != "rev-1" {
		t.Fatalf("rework performed_by = %s, want rev-1", last.PerformedBy)
	}
}

func TestClientRejectionCompound(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")
	c = mustTransition(t, env, c.ID, workflow.StatusPendingClientReview, "rev-1", "staff", "reviewer")
	c = mustTransition(t, env, c.ID, workflow.StatusClientRejected, "dr-lee", "owner", "")
	if c.Status != "in_design" {
		t.Fatalf("status = %s, want in_design", c.Status)
	}
	if c.RefinementCount != 1 {
		t.Fatalf("refinement count = %d, want 1", c.RefinementCount)
	}
	total, err := env.Engine.RefinementTotal(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("derived refinement total = %d, want 1", total)
	}
}

func TestRepeatedRefinements(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	for i := 0; i < 3; i++ {
		c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")
		c = mustTransition(t, env, c.ID, workflow.StatusReviewRejected, "rev-1", "staff", "reviewer")
	}
	if c.RefinementCount != 3 {
		t.Fatalf("refinement count = %d, want 3", c.RefinementCount)
	}
	total, err := env.Engine.RefinementTotal(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("derived total = %d, want 3", total)
	}
}

func TestInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.CreateCase(env.Ctx, "dr-lee")
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		CaseID: c.ID, To: workflow.StatusApproved, ActorID: "dr-lee", Role: "owner",
	})
	var ite workflow.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("err = %v, want InvalidTransitionError", err)
	}
	if ite.From != workflow.StatusPendingIntake || ite.To != workflow.StatusApproved {
		t.Fatalf("error pair = %s -> %s", ite.From, ite.To)
	}
}

func TestForbiddenRole(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	// designers cannot review
	_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		CaseID: c.ID, To: workflow.StatusPendingReview, ActorID: "rev-1", Role: "staff", SubRole: "reviewer",
	})
	var fe workflow.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want ForbiddenError", err)
	}
	// owner cannot move design forward
	_, err = env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		CaseID: c.ID, To: workflow.StatusPendingReview, ActorID: "dr-lee", Role: "owner",
	})
	if !errors.As(err, &fe) {
		t.Fatalf("owner err = %v, want ForbiddenError", err)
	}
}

func TestBothSubRoleCoversEither(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.CreateCase(env.Ctx, "dr-lee")
	if err != nil {
		t.Fatal(err)
	}
	c = mustTransition(t, env, c.ID, workflow.StatusPendingApproval, "dr-lee", "owner", "")
	if _, err := env.Engine.AssignActors(env.Ctx, engine.AssignRequest{
		CaseID: c.ID, DesignerID: "staff-both", ReviewerID: "staff-both", AdminID: "admin-1",
	}); err != nil {
		t.Fatalf("assign both-capability actor: %v", err)
	}
	c = mustTransition(t, env, c.ID, workflow.StatusInDesign, "admin-1", "admin", "")
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "staff-both", "staff", "both")
	c = mustTransition(t, env, c.ID, workflow.StatusPendingClientReview, "staff-both", "staff", "both")
	if c.Status != "pending_client_review" {
		t.Fatalf("status = %s", c.Status)
	}
}

func TestUnassignedStaffForbidden(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	// staff-both has the capability but is not the assigned designer
	_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		CaseID: c.ID, To: workflow.StatusPendingReview, ActorID: "staff-both", Role: "staff", SubRole: "both",
	})
	var fe workflow.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want ForbiddenError", err)
	}
}

func TestTerminalStatesFrozen(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusCancelled, "admin-1", "admin", "")
	for _, to := range workflow.Statuses() {
		_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
			CaseID: c.ID, To: to, ActorID: "admin-1", Role: "admin",
		})
		var ite workflow.InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Fatalf("cancelled -> %s: err = %v, want InvalidTransitionError", to, err)
		}
	}
}

func TestAssignmentRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.CreateCase(env.Ctx, "dr-lee")
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.AssignActors(env.Ctx, engine.AssignRequest{
		CaseID: c.ID, DesignerID: "des-1", AdminID: "dr-lee",
	})
	var fe workflow.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want ForbiddenError", err)
	}
	_, err = env.Engine.AssignActors(env.Ctx, engine.AssignRequest{
		CaseID: c.ID, DesignerID: "missing", AdminID: "admin-1",
	})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing designer: err = %v, want ErrNotFound", err)
	}
	_, err = env.Engine.AssignActors(env.Ctx, engine.AssignRequest{
		CaseID: c.ID, DesignerID: "rev-1", AdminID: "admin-1",
	})
	var ve workflow.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("reviewer-only actor as designer: err = %v, want ValidationError", err)
	}
}

func TestAssignmentAuditEntry(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.CreateCase(env.Ctx, "dr-lee")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AssignActors(env.Ctx, engine.AssignRequest{
		CaseID: c.ID, DesignerID: "des-1", ReviewerID: "rev-1", AdminID: "admin-1",
	}); err != nil {
		t.Fatal(err)
	}
	entries, err := env.Engine.History(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	last := entries[len(entries)-1]
	if last.FromStatus == nil || *last.FromStatus != last.ToStatus {
		t.Fatalf("assignment entry should keep status unchanged: %+v", last)
	}
	// assignment entries never count as refinements even while resting in
	// a rejected status
	total, err := env.Engine.RefinementTotal(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("refinement total = %d, want 0", total)
	}
}

func TestAvailableTransitions(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	got, err := env.Engine.AvailableTransitions(env.Ctx, c.ID, "des-1", "staff", "designer")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != workflow.StatusPendingReview {
		t.Fatalf("designer options = %v, want [pending_review]", got)
	}
	got, err = env.Engine.AvailableTransitions(env.Ctx, c.ID, "rev-1", "staff", "reviewer")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("reviewer options in in_design = %v, want none", got)
	}
	got, err = env.Engine.AvailableTransitions(env.Ctx, c.ID, "admin-1", "admin", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != workflow.StatusCancelled {
		t.Fatalf("admin options = %v, want [cancelled]", got)
	}
}

func TestConcurrentTransitionConflict(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")

	// the row moves on after an earlier read; a CAS keyed on the stale
	// status must refuse to apply
	mustTransition(t, env, c.ID, workflow.StatusPendingClientReview, "rev-1", "staff", "reviewer")
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = env.Engine.Repo.ApplyTransition(env.Ctx, tx, c.ID, "pending_review", "review_rejected", 1, "2025-06-01T10:00:00Z")
	tx.Rollback()
	var ce repo.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("stale update err = %v, want ConflictError", err)
	}
}

func TestConcurrentEngineCalls(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	run := func(i int, to workflow.Status) {
		defer wg.Done()
		_, errs[i] = env.Engine.Transition(env.Ctx, engine.TransitionRequest{
			CaseID: c.ID, To: to, ActorID: "rev-1", Role: "staff", SubRole: "reviewer",
		})
	}
	wg.Add(2)
	go run(0, workflow.StatusPendingClientReview)
	go run(1, workflow.StatusPendingClientReview)
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("failures = %d, want exactly 1 (errs: %v)", failures, errs)
	}
	final, err := env.Engine.Repo.GetCase(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != "pending_client_review" {
		t.Fatalf("final status = %s", final.Status)
	}
	res, err := env.Engine.VerifyCase(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.StatusMatch || !res.RefinementMatch {
		t.Fatalf("case diverged from audit trail: %+v", res)
	}
}

func TestReplayMatchesCachedState(t *testing.T) {
	env := newTestEnv(t)
	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")
	c = mustTransition(t, env, c.ID, workflow.StatusReviewRejected, "rev-1", "staff", "reviewer")
	res, err := env.Engine.VerifyCase(env.Ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.ReplayedStatus != "in_design" || !res.StatusMatch {
		t.Fatalf("replay = %+v", res)
	}
	if res.ReplayedRefCount != 1 || !res.RefinementMatch {
		t.Fatalf("replayed refinements = %+v", res)
	}
}

func TestRefinementsInPeriod(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	current := base
	clock := func() time.Time { return current }
	env.Engine.Now = clock
	env.Engine.Audit.Now = clock

	c := newAssignedCase(t, env)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")
	c = mustTransition(t, env, c.ID, workflow.StatusReviewRejected, "rev-1", "staff", "reviewer")

	current = base.AddDate(0, 1, 0)
	c = mustTransition(t, env, c.ID, workflow.StatusPendingReview, "des-1", "staff", "designer")
	mustTransition(t, env, c.ID, workflow.StatusReviewRejected, "rev-1", "staff", "reviewer")

	june, err := env.Engine.RefinementsInPeriod(env.Ctx, c.ID, base.AddDate(0, 0, -1), base.AddDate(0, 0, 15))
	if err != nil {
		t.Fatal(err)
	}
	if june != 1 {
		t.Fatalf("june refinements = %d, want 1", june)
	}
	all, err := env.Engine.RefinementsInPeriod(env.Ctx, c.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if all != 2 {
		t.Fatalf("all-time refinements = %d, want 2", all)
	}
}

func TestStatusCounts(t *testing.T) {
	env := newTestEnv(t)
	newAssignedCase(t, env)
	if _, err := env.Engine.CreateCase(env.Ctx, "dr-lee"); err != nil {
		t.Fatal(err)
	}
	rep, err := env.Engine.StatusCounts(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Total != 2 {
		t.Fatalf("total = %d, want 2", rep.Total)
	}
	if rep.ByStatus["in_design"] != 1 || rep.ByStatus["pending_intake"] != 1 {
		t.Fatalf("by_status = %v", rep.ByStatus)
	}
	if rep.Buckets["production"] != 1 || rep.Buckets["intake"] != 1 {
		t.Fatalf("buckets = %v", rep.Buckets)
	}
}

func TestHistoryUnknownCase(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.History(env.Ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
