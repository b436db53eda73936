package engine

import (
	"context"
	"fmt"
	"time"

	"caseline/internal/workflow"
)

// StatusReport aggregates the live case population. Buckets come from the
// reporting section of the config; a status not claimed by any bucket is
// counted under "other".
type StatusReport struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Buckets  map[string]int `json:"buckets,omitempty"`
}

func (e Engine) StatusCounts(ctx context.Context) (StatusReport, error) {
	counts, err := e.Repo.CountCasesByStatus(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	rep := StatusReport{ByStatus: counts}
	for _, n := range counts {
		rep.Total += n
	}
	if e.Config == nil || len(e.Config.Reporting.Buckets) == 0 {
		return rep, nil
	}
	rep.Buckets = map[string]int{}
	claimed := map[string]bool{}
	for name, statuses := range e.Config.Reporting.Buckets {
		for _, s := range statuses {
			rep.Buckets[name] += counts[s]
			claimed[s] = true
		}
	}
	for s, n := range counts {
		if !claimed[s] {
			rep.Buckets["other"] += n
		}
	}
	return rep, nil
}

func rejectedStatuses() []string {
	var out []string
	for _, s := range workflow.Statuses() {
		if s.IsRejected() {
			out = append(out, string(s))
		}
	}
	return out
}

// RefinementTotal derives the lifetime refinement count for a case from
// the audit trail. It matches the cached refinement_count column unless
// the log and the column have diverged; the log is the source of truth.
func (e Engine) RefinementTotal(ctx context.Context, caseID string) (int, error) {
	if _, err := e.Repo.GetCase(ctx, caseID); err != nil {
		return 0, err
	}
	return e.Repo.CountRefinements(ctx, caseID, rejectedStatuses(), "", "")
}

// RefinementsInPeriod counts rejections recorded in [start, end).
func (e Engine) RefinementsInPeriod(ctx context.Context, caseID string, start, end time.Time) (int, error) {
	if _, err := e.Repo.GetCase(ctx, caseID); err != nil {
		return 0, err
	}
	var s, en string
	if !start.IsZero() {
		s = start.UTC().Format(time.RFC3339)
	}
	if !end.IsZero() {
		en = end.UTC().Format(time.RFC3339)
	}
	return e.Repo.CountRefinements(ctx, caseID, rejectedStatuses(), s, en)
}

// VerifyResult reports one divergence between a case row and its audit
// trail.
type VerifyResult struct {
	CaseID           string `json:"case_id"`
	Status           string `json:"status"`
	ReplayedStatus   string `json:"replayed_status"`
	RefinementCount  int    `json:"refinement_count"`
	ReplayedRefCount int    `json:"replayed_refinement_count"`
	StatusMatch      bool   `json:"status_match"`
	RefinementMatch  bool   `json:"refinement_match"`
}

// VerifyCase replays a case's audit trail and compares the result against
// the cached status and refinement count on the case row.
func (e Engine) VerifyCase(ctx context.Context, caseID string) (VerifyResult, error) {
	c, err := e.Repo.GetCase(ctx, caseID)
	if err != nil {
		return VerifyResult{}, err
	}
	replayed, err := e.Repo.ReplayStatus(ctx, caseID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("replay %s: %w", caseID, err)
	}
	refs, err := e.Repo.CountRefinements(ctx, caseID, rejectedStatuses(), "", "")
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		CaseID:           c.ID,
		Status:           c.Status,
		ReplayedStatus:   replayed,
		RefinementCount:  c.RefinementCount,
		ReplayedRefCount: refs,
		StatusMatch:      c.Status == replayed,
		RefinementMatch:  c.RefinementCount == refs,
	}, nil
}
