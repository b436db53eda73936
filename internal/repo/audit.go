package repo

import (
	"context"
	"database/sql"
	"strings"

	"caseline/internal/domain"
)

func scanAuditEntry(scan func(dest ...any) error) (domain.AuditEntry, error) {
	var e domain.AuditEntry
	var fromStatus, note sql.NullString
	err := scan(&e.ID, &e.CaseID, &fromStatus, &e.ToStatus, &e.PerformedBy, &note, &e.TS)
	if err != nil {
		return e, err
	}
	if fromStatus.Valid {
		e.FromStatus = &fromStatus.String
	}
	if note.Valid {
		e.Note = note.String
	}
	return e, nil
}

// History returns the full audit trail for a case, oldest first.
func (r Repo) History(ctx context.Context, caseID string) ([]domain.AuditEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,case_id,from_status,to_status,performed_by,note,ts FROM case_audit_log WHERE case_id=? ORDER BY id ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// ReplayStatus reconstructs the case status from the log alone. The log
// wins over the cached cases.status column if the two ever diverge.
func (r Repo) ReplayStatus(ctx context.Context, caseID string) (string, error) {
	var status string
	err := r.DB.QueryRowContext(ctx,
		`SELECT to_status FROM case_audit_log WHERE case_id=? ORDER BY id DESC LIMIT 1`, caseID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return status, err
}

// CountRefinements counts audit entries landing on a rejected status,
// optionally bounded to [start, end). Assignment entries (from = to) are
// excluded so an assignment made while a case rests in a rejected status
// does not count as a refinement.
func (r Repo) CountRefinements(ctx context.Context, caseID string, rejected []string, start, end string) (int, error) {
	if len(rejected) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(rejected))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT count(*) FROM case_audit_log WHERE case_id=? AND (from_status IS NULL OR from_status != to_status) AND to_status IN (` + placeholders + `)`
	args := []any{caseID}
	for _, s := range rejected {
		args = append(args, s)
	}
	if start != "" {
		query += ` AND ts >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND ts < ?`
		args = append(args, end)
	}
	var count int
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// LatestAuditID returns the most recent audit entry id, for feed cursors.
func (r Repo) LatestAuditID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM case_audit_log`).Scan(&id)
	return id, err
}

// AuditEntriesAfter returns entries with ids greater than the cursor in
// ascending order, for the webhook feed.
func (r Repo) AuditEntriesAfter(ctx context.Context, limit int, cursor int64) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,case_id,from_status,to_status,performed_by,note,ts FROM case_audit_log WHERE id>? ORDER BY id ASC LIMIT ?`,
		cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
