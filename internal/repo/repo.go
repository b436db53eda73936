package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"caseline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// ConflictError indicates a compare-and-swap loss: the stored status no
// longer matched what the caller read. The caller re-reads and retries.
type ConflictError struct {
	CaseID   string
	Expected string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("case %s no longer in status %s", e.CaseID, e.Expected)
}

const caseColumns = `id,status,owner_id,designer_id,reviewer_id,refinement_count,created_at,updated_at`

func scanCase(scan func(dest ...any) error) (domain.Case, error) {
	var c domain.Case
	var designer, reviewer sql.NullString
	err := scan(&c.ID, &c.Status, &c.OwnerID, &designer, &reviewer, &c.RefinementCount, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if designer.Valid {
		c.DesignerID = &designer.String
	}
	if reviewer.Valid {
		c.ReviewerID = &reviewer.String
	}
	return c, nil
}

func (r Repo) InsertCase(ctx context.Context, tx *sql.Tx, c domain.Case) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO cases(`+caseColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.Status, c.OwnerID, nullableStringPtr(c.DesignerID), nullableStringPtr(c.ReviewerID),
		c.RefinementCount, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetCase(ctx context.Context, id string) (domain.Case, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=?`, id)
	return scanCase(row.Scan)
}

func (r Repo) GetCaseTx(ctx context.Context, tx *sql.Tx, id string) (domain.Case, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=?`, id)
	return scanCase(row.Scan)
}

// ApplyTransition is the optimistic-concurrency guard: the update only
// lands if the stored status still equals expectedStatus. Zero affected
// rows means either the case vanished or another writer won the race.
func (r Repo) ApplyTransition(ctx context.Context, tx *sql.Tx, caseID, expectedStatus, newStatus string, refinementDelta int, now string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cases SET status=?, refinement_count=refinement_count+?, updated_at=? WHERE id=? AND status=?`,
		newStatus, refinementDelta, now, caseID, expectedStatus)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM cases WHERE id=?`, caseID).Scan(&one)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ConflictError{CaseID: caseID, Expected: expectedStatus}
	}
	return nil
}

func (r Repo) UpdateAssignees(ctx context.Context, tx *sql.Tx, caseID string, designerID, reviewerID, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE cases SET designer_id=?, reviewer_id=?, updated_at=? WHERE id=?`,
		nullable(designerID), nullable(reviewerID), now, caseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type CaseFilters struct {
	Status          string
	OwnerID         string
	AssigneeID      string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListCases(ctx context.Context, f CaseFilters) ([]domain.Case, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "(designer_id=? OR reviewer_id=?)")
		args = append(args, f.AssigneeID, f.AssigneeID)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + caseColumns + ` FROM cases ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Case
	for rows.Next() {
		c, err := scanCase(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) CountCasesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM cases GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
