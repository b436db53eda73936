package audit

import (
	"context"
	"database/sql"
	"time"
)

// Writer appends audit entries inside the caller's transaction. The table
// is insert-only; nothing in the codebase updates or deletes rows.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Entry is the write-side shape; FromStatus empty string means the
// creation entry (stored as NULL).
type Entry struct {
	CaseID      string
	FromStatus  string
	ToStatus    string
	PerformedBy string
	Note        string
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, e Entry) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO case_audit_log(case_id,from_status,to_status,performed_by,note,ts) VALUES (?,?,?,?,?,?)`,
		e.CaseID, nullable(e.FromStatus), e.ToStatus, e.PerformedBy, nullable(e.Note), ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
