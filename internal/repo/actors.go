package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"caseline/internal/domain"
)

// UpsertActor registers or updates an actor record.
func (r Repo) UpsertActor(ctx context.Context, a domain.Actor) (domain.Actor, error) {
	if a.ID == "" {
		return domain.Actor{}, errors.New("id required")
	}
	if a.Role == "" {
		return domain.Actor{}, errors.New("role required")
	}
	if a.CreatedAt == "" {
		a.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO actors(id,name,role,sub_role,created_at) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, role=excluded.role, sub_role=excluded.sub_role`,
		a.ID, nullable(a.Name), a.Role, nullable(a.SubRole), a.CreatedAt)
	if err != nil {
		return domain.Actor{}, err
	}
	return r.GetActor(ctx, a.ID)
}

func (r Repo) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	var a domain.Actor
	var name, subRole sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,role,sub_role,created_at FROM actors WHERE id=?`, id).
		Scan(&a.ID, &name, &a.Role, &subRole, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if name.Valid {
		a.Name = name.String
	}
	if subRole.Valid {
		a.SubRole = subRole.String
	}
	return a, nil
}

func (r Repo) ListActors(ctx context.Context, role string) ([]domain.Actor, error) {
	query := `SELECT id,name,role,sub_role,created_at FROM actors`
	var args []any
	if role != "" {
		query += ` WHERE role=?`
		args = append(args, role)
	}
	query += ` ORDER BY id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Actor
	for rows.Next() {
		var a domain.Actor
		var name, subRole sql.NullString
		if err := rows.Scan(&a.ID, &name, &a.Role, &subRole, &a.CreatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			a.Name = name.String
		}
		if subRole.Valid {
			a.SubRole = subRole.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
