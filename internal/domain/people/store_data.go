package people

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const profileColumns = "id, email, full_name, role, supervisor_id, active, created_at, updated_at"

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Email, &rec.FullName, &rec.Role, &rec.SupervisorID, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, mapWriteError(err)
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (s *Store) ListProfiles(ctx context.Context, filter Filter) ([]Record, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE 1=1"
	var args []any
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		query += fmt.Sprintf(" AND supervisor_id = $%d", len(args))
	}
	if filter.Unassigned {
		query += " AND role = 'clinician' AND supervisor_id IS NULL"
	}
	if filter.ActiveOnly {
		query += " AND active = true"
	}
	query += " ORDER BY full_name ASC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetProfile(ctx context.Context, id string) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id))
}

func (s *Store) CreateProfile(ctx context.Context, rec Record, passwordHash string) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, `
    INSERT INTO profiles (email, full_name, role, supervisor_id, password_hash)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING `+profileColumns, rec.Email, rec.FullName, rec.Role, rec.SupervisorID, nullIfEmpty(passwordHash)))
}

func (s *Store) UpdateProfile(ctx context.Context, id string, input UpdateInput) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, `
    UPDATE profiles
    SET email = $2, full_name = $3, active = COALESCE($4, active), updated_at = now()
    WHERE id = $1
    RETURNING `+profileColumns, id, input.Email, input.FullName, input.Active))
}

func (s *Store) SetSupervisor(ctx context.Context, clinicianID string, supervisorID *string) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, `
    UPDATE profiles
    SET supervisor_id = $2, updated_at = now()
    WHERE id = $1 AND role = 'clinician'
    RETURNING `+profileColumns, clinicianID, supervisorID))
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
