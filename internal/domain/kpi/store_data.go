package kpi

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const kpiColumns = "id, name, description, weight, active, removed_at, created_at, updated_at"

func scanKPI(row pgx.Row) (KPI, error) {
	var k KPI
	err := row.Scan(&k.ID, &k.Name, &k.Description, &k.Weight, &k.Active, &k.RemovedAt, &k.CreatedAt, &k.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return KPI{}, ErrNotFound
	}
	return k, err
}

func (s *Store) ListKPIs(ctx context.Context, includeRemoved bool) ([]KPI, error) {
	query := "SELECT " + kpiColumns + " FROM kpis"
	if !includeRemoved {
		query += " WHERE active = true"
	}
	query += " ORDER BY active DESC, name ASC"

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KPI
	for rows.Next() {
		k, err := scanKPI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) GetKPI(ctx context.Context, id string) (KPI, error) {
	return scanKPI(s.DB.QueryRow(ctx, "SELECT "+kpiColumns+" FROM kpis WHERE id = $1", id))
}

func (s *Store) CreateKPI(ctx context.Context, input Input) (KPI, error) {
	return scanKPI(s.DB.QueryRow(ctx, `
    INSERT INTO kpis (name, description, weight)
    VALUES ($1,$2,$3)
    RETURNING `+kpiColumns, input.Name, input.Description, input.Weight))
}

func (s *Store) UpdateKPI(ctx context.Context, id string, input Input) (KPI, error) {
	return scanKPI(s.DB.QueryRow(ctx, `
    UPDATE kpis
    SET name = $2, description = $3, weight = $4, updated_at = now()
    WHERE id = $1
    RETURNING `+kpiColumns, id, input.Name, input.Description, input.Weight))
}

// RemoveKPI is a soft delete: reviews already recorded keep their KPI.
func (s *Store) RemoveKPI(ctx context.Context, id string) (KPI, error) {
	return scanKPI(s.DB.QueryRow(ctx, `
    UPDATE kpis
    SET active = false, removed_at = now(), updated_at = now()
    WHERE id = $1
    RETURNING `+kpiColumns, id))
}

func (s *Store) RestoreKPI(ctx context.Context, id string) (KPI, error) {
	return scanKPI(s.DB.QueryRow(ctx, `
    UPDATE kpis
    SET active = true, removed_at = NULL, updated_at = now()
    WHERE id = $1
    RETURNING `+kpiColumns, id))
}
