package masterdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the material and location masters.
type Repository interface {
	ListMaterials(ctx context.Context) ([]Material, error)
	GetMaterial(ctx context.Context, sku string) (Material, error)
	UpsertMaterial(ctx context.Context, m Material) error
	SetMaterialActive(ctx context.Context, sku string, active bool, at time.Time) (bool, error)
	ListLocations(ctx context.Context) ([]Location, error)
	UpsertLocation(ctx context.Context, l Location) error
	SetLocationActive(ctx context.Context, location string, active bool, at time.Time) (bool, error)
}

// repo implements Repository on PostgreSQL.
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

func (r *repo) ListMaterials(ctx context.Context) ([]Material, error) {
	rows, err := r.db.Query(ctx, `SELECT sku, product_name, active, created_at, updated_at FROM materials ORDER BY active DESC, sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.SKU, &m.ProductName, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (r *repo) GetMaterial(ctx context.Context, sku string) (Material, error) {
	var m Material
	err := r.db.QueryRow(ctx, `SELECT sku, product_name, active, created_at, updated_at FROM materials WHERE sku = $1`, sku).
		Scan(&m.SKU, &m.ProductName, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Material{}, ErrNotFound
	}
	return m, err
}

func (r *repo) UpsertMaterial(ctx context.Context, m Material) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO materials (sku, product_name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (sku) DO UPDATE
		SET product_name = EXCLUDED.product_name, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`,
		m.SKU, m.ProductName, m.Active, m.UpdatedAt)
	return err
}

func (r *repo) SetMaterialActive(ctx context.Context, sku string, active bool, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE materials SET active = $2, updated_at = $3 WHERE sku = $1`, sku, active, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.db.Query(ctx, `SELECT location, active, created_at, updated_at FROM locations ORDER BY active DESC, location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.Location, &l.Active, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *repo) UpsertLocation(ctx context.Context, l Location) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO locations (location, active, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (location) DO UPDATE
		SET active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`,
		l.Location, l.Active, l.UpdatedAt)
	return err
}

func (r *repo) SetLocationActive(ctx context.Context, location string, active bool, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE locations SET active = $2, updated_at = $3 WHERE location = $1`, location, active, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
