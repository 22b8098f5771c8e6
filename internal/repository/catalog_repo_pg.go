package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rapidlab/labbooking/internal/domain"
)

type CatalogRepository interface {
	ListLabs(ctx context.Context) ([]domain.Lab, error)
	GetLabByName(ctx context.Context, name string) (*domain.Lab, error)
	ListTests(ctx context.Context) ([]domain.DiagnosticTest, error)
	GetTestByID(ctx context.Context, id int64) (*domain.DiagnosticTest, error)
}

type PGCatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &PGCatalogRepository{db: db}
}

func (r *PGCatalogRepository) ListLabs(ctx context.Context) ([]domain.Lab, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, address, city, rating, created_at, updated_at FROM labs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labs := make([]domain.Lab, 0)
	for rows.Next() {
		var l domain.Lab
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.Rating, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		labs = append(labs, l)
	}
	return labs, rows.Err()
}

func (r *PGCatalogRepository) GetLabByName(ctx context.Context, name string) (*domain.Lab, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, address, city, rating, created_at, updated_at FROM labs WHERE name=$1`, name)
	var l domain.Lab
	if err := row.Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.Rating, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLabNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *PGCatalogRepository) ListTests(ctx context.Context) ([]domain.DiagnosticTest, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, organ, price, created_at, updated_at FROM tests ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tests := make([]domain.DiagnosticTest, 0)
	for rows.Next() {
		var t domain.DiagnosticTest
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Organ, &t.Price, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

func (r *PGCatalogRepository) GetTestByID(ctx context.Context, id int64) (*domain.DiagnosticTest, error) {
	row := r.db.QueryRow(ctx, `SELECT id, code, name, organ, price, created_at, updated_at FROM tests WHERE id=$1`, id)
	var t domain.DiagnosticTest
	if err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Organ, &t.Price, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTestNotFound
		}
		return nil, err
	}
	return &t, nil
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
