package registry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ats-job-pipeline/internal/models"
)

// PostgresSource reads the company list from a companies table, so
// several operators can share one registry.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

func (p *PostgresSource) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the companies table when it does not exist yet.
func (p *PostgresSource) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS companies (
			slug         TEXT NOT NULL,
			ats          TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			active       BOOLEAN NOT NULL DEFAULT TRUE,
			PRIMARY KEY (ats, slug)
		)`)
	if err != nil {
		return fmt.Errorf("ensure companies table: %w", err)
	}
	return nil
}

func (p *PostgresSource) Companies(ctx context.Context) ([]models.Company, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT ats, slug, display_name FROM companies WHERE active ORDER BY ats, slug`)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ATS, &c.Slug, &c.DisplayName); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	if err := validate(companies); err != nil {
		return nil, err
	}
	return companies, nil
}
