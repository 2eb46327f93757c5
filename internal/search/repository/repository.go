package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"knowledge-hub/internal/search/domain"
)

type Repository interface {
	Create(ctx context.Context, entry domain.Entry) (domain.Entry, error)
	Search(ctx context.Context, query string, limit, offset int) ([]domain.Entry, int, error)
	CountAll(ctx context.Context) (int64, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, entry domain.Entry) (domain.Entry, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO entries (id, title, content, url, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, title, content, url, created_by, created_at`,
		entry.ID,
		entry.Title,
		entry.Content,
		entry.URL,
		entry.CreatedBy,
	)

	var created domain.Entry
	err := row.Scan(
		&created.ID,
		&created.Title,
		&created.Content,
		&created.URL,
		&created.CreatedBy,
		&created.CreatedAt,
	)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("failed to create entry: %w", err)
	}
	return created, nil
}

// Search runs a full-text match over title and content, newest first, and
// returns the page plus the total number of matches.
func (r *PgRepository) Search(ctx context.Context, query string, limit, offset int) ([]domain.Entry, int, error) {
	var total int
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*)
		 FROM entries
		 WHERE to_tsvector('english', title || ' ' || content) @@ plainto_tsquery('english', $1)`,
		query,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count entries: %w", err)
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, title, content, url, created_by, created_at
		 FROM entries
		 WHERE to_tsvector('english', title || ' ' || content) @@ plainto_tsquery('english', $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		query,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.URL, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", rows.Err())
	}

	return entries, total, nil
}

func (r *PgRepository) CountAll(ctx context.Context) (int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM entries`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return total, nil
}
