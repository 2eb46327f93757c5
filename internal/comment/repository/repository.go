package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"knowledge-hub/internal/comment/domain"
)

type Repository interface {
	Create(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Comment, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Create commits the comment and reads back the store-assigned timestamp and
// the author name in one statement, so the returned value is exactly what was
// committed.
func (r *PgRepository) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	row := r.pool.QueryRow(
		ctx,
		`WITH inserted AS (
			INSERT INTO comments (id, workspace_id, author_id, content)
			VALUES ($1, $2, $3, $4)
			RETURNING id, workspace_id, author_id, content, created_at
		 )
		 SELECT i.id, i.workspace_id, i.author_id, u.name, i.content, i.created_at
		 FROM inserted i
		 JOIN users u ON u.id = i.author_id`,
		comment.ID,
		comment.WorkspaceID,
		comment.AuthorID,
		comment.Content,
	)

	var created domain.Comment
	err := row.Scan(
		&created.ID,
		&created.WorkspaceID,
		&created.AuthorID,
		&created.AuthorName,
		&created.Content,
		&created.CreatedAt,
	)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("failed to create comment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT c.id, c.workspace_id, c.author_id, u.name, c.content, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.workspace_id = $1
		 ORDER BY c.created_at ASC, c.id ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows iteration error: %w", rows.Err())
	}

	return comments, nil
}
