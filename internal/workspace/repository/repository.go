package repository

import (
	"context"
	"errors"
	"fmt"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/workspace/domain"
)

// Repository reads workspace membership. The collaboration core never
// mutates workspaces; membership is authoritative here, not in token claims.
type Repository interface {
	ListByMember(ctx context.Context, userID string) ([]domain.Workspace, error)
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)
	FindByID(ctx context.Context, id string) (domain.Workspace, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) ListByMember(ctx context.Context, userID string) ([]domain.Workspace, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT w.id, w.name, w.created_at
		 FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE m.user_id = $1
		 ORDER BY w.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, w)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows iteration error: %w", rows.Err())
	}

	return workspaces, nil
}

func (r *PgRepository) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS (
			SELECT 1 FROM workspace_members
			WHERE workspace_id = $1 AND user_id = $2
		 )`,
		workspaceID,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check workspace membership: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id string) (domain.Workspace, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, name, created_at FROM workspaces WHERE id = $1`,
		id,
	)

	var w domain.Workspace
	if err := row.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Workspace{}, commonerrors.ErrWorkspaceNotFound
		}
		return domain.Workspace{}, fmt.Errorf("failed to find workspace: %w", err)
	}
	return w, nil
}
