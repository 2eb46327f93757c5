package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"knowledge-hub/internal/account/domain"
	commonerrors "knowledge-hub/internal/common/errors"
)

type Repository interface {
	Create(ctx context.Context, user domain.User) error
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	UpdateProfile(ctx context.Context, id domain.ID, name, email string) (domain.User, error)
	TouchLastActive(ctx context.Context, id domain.ID, at time.Time) error
	CountAll(ctx context.Context) (int64, error)
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, is_admin, last_active, created_at`

func (r *PgRepository) Create(ctx context.Context, user domain.User) error {
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, name, email, password_hash, is_admin, last_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(user.ID),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Admin,
		user.LastActive,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return commonerrors.ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row, "find user by email")
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		string(id),
	)
	return scanUser(row, "find user by id")
}

func (r *PgRepository) UpdateProfile(ctx context.Context, id domain.ID, name, email string) (domain.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE users SET name = $2, email = $3 WHERE id = $1
		 RETURNING `+userColumns,
		string(id),
		name,
		email,
	)
	user, err := scanUser(row, "update user profile")
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, commonerrors.ErrEmailAlreadyExists
		}
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) TouchLastActive(ctx context.Context, id domain.ID, at time.Time) error {
	_, err := r.pool.Exec(
		ctx,
		`UPDATE users SET last_active = $2 WHERE id = $1`,
		string(id),
		at,
	)
	if err != nil {
		return fmt.Errorf("failed to update last_active: %w", err)
	}
	return nil
}

func (r *PgRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *PgRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM users WHERE last_active >= $1`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row, operation string) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Admin,
		&user.LastActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, commonerrors.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to %s: %w", operation, err)
	}
	return user, nil
}
