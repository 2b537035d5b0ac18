package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/model"
	"github.com/sakif/paper-digest/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// uniqueViolation is the SQLSTATE for a UNIQUE constraint failure.
const uniqueViolation = "23505"

var userColumns = []string{"id", "name", "email", "password_hash", "created_at"}

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	sqlStr, args, err := db.qb().Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("postgres: building insert: %w", err)
	}

	start := time.Now()
	if _, err := db.pool.Exec(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email already registered")
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}

	db.logger.Debug("postgres: user created",
		slog.String("userID", user.ID),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, sq.Eq{"email": email}, email)
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, sq.Eq{"id": id}, id)
}

func (db *DB) getUser(ctx context.Context, where sq.Eq, key string) (*model.User, error) {
	sqlStr, args, err := db.qb().Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: building select: %w", err)
	}

	var u model.User
	err = db.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("postgres: getting user: %w", err)
	}

	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
