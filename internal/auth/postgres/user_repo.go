// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/authgate/internal/auth"
)

const userColumns = `id, email, password_hash, first_name, last_name,
		       session_id, reset_token, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			session_id, reset_token, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.SessionID,
		user.ResetToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.With("email", user.Email).Wrap(auth.ErrUserAlreadyExists)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return r.findOne(ctx, "id", id)
}

// FindByEmail retrieves a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindBySessionID retrieves the user holding a session-field id.
func (r *UserRepository) FindBySessionID(ctx context.Context, sessionID string) (*auth.User, error) {
	return r.findOne(ctx, "session_id", sessionID)
}

// FindByResetToken retrieves the user holding a reset token.
func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*auth.User, error) {
	return r.findOne(ctx, "reset_token", token)
}

// findOne looks a user up by equality on column, which must be a trusted
// identifier.
func (r *UserRepository) findOne(ctx context.Context, column, value string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE `+column+` = $1
		ORDER BY created_at, id
		LIMIT 1
	`, value)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user by "+column).
			Wrap(err)
	}
	return user, nil
}

// Update saves every mutable field of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET
			email = $2,
			password_hash = $3,
			first_name = $4,
			last_name = $5,
			session_id = $6,
			reset_token = $7,
			updated_at = $8
		WHERE id = $1
	`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.SessionID,
		user.ResetToken,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.With("email", user.Email).Wrap(auth.ErrUserAlreadyExists)
	}
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("user_id", user.ID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_UPDATE_FAILED").
			With("user_id", user.ID).
			Wrap(auth.ErrUserNotFound)
	}
	return nil
}

// SetResetToken writes only the reset_token column of userID.
func (r *UserRepository) SetResetToken(ctx context.Context, userID string, token *string) error {
	return r.setColumn(ctx, "set reset token", `
		UPDATE users SET reset_token = $2, updated_at = now() WHERE id = $1
	`, userID, token)
}

// SetSessionID writes only the session_id column of userID.
func (r *UserRepository) SetSessionID(ctx context.Context, userID string, sessionID *string) error {
	return r.setColumn(ctx, "set session id", `
		UPDATE users SET session_id = $2, updated_at = now() WHERE id = $1
	`, userID, sessionID)
}

// ReplacePasswordHash swaps the hash only while the row still holds currentHash.
func (r *UserRepository) ReplacePasswordHash(ctx context.Context, userID, currentHash, newHash string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $3, updated_at = now()
		WHERE id = $1 AND password_hash = $2
	`, userID, currentHash, newHash)
	if err != nil {
		return false, oops.Code("USER_UPDATE_FAILED").
			With("operation", "replace password hash").
			With("user_id", userID).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) setColumn(ctx context.Context, operation, query, userID string, value *string) error {
	tag, err := r.db.Exec(ctx, query, userID, value)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("user_id", userID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_UPDATE_FAILED").
			With("user_id", userID).
			Wrap(auth.ErrUserNotFound)
	}
	return nil
}

// Search returns users matching filter ordered by creation time.
func (r *UserRepository) Search(ctx context.Context, filter auth.UserFilter) ([]*auth.User, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	add("email", filter.Email)
	add("session_id", filter.SessionID)
	add("reset_token", filter.ResetToken)

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("USER_SEARCH_FAILED").
			With("operation", "query users").
			Wrap(err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_SEARCH_FAILED").
				With("operation", "scan user").
				Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_SEARCH_FAILED").
			With("operation", "iterate users").
			Wrap(err)
	}
	return users, nil
}

// RedeemResetToken replaces the password hash and clears the token in one
// statement, so concurrent redemptions of the same token succeed at most once.
func (r *UserRepository) RedeemResetToken(ctx context.Context, token, passwordHash string) (bool, error) {
	if token == "" {
		return false, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, updated_at = now()
		WHERE reset_token = $1
	`, token, passwordHash)
	if err != nil {
		return false, oops.Code("USER_RESET_REDEEM_FAILED").
			With("operation", "redeem reset token").
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.SessionID,
		&u.ResetToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
