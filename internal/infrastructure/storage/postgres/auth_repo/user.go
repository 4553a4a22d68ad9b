package auth_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain/auth"
	"distripos/internal/infrastructure/storage/postgres"
)

// usersEmailUnique is the unique index on lower(email).
const usersEmailUnique = "users_email_key"

const userColumns = `
	id, tenant_id, email, password_hash, nombre, legacy_role, role_id, is_active,
	last_login_at, failed_login_attempts, locked_until, created_at, updated_at
`

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *postgres.TxManager
}

var _ auth.UserRepository = (*UserRepo)(nil)

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

func scanUser(row pgx.Row, user *auth.User) error {
	return row.Scan(
		&user.ID, &user.TenantID, &user.Email, &user.PasswordHash, &user.Nombre,
		&user.LegacyRole, &user.RoleID, &user.IsActive,
		&user.LastLoginAt, &user.FailedLoginAttempts, &user.LockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		user.ID, user.TenantID, user.Email, user.PasswordHash, user.Nombre,
		user.LegacyRole, user.RoleID, user.IsActive,
		user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, usersEmailUnique) {
			return apperror.NewDuplicate("user", "email", user.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, tenantID, userID id.ID) (*auth.User, error) {
	var user auth.User
	err := scanUser(r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, userID), &user)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// GetByEmail looks across tenants; login does not name one.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	var user auth.User
	err := scanUser(r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower($1)
	`, email), &user)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return &user, nil
}

// UpdateLoginState writes the lockout counters and last login.
func (r *UserRepo) UpdateLoginState(ctx context.Context, user *auth.User) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE users SET
			failed_login_attempts = $3,
			locked_until = $4,
			last_login_at = $5,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, user.TenantID, user.ID, user.FailedLoginAttempts, user.LockedUntil, user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", user.ID.String())
	}
	return nil
}

// List returns users ordered by email with the total matching count.
func (r *UserRepo) List(ctx context.Context, tenantID id.ID, filter auth.UserFilter) ([]auth.User, int, error) {
	querier := r.txManager.GetQuerier(ctx)

	where := "tenant_id = $1"
	args := []any{tenantID}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where += " AND (email ILIKE $2 OR nombre ILIKE $2)"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := querier.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := "SELECT " + userColumns + " FROM users WHERE " + where + " ORDER BY email"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		var user auth.User
		if err := scanUser(rows, &user); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return users, total, nil
}

// CountWithRole counts users assigned to roleID.
func (r *UserRepo) CountWithRole(ctx context.Context, tenantID, roleID id.ID) (int, error) {
	var n int
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND role_id = $2
	`, tenantID, roleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users with role: %w", err)
	}
	return n, nil
}
