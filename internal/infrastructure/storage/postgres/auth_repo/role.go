package auth_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain/auth"
	"distripos/internal/infrastructure/storage/postgres"
)

// rolesNameUnique is the unique index on (tenant_id, lower(name)).
const rolesNameUnique = "roles_tenant_name_key"

// RoleRepo implements auth.RoleRepository. Permission keys are stored in a
// text[] column so a role loads in one row.
type RoleRepo struct {
	txManager *postgres.TxManager
}

var _ auth.RoleRepository = (*RoleRepo)(nil)

// NewRoleRepo creates a new role repository.
func NewRoleRepo(txManager *postgres.TxManager) *RoleRepo {
	return &RoleRepo{txManager: txManager}
}

func scanRole(row pgx.Row, role *auth.Role) error {
	return row.Scan(
		&role.ID, &role.TenantID, &role.Name, &role.Description,
		&role.Permissions, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt,
	)
}

// Create creates a new role.
func (r *RoleRepo) Create(ctx context.Context, role *auth.Role) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO roles (id, tenant_id, name, description, permissions, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, role.ID, role.TenantID, role.Name, role.Description, role.Permissions, role.IsSystem, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, rolesNameUnique) {
			return apperror.NewDuplicate("role", "name", role.Name)
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// GetByID retrieves role by ID.
func (r *RoleRepo) GetByID(ctx context.Context, tenantID, roleID id.ID) (*auth.Role, error) {
	var role auth.Role
	err := scanRole(r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT id, tenant_id, name, description, permissions, is_system, created_at, updated_at
		FROM roles
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, roleID), &role)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("role", roleID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query role: %w", err)
	}
	return &role, nil
}

// Update updates role details and permissions.
func (r *RoleRepo) Update(ctx context.Context, role *auth.Role) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE roles SET name = $3, description = $4, permissions = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2
	`, role.TenantID, role.ID, role.Name, role.Description, role.Permissions, role.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, rolesNameUnique) {
			return apperror.NewDuplicate("role", "name", role.Name)
		}
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("role", role.ID.String())
	}
	return nil
}

// Delete deletes a role.
func (r *RoleRepo) Delete(ctx context.Context, tenantID, roleID id.ID) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM roles WHERE tenant_id = $1 AND id = $2
	`, tenantID, roleID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewConflict("role is assigned to users").WithDetail("role_id", roleID)
		}
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("role", roleID.String())
	}
	return nil
}

// List returns the tenant's roles by name.
func (r *RoleRepo) List(ctx context.Context, tenantID id.ID) ([]auth.Role, error) {
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, tenant_id, name, description, permissions, is_system, created_at, updated_at
		FROM roles
		WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := scanRole(rows, &role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
