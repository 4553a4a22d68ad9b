// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	"distripos/internal/domain/auth"
	"distripos/internal/infrastructure/storage/postgres"
)

// TenantRepo implements auth.TenantRepository.
type TenantRepo struct {
	txManager *postgres.TxManager
}

var _ auth.TenantRepository = (*TenantRepo)(nil)

// NewTenantRepo creates a new tenant repository.
func NewTenantRepo(txManager *postgres.TxManager) *TenantRepo {
	return &TenantRepo{txManager: txManager}
}

// Create creates a new tenant.
func (r *TenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO tenants (id, name, status, created_at)
		VALUES ($1, $2, $3, $4)
	`, t.ID, t.Name, t.Status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByID retrieves tenant by ID.
func (r *TenantRepo) GetByID(ctx context.Context, tenantID id.ID) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT id, name, status, created_at
		FROM tenants
		WHERE id = $1
	`, tenantID).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("tenant", tenantID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant: %w", err)
	}
	return &t, nil
}

// SetStatus suspends or reactivates a tenant.
func (r *TenantRepo) SetStatus(ctx context.Context, tenantID id.ID, status tenant.Status) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE tenants SET status = $2 WHERE id = $1
	`, tenantID, status)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("tenant", tenantID.String())
	}
	return nil
}

// List returns every tenant, oldest first.
func (r *TenantRepo) List(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, name, status, created_at FROM tenants ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var out []tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateCompanyConfig stores the fiscal data of a tenant, replacing any previous row.
func (r *TenantRepo) CreateCompanyConfig(ctx context.Context, cfg *tenant.CompanyConfig) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO configuracion_empresa (
			tenant_id, razon_social, cuit, direccion, alicuota_iibb, alicuota_ley_cheque, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			razon_social = EXCLUDED.razon_social,
			cuit = EXCLUDED.cuit,
			direccion = EXCLUDED.direccion,
			alicuota_iibb = EXCLUDED.alicuota_iibb,
			alicuota_ley_cheque = EXCLUDED.alicuota_ley_cheque,
			updated_at = EXCLUDED.updated_at
	`, cfg.TenantID, cfg.RazonSocial, cfg.CUIT, cfg.Direccion, cfg.AlicuotaIIBB, cfg.AlicuotaLeyCheque, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert company config: %w", err)
	}
	return nil
}
