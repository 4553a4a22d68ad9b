package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/id"
	"distripos/internal/domain"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/infrastructure/storage/postgres"
)

const (
	customerTable         = "clientes"
	accountMovementsTable = "movimientos_cuenta"
)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[customer.Customer]
}

var _ customer.Repository = (*CustomerRepo)(nil)

func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[customer.Customer](txManager, customerTable, "customer", "nombre", "cuit", "email"),
	}
}

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.insert(ctx, c)
}

// Update leaves saldo_actual to the receivable ledger.
func (r *CustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	return r.update(ctx, c.TenantID, c.ID, c, "saldo_actual")
}

func (r *CustomerRepo) List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*customer.Customer], error) {
	return r.list(ctx, tenantID, filter, "nombre ASC, id ASC")
}

// Delete removes the customer and its settled account history. The service
// only deletes customers with a zero balance.
func (r *CustomerRepo) Delete(ctx context.Context, tenantID, customerID id.ID) error {
	q := r.Builder().
		Delete(accountMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "cliente_id": customerID})
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("delete account movements: %w", err)
	}
	return r.BaseCatalogRepo.Delete(ctx, tenantID, customerID)
}
