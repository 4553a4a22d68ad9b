package memory

import (
	"context"
	"time"

	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/domain/accounting"
	"distripos/internal/domain/auth"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/reconciliation"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/domain/registers/stock"
	"distripos/internal/domain/reports"
)

// Services is the full service graph over one store, wired the way
// cmd/server wires it over postgres.
type Services struct {
	Store       *Store
	Invalidator *Invalidations
	Locker      *Locker

	Ledger         *stock.Ledger
	References     *reference.Service
	Products       *product.Service
	Customers      *customer.Service
	Cash           *cash.Service
	Receivable     *receivable.Service
	Sales          *sale.Service
	Reports        *reports.Service
	Accounting     *accounting.Service
	Reconciliation *reconciliation.Service
	Auth           *auth.Service
	JWT            *auth.JWTService
}

// NewServices builds every service over a fresh store.
func NewServices() *Services {
	s := New()
	txm := s.TxManager()
	inv := &Invalidations{}
	locker := NewLocker()

	ledger := stock.NewLedger(s.Stock())
	refs := reference.NewService(s.References(), txm)
	cashSvc := cash.NewService(cash.ServiceConfig{
		Repo:        s.Cash(),
		TxManager:   txm,
		Locker:      locker,
		Publisher:   s.Publisher(),
		Audit:       s.Auditor(),
		Invalidator: inv,
	})
	recv := receivable.NewService(s.Receivables(), cashSvc, txm, s.Publisher(), inv)
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	authCfg := auth.DefaultServiceConfig()
	authCfg.BcryptCost = 4

	return &Services{
		Store:       s,
		Invalidator: inv,
		Locker:      locker,
		Ledger:      ledger,
		References:  refs,
		Products: product.NewService(product.ServiceConfig{
			Repo:               s.Products(),
			Ledger:             ledger,
			References:         refs,
			TxManager:          txm,
			Audit:              s.Auditor(),
			Invalidator:        inv,
			ImportChunkSize:    100,
			ImportChunkTimeout: time.Minute,
		}),
		Customers:  customer.NewService(s.Customers(), txm, s.Auditor(), inv),
		Cash:       cashSvc,
		Receivable: recv,
		Sales: sale.NewService(sale.ServiceConfig{
			Repo:        s.Sales(),
			Products:    s.Products(),
			Customers:   s.Customers(),
			Stock:       ledger,
			Cash:        cashSvc,
			Receivable:  recv,
			Numberer:    s,
			TxManager:   txm,
			Publisher:   s.Publisher(),
			Audit:       s.Auditor(),
			Invalidator: inv,
		}),
		Reports:        reports.NewService(s.Reports(), nil),
		Accounting:     accounting.NewService(s.Accounting(), txm, s.Auditor(), inv),
		Reconciliation: reconciliation.NewService(s.Reconciliation(), txm),
		Auth: auth.NewService(auth.Repositories{
			Tenants: s.Tenants(),
			Users:   s.Users(),
			Roles:   s.Roles(),
			Tokens:  s.Tokens(),
		}, txm, jwtSvc, s.Auditor(), authCfg),
		JWT: jwtSvc,
	}
}

// As returns a context authenticated as a new user of tenantID holding role.
func As(ctx context.Context, tenantID id.ID, role security.Role) context.Context {
	return AsUser(ctx, tenantID, id.New(), role)
}

// AsUser is As with a fixed user id.
func AsUser(ctx context.Context, tenantID, userID id.ID, role security.Role) context.Context {
	user := &appctx.UserContext{
		UserID:      userID,
		TenantID:    tenantID,
		RoleKind:    role.Kind(),
		RoleName:    role.Name(),
		Permissions: role.Capabilities(),
	}
	ctx = appctx.WithUser(ctx, user)
	return security.WithScope(ctx, security.NewAccessScope(ctx))
}

// Legacy is a shorthand for security.LegacyRole.
func Legacy(name string) security.Role {
	return security.LegacyRole{RoleName: name}
}

// Dynamic is a shorthand for a tenant role holding permissions.
func Dynamic(name string, permissions ...string) security.Role {
	return security.DynamicRole{ID: id.New(), RoleName: name, Permissions: permissions}
}
