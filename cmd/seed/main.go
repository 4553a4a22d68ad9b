// Package main seeds a demo tenant: company, SUPER_ADMIN, categories,
// products, customers and an open cash drawer.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"distripos/internal/bootstrap"
	"distripos/internal/config"
	"distripos/internal/core/apperror"
	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tenant"
	"distripos/internal/core/types"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/documents/sale"
	"distripos/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, log, bootstrap.WithApplicationName("distripos-seed"))
	if err != nil {
		log.Fatalw("failed to connect", "error", err)
	}
	defer app.Close()

	reg, err := app.Services.Auth.RegisterTenant(ctx, tenant.Registration{
		Empresa:       getEnv("SEED_COMPANY", "Distribuidora Demo"),
		CUIT:          getEnv("SEED_CUIT", "30-00000000-0"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@distripos.local"),
		AdminNombre:   "Administrador",
		AdminPassword: getEnv("ADMIN_PASSWORD", "Admin123!"),
	})
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
			log.Infow("admin already exists, nothing to seed")
			return
		}
		log.Fatalw("failed to register tenant", "error", err)
	}
	log.Infow("tenant registered", "tenant_id", reg.Tenant.ID, "admin", reg.Admin.Email)

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		adminCtx := asSuperAdmin(ctx, reg.Tenant.ID, reg.Admin.ID)
		if err := seedDemoData(adminCtx, app, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func asSuperAdmin(ctx context.Context, tenantID, userID id.ID) context.Context {
	role := security.LegacyRole{RoleName: security.LegacySuperAdmin}
	ctx = appctx.WithUser(ctx, &appctx.UserContext{
		UserID:      userID,
		TenantID:    tenantID,
		RoleKind:    role.Kind(),
		RoleName:    role.Name(),
		Permissions: role.Capabilities(),
	})
	return security.WithScope(ctx, security.NewAccessScope(ctx))
}

type demoProduct struct {
	sku, nombre, categoria string
	compra, venta          string
	stock, minimo          int64
}

var demoProducts = []demoProduct{
	{"ALM-001", "Yerba Mate 1kg", "Almacén", "2100", "3200", 120, 20},
	{"ALM-002", "Azúcar 1kg", "Almacén", "850", "1250", 200, 30},
	{"BEB-001", "Gaseosa Cola 2.25L", "Bebidas", "1400", "2300", 90, 24},
	{"BEB-002", "Agua Mineral 1.5L", "Bebidas", "500", "900", 150, 36},
	{"LIM-001", "Lavandina 1L", "Limpieza", "450", "780", 60, 12},
}

func seedDemoData(ctx context.Context, app *bootstrap.App, log *logger.Logger) error {
	svc := app.Services
	tenantID := appctx.GetTenantID(ctx)

	rows := make([]product.ImportRow, 0, len(demoProducts))
	for i, p := range demoProducts {
		stock, minimo := p.stock, p.minimo
		rows = append(rows, product.ImportRow{
			Row:          i + 1,
			SKU:          p.sku,
			Nombre:       p.nombre,
			PrecioCompra: decimal.RequireFromString(p.compra),
			PrecioVenta:  decimal.RequireFromString(p.venta),
			Stock:        &stock,
			StockMinimo:  &minimo,
			Categoria:    p.categoria,
		})
	}
	imported, err := svc.Products.BulkImport(ctx, rows)
	if err != nil {
		return fmt.Errorf("import products: %w", err)
	}
	log.Infow("products seeded", "created", imported.Created, "failed", len(imported.Failed))

	cuenta := customer.NewCustomer(tenantID, "Almacén Don José")
	cuenta.CuentaCorriente = true
	limite := decimal.NewFromInt(50000)
	cuenta.LimiteCredito = &limite
	if err := svc.Customers.Create(ctx, cuenta); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	if err := svc.Customers.Create(ctx, customer.NewCustomer(tenantID, "Consumidor Final")); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	session, err := svc.Cash.Open(ctx, decimal.NewFromInt(10000))
	if err != nil {
		return fmt.Errorf("open cash: %w", err)
	}
	log.Infow("cash session opened", "session_id", session.ID)

	page, err := svc.Products.List(ctx, product.ListFilter{})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(page.Items) == 0 {
		return nil
	}
	s, err := svc.Sales.Register(ctx, sale.Request{
		Items:         []sale.LineItem{{ProductID: page.Items[0].ID, Quantity: 2}},
		PaymentMethod: types.PaymentCash,
	})
	if err != nil {
		return fmt.Errorf("register sale: %w", err)
	}
	log.Infow("demo sale registered", "numero", s.Numero, "total", s.Total.String())
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
