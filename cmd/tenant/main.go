// Package main provides CLI for tenant management.
//
//	tenant register --empresa "ACME" --email admin@acme.com --password secret123
//	tenant list
//	tenant migrate
//	tenant suspend <tenant-id>
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"distripos/internal/bootstrap"
	"distripos/internal/config"
	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	"distripos/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "register":
		registerTenant(ctx)
	case "list":
		listTenants(ctx)
	case "migrate":
		migrate()
	case "suspend":
		setStatus(ctx, tenant.StatusSuspended)
	case "activate":
		setStatus(ctx, tenant.StatusActive)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`distripos tenant management CLI

Usage:
  tenant <command> [options]

Commands:
  register  Register a company with its SUPER_ADMIN
  list      List all tenants
  migrate   Apply db/migrations with goose
  suspend   Suspend a tenant
  activate  Activate a suspended tenant
  help      Show this help

Environment Variables:
  DATABASE_URL   Connection string (required)
  JWT_SECRET     Required by the shared configuration

Examples:
  tenant register --empresa "ACME SRL" --cuit 30-12345678-9 --email admin@acme.com --password secret123
  tenant list
  tenant migrate
  tenant suspend <tenant-uuid>
  tenant activate <tenant-uuid>`)
}

func mustApp(ctx context.Context) *bootstrap.App {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	app, err := bootstrap.New(ctx, cfg, logger.Nop())
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	return app
}

func flags(args []string) map[string]string {
	out := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "--") && i+1 < len(args) {
			out[strings.TrimPrefix(args[i], "--")] = args[i+1]
			i++
		}
	}
	return out
}

func registerTenant(ctx context.Context) {
	f := flags(os.Args[2:])
	reg := tenant.Registration{
		Empresa:       f["empresa"],
		CUIT:          f["cuit"],
		AdminEmail:    f["email"],
		AdminNombre:   f["nombre"],
		AdminPassword: f["password"],
	}
	if reg.Empresa == "" || reg.AdminEmail == "" || reg.AdminPassword == "" {
		fmt.Println("Error: --empresa, --email and --password are required")
		os.Exit(1)
	}

	app := mustApp(ctx)
	defer app.Close()

	fmt.Printf("Registering '%s'...\n", reg.Empresa)
	result, err := app.Services.Auth.RegisterTenant(ctx, reg)
	if err != nil {
		fmt.Printf("Error registering tenant: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Tenant '%s' created successfully!\n", result.Tenant.Name)
	fmt.Printf("  Tenant ID: %s\n", result.Tenant.ID)
	fmt.Printf("  Admin: %s\n", result.Admin.Email)
}

func listTenants(ctx context.Context) {
	app := mustApp(ctx)
	defer app.Close()

	tenants, err := app.Tenants.List(ctx)
	if err != nil {
		fmt.Printf("Error listing tenants: %v\n", err)
		os.Exit(1)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found")
		return
	}

	fmt.Printf("%-36s %-30s %-10s %-20s\n", "TENANT_ID", "NAME", "STATUS", "CREATED")
	fmt.Println(strings.Repeat("-", 99))

	for _, t := range tenants {
		fmt.Printf("%-36s %-30s %-10s %-20s\n",
			t.ID,
			truncate(t.Name, 30),
			t.Status,
			t.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
}

func migrate() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Println("Error: DATABASE_URL is required")
		os.Exit(1)
	}
	cmd := exec.Command("goose", "-dir", "db/migrations", "postgres", dsn, "up")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Printf("  ✗ Failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("  ✓ Done")
}

func setStatus(ctx context.Context, status tenant.Status) {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: tenant %s <tenant-uuid>\n", os.Args[1])
		os.Exit(1)
	}
	tenantID, err := id.Parse(os.Args[2])
	if err != nil {
		fmt.Printf("Error: invalid tenant id %q\n", os.Args[2])
		os.Exit(1)
	}

	app := mustApp(ctx)
	defer app.Close()

	if err := app.Tenants.SetStatus(ctx, tenantID, status); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Tenant '%s' is now %s\n", tenantID, status)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
