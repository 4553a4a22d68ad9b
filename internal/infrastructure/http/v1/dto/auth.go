package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/tenant"
	"distripos/internal/core/types"
	"distripos/internal/domain/accounting"
	"distripos/internal/domain/auth"
)

// --- Request DTOs ---

// RegisterTenantRequest bootstraps a company and its SUPER_ADMIN.
type RegisterTenantRequest struct {
	Empresa       string `json:"empresa" binding:"required,max=255"`
	CUIT          string `json:"cuit" binding:"max=20"`
	AdminEmail    string `json:"adminEmail" binding:"required,email"`
	AdminNombre   string `json:"adminNombre" binding:"max=255"`
	AdminPassword string `json:"adminPassword" binding:"required,min=8"`
}

func (r *RegisterTenantRequest) ToRegistration() tenant.Registration {
	return tenant.Registration{
		Empresa:       r.Empresa,
		CUIT:          r.CUIT,
		AdminEmail:    r.AdminEmail,
		AdminNombre:   r.AdminNombre,
		AdminPassword: r.AdminPassword,
	}
}

// LoginRequest for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{
		Email:    r.Email,
		Password: r.Password,
	}
}

// RefreshTokenRequest for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RoleRequest creates or updates a tenant role.
type RoleRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Description string   `json:"description" binding:"max=500"`
	Permissions []string `json:"permissions" binding:"required"`
}

func (r *RoleRequest) ToInput() auth.RoleInput {
	return auth.RoleInput{
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
	}
}

// CreateUserRequest adds a user with a legacy role or a tenant role.
type CreateUserRequest struct {
	Email      string  `json:"email" binding:"required,email"`
	Nombre     string  `json:"nombre" binding:"max=255"`
	Password   string  `json:"password" binding:"required,min=8"`
	LegacyRole string  `json:"legacyRole" binding:"omitempty,oneof=SUPER_ADMIN ADMIN ADMINISTRATIVO VENDEDOR"`
	RoleID     *string `json:"roleId" binding:"omitempty,uuid"`
}

func (r *CreateUserRequest) ToInput() (auth.CreateUserInput, error) {
	roleID, err := ParseOptionalID("roleId", r.RoleID)
	if err != nil {
		return auth.CreateUserInput{}, err
	}
	return auth.CreateUserInput{
		Email:      r.Email,
		Nombre:     r.Nombre,
		Password:   r.Password,
		LegacyRole: r.LegacyRole,
		RoleID:     roleID,
	}, nil
}

// --- Response DTOs ---

// LoginResponse is returned by login.
type LoginResponse struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   *auth.User      `json:"user"`
}

// UserListResponse is a page of users.
type UserListResponse struct {
	Items      []auth.User `json:"items"`
	TotalCount int         `json:"totalCount"`
}

// --- Accounting ---

// ExpenseRequest is the body of POST /accounting/expenses.
type ExpenseRequest struct {
	Categoria   string              `json:"categoria" binding:"required,max=120"`
	Descripcion string              `json:"descripcion" binding:"required,max=500"`
	Monto       decimal.Decimal     `json:"monto"`
	MetodoPago  types.PaymentMethod `json:"metodoPago" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA"`
	Comprobante *string             `json:"comprobante" binding:"omitempty,max=120"`
}

func (r *ExpenseRequest) ToInput() accounting.ExpenseInput {
	return accounting.ExpenseInput{
		Categoria:   r.Categoria,
		Descripcion: r.Descripcion,
		Monto:       r.Monto,
		MetodoPago:  r.MetodoPago,
		Comprobante: r.Comprobante,
	}
}

// TaxRequest is the body of POST /accounting/taxes.
type TaxRequest struct {
	Tipo       accounting.TaxType      `json:"tipo" binding:"required,oneof=RETENCION PERCEPCION"`
	Monto      decimal.Decimal         `json:"monto"`
	Operacion  accounting.TaxOperation `json:"operacion" binding:"required,oneof=SUFRIDA PRACTICADA"`
	Referencia *string                 `json:"referencia" binding:"omitempty,max=255"`
}

func (r *TaxRequest) ToInput() accounting.TaxInput {
	return accounting.TaxInput{
		Tipo:       r.Tipo,
		Monto:      r.Monto,
		Operacion:  r.Operacion,
		Referencia: r.Referencia,
	}
}

// SummaryQuery selects the month of GET /accounting/summary (YYYY-MM).
type SummaryQuery struct {
	Month string `form:"month" binding:"omitempty,datetime=2006-01"`
}

func (q SummaryQuery) Time() time.Time {
	if q.Month == "" {
		return time.Time{}
	}
	t, _ := time.Parse("2006-01", q.Month)
	return t
}

// DashboardQuery bounds GET /reports/dashboard.
type DashboardQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// Range returns the half-open interval; a date "to" covers that whole day.
func (q DashboardQuery) Range() (time.Time, time.Time) {
	var from, to time.Time
	if q.From != nil {
		from = q.From.UTC()
	}
	if q.To != nil {
		to = q.To.UTC().AddDate(0, 0, 1)
	}
	return from, to
}
