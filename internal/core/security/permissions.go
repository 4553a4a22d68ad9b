// Package security provides authorization: the capability catalog, the user
// role representation and the per-request access scope.
package security

// Capability keys. AdminAll grants every capability.
const (
	AdminAll = "admin:all"

	StockView     = "fil:ver"
	ProductCreate = "inv:crear"
	ProductEdit   = "inv:editar"
	ProductDelete = "inv:eliminar"
	StockAdjust   = "inv:ajustar"

	ReportsView = "rep:ver"

	SalesAccess   = "vta:acceso"
	SalesCharge   = "vta:cobrar"
	SalesDiscount = "vta:descuento"
	SalesVoid     = "vta:anular"

	CashView     = "caja:ver"
	CashOpen     = "caja:apertura"
	CashMovement = "caja:ingreso"

	CustomerView    = "cli:ver"
	CustomerEdit    = "cli:crear"
	CustomerDelete  = "cli:eliminar"
	CustomerAccount = "cli:ctacte"

	AccountingView   = "cont:ver"
	AccountingRecord = "cont:registrar"

	ConfigUsers   = "cfg:usuarios"
	ConfigCompany = "cfg:empresa"
	ConfigSystem  = "cfg:sistema"
)

// PermissionGroup is one section of the catalog shown on role screens.
type PermissionGroup struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Actions []Action `json:"actions"`
}

type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Catalog lists every capability a dynamic role may hold.
var Catalog = []PermissionGroup{
	{Key: "INVENTARIO", Label: "Inventario y Productos", Actions: []Action{
		{StockView, "Ver Stock"},
		{ProductCreate, "Crear Productos"},
		{ProductEdit, "Editar Productos"},
		{ProductDelete, "Eliminar Productos"},
		{StockAdjust, "Ajuste de Stock Manual"},
	}},
	{Key: "REPORTES", Label: "Reportería", Actions: []Action{
		{ReportsView, "Ver Gráficos y Estadísticas"},
	}},
	{Key: "VENTAS", Label: "Punto de Venta", Actions: []Action{
		{SalesAccess, "Acceso al POS"},
		{SalesCharge, "Realizar Cobros"},
		{SalesDiscount, "Aplicar Descuentos Manuales"},
		{SalesVoid, "Anular Ventas"},
	}},
	{Key: "CAJA", Label: "Gestión de Caja", Actions: []Action{
		{CashView, "Ver Movimientos"},
		{CashOpen, "Abrir/Cerrar Caja"},
		{CashMovement, "Registrar Ingresos/Egresos"},
	}},
	{Key: "CLIENTES", Label: "Clientes", Actions: []Action{
		{CustomerView, "Ver Listado"},
		{CustomerEdit, "Crear/Editar Clientes"},
		{CustomerDelete, "Eliminar Clientes"},
		{CustomerAccount, "Gestionar Cta. Cte."},
	}},
	{Key: "CONTABILIDAD", Label: "Contabilidad", Actions: []Action{
		{AccountingView, "Ver Proyecciones e Impuestos"},
		{AccountingRecord, "Registrar Gastos e Impuestos"},
	}},
	{Key: "CONFIGURACION", Label: "Administración", Actions: []Action{
		{ConfigUsers, "Gestionar Usuarios y Roles"},
		{ConfigCompany, "Editar Datos de Empresa"},
		{ConfigSystem, "Configuración Técnica"},
	}},
}

var known = func() map[string]struct{} {
	m := map[string]struct{}{AdminAll: {}}
	for _, g := range Catalog {
		for _, a := range g.Actions {
			m[a.Key] = struct{}{}
		}
	}
	return m
}()

// IsKnown reports whether key is in the catalog (AdminAll included).
func IsKnown(key string) bool {
	_, ok := known[key]
	return ok
}

// HasPermission is the plain set check with the AdminAll override.
func HasPermission(permissions []string, key string) bool {
	for _, p := range permissions {
		if p == AdminAll || p == key {
			return true
		}
	}
	return false
}
