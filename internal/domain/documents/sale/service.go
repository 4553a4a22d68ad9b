package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"distripos/internal/core/apperror"
	"distripos/internal/core/entity"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tx"
	"distripos/internal/core/types"
	"distripos/internal/domain"
	"distripos/internal/domain/audit"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/events"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/domain/registers/stock"
	"distripos/pkg/logger"
)

var tracer = otel.Tracer("distripos/sale")

// ProductReader loads the authoritative product rows of a checkout.
type ProductReader interface {
	GetByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*product.Product, error)
}

// CustomerReader loads the customer of a checkout.
type CustomerReader interface {
	GetByID(ctx context.Context, tenantID, customerID id.ID) (*customer.Customer, error)
}

// ServiceConfig wires the sale orchestrator. Publisher, Audit and
// Invalidator are optional.
type ServiceConfig struct {
	Repo        Repository
	Products    ProductReader
	Customers   CustomerReader
	Stock       *stock.Ledger
	Cash        *cash.Service
	Receivable  *receivable.Service
	Numberer    Numberer
	TxManager   tx.Manager
	Publisher   events.Publisher
	Audit       audit.Recorder
	Invalidator events.Invalidator
}

// Service is the sale orchestrator.
type Service struct {
	repo        Repository
	products    ProductReader
	customers   CustomerReader
	stock       *stock.Ledger
	cash        *cash.Service
	receivable  *receivable.Service
	numberer    Numberer
	txManager   tx.Manager
	publisher   events.Publisher
	audit       audit.Recorder
	invalidator events.Invalidator
	now         func() time.Time
}

// NewService creates the sale orchestrator.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:        cfg.Repo,
		products:    cfg.Products,
		customers:   cfg.Customers,
		stock:       cfg.Stock,
		cash:        cfg.Cash,
		receivable:  cfg.Receivable,
		numberer:    cfg.Numberer,
		txManager:   cfg.TxManager,
		publisher:   cfg.Publisher,
		audit:       cfg.Audit,
		invalidator: cfg.Invalidator,
		now:         time.Now,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.invalidator == nil {
		s.invalidator = events.NopInvalidator{}
	}
	return s
}

// invalidatedScopes are dropped after a sale or void commits.
var invalidatedScopes = []string{events.ScopeSales, events.ScopeInventory, events.ScopeCash, events.ScopeDashboard}

// Register prices and persists a checkout. Stock, the cash drawer and the
// customer's account change in the same transaction as the sale, or not at
// all. A request repeating an idempotency key returns the original sale.
func (s *Service) Register(ctx context.Context, req Request) (_ *Sale, err error) {
	ctx, span := tracer.Start(ctx, "sale.register", trace.WithAttributes(
		attribute.String("sale.payment_method", string(req.PaymentMethod)),
		attribute.Int("sale.lines", len(req.Items)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	scope, err := security.Authorize(ctx, "")
	if err != nil {
		return nil, err
	}
	if err := scope.RequireLegacyRoleOr(security.SalesCharge,
		security.LegacyAdmin, security.LegacyAdministrativo, security.LegacyVendedor); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant.id", scope.TenantID.String()))

	if err := req.Validate(ctx); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, scope.TenantID, req.IdempotencyKey)
		if err == nil {
			span.SetAttributes(attribute.Bool("sale.replay", true))
			logger.Info(ctx, "sale replayed by idempotency key", "sale_id", existing.ID)
			return existing, nil
		}
		if !apperror.IsNotFound(err) {
			return nil, err
		}
	}

	sale, err := s.prepare(ctx, scope, req)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.persist(ctx, sale)
	})
	if err != nil {
		if req.IdempotencyKey != "" && isIdempotencyConflict(err) {
			// A concurrent request with the same key won the race.
			original, rerr := s.repo.GetByIdempotencyKey(ctx, scope.TenantID, req.IdempotencyKey)
			if rerr == nil {
				return original, nil
			}
			return nil, rerr
		}
		return nil, err
	}

	logger.Info(ctx, "sale registered",
		"sale_id", sale.ID,
		"numero", sale.Numero,
		"total", sale.Total.String(),
		"metodo_pago", sale.MetodoPago,
	)
	s.invalidate(ctx, scope.TenantID)
	return sale, nil
}

// prepare resolves products and customer, checks policies and prices the
// lines. Nothing is written.
func (s *Service) prepare(ctx context.Context, scope *security.AccessScope, req Request) (*Sale, error) {
	products, err := s.products.GetByIDs(ctx, scope.TenantID, req.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	if len(products) != len(req.Items) {
		return nil, apperror.NewInvalidReference("product", "one or more products do not exist").
			WithDetail("requested", len(req.Items)).
			WithDetail("found", len(products))
	}
	byID := make(map[id.ID]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var cust *customer.Customer
	if req.CustomerID != nil {
		cust, err = s.customers.GetByID(ctx, scope.TenantID, *req.CustomerID)
		if apperror.IsNotFound(err) {
			return nil, apperror.NewInvalidReference("customer", "customer does not exist").
				WithDetail("customer_id", *req.CustomerID)
		}
		if err != nil {
			return nil, fmt.Errorf("load customer: %w", err)
		}
	}

	if req.PaymentMethod == types.PaymentAccount {
		if cust == nil {
			return nil, apperror.NewPolicyViolation("account sales need a customer with a running account")
		}
		if !cust.CuentaCorriente {
			return nil, apperror.NewPolicyViolation("customer is not enabled for account sales").
				WithDetail("customer_id", cust.ID)
		}
	}

	discount := types.Zero()
	if cust != nil {
		discount = cust.DescuentoEspecial
	}

	inputs := make([]PriceInput, len(req.Items))
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, apperror.NewInvalidReference("product", "one or more products do not exist").
				WithDetail("product_id", item.ProductID)
		}
		// Fast-fail on the snapshot; the conditional decrement decides.
		if item.Quantity > p.StockActual {
			return nil, apperror.NewInsufficientStock(p.ID.String(), item.Quantity, p.StockActual)
		}
		inputs[i] = PriceInput{BasePrice: p.PrecioVenta, TaxRate: p.TasaIva, Quantity: item.Quantity}
	}
	priced, total := PriceLines(inputs, discount)

	if req.PaymentMethod == types.PaymentAccount && cust.ExceedsCredit(total) {
		return nil, apperror.NewPolicyViolation("sale exceeds the customer's credit limit").
			WithDetail("customer_id", cust.ID).
			WithDetail("saldo_actual", cust.SaldoActual.String()).
			WithDetail("limite_credito", cust.LimiteCredito.String()).
			WithDetail("total", total.String())
	}

	now := s.now()
	sale := &Sale{
		TenantEntity: entity.NewTenantEntity(scope.TenantID),
		Fecha:        now,
		Total:        total,
		MetodoPago:   req.PaymentMethod,
		Estado:       StatusCompleted,
		ClienteID:    req.CustomerID,
		UsuarioID:    scope.UserID,
		Lines:        make([]Line, len(req.Items)),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		sale.IdempotencyKey = &key
	}
	sale.Touch(now)

	for i, item := range req.Items {
		sale.Lines[i] = Line{
			ID:             id.New(),
			TenantID:       scope.TenantID,
			VentaID:        sale.ID,
			ProductoID:     item.ProductID,
			Cantidad:       item.Quantity,
			PrecioUnitario: priced[i].UnitPrice,
			Subtotal:       priced[i].Subtotal,
			ProductoNombre: byID[item.ProductID].Nombre,
		}
	}
	return sale, nil
}

// persist runs inside the transaction.
func (s *Service) persist(ctx context.Context, sale *Sale) error {
	numero, err := s.numberer.NextSaleNumber(ctx, sale.TenantID, sale.Fecha)
	if err != nil {
		return fmt.Errorf("sale number: %w", err)
	}
	sale.Numero = numero

	if err := s.repo.Create(ctx, sale); err != nil {
		return err
	}

	ref := sale.ID.String()
	lines := make([]stock.Line, len(sale.Lines))
	for i, l := range sale.Lines {
		lines[i] = stock.Line{ProductID: l.ProductoID, Delta: -l.Cantidad}
	}
	if _, err := s.stock.Post(ctx, stock.Posting{
		TenantID:   sale.TenantID,
		Tipo:       stock.TypeSale,
		Referencia: &ref,
		Notas:      "Venta registrada: " + ref,
		Lines:      lines,
	}); err != nil {
		return err
	}

	switch sale.MetodoPago {
	case types.PaymentCash:
		if _, err := s.cash.RecordLinked(ctx, sale.TenantID, cash.Ingress, sale.Total,
			"Venta #"+id.Short(sale.ID), ref); err != nil {
			return err
		}
	case types.PaymentAccount:
		if _, err := s.receivable.Debit(ctx, sale.TenantID, *sale.ClienteID, sale.Total,
			"Venta "+sale.Numero, ref); err != nil {
			return err
		}
	}

	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: "sale",
		EntityID:   sale.ID,
		Action:     audit.ActionCreate,
		Changes: map[string]any{
			"numero": sale.Numero,
			"total":  sale.Total.String(),
			"metodo": string(sale.MetodoPago),
		},
	}); err != nil {
		return err
	}

	return s.publish(ctx, sale, events.SaleRegistered)
}

// Void cancels a sale with compensating entries: stock comes back, cash is
// paid out of the open session and account sales are credited.
func (s *Service) Void(ctx context.Context, req VoidRequest) (_ *Sale, err error) {
	ctx, span := tracer.Start(ctx, "sale.void")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	scope, err := security.Authorize(ctx, security.SalesVoid)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Anulación"
	}

	var voided *Sale
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.LockForVoid(ctx, scope.TenantID, req.SaleID)
		if err != nil {
			return err
		}
		if sale.IsVoided() {
			return apperror.NewConflict("sale is already voided").WithDetail("sale_id", sale.ID)
		}

		at := s.now()
		ok, err := s.repo.MarkVoided(ctx, scope.TenantID, sale.ID, reason, at)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewConflict("sale is already voided").WithDetail("sale_id", sale.ID)
		}
		sale.Estado = StatusVoided
		sale.MotivoAnulacion = &reason
		sale.FechaAnulacion = &at

		ref := sale.ID.String()
		lines := make([]stock.Line, len(sale.Lines))
		for i, l := range sale.Lines {
			lines[i] = stock.Line{ProductID: l.ProductoID, Delta: l.Cantidad}
		}
		if _, err := s.stock.Post(ctx, stock.Posting{
			TenantID:   scope.TenantID,
			Tipo:       stock.TypeSaleVoid,
			Referencia: &ref,
			Notas:      "Anulación de venta: " + ref,
			Lines:      lines,
		}); err != nil {
			return err
		}

		switch sale.MetodoPago {
		case types.PaymentCash:
			if _, err := s.cash.RecordLinked(ctx, scope.TenantID, cash.Egress, sale.Total,
				"Anulación Venta #"+id.Short(sale.ID), ref); err != nil {
				return err
			}
		case types.PaymentAccount:
			if sale.ClienteID != nil {
				if _, err := s.receivable.Credit(ctx, scope.TenantID, *sale.ClienteID, sale.Total,
					"Anulación "+sale.Numero, ref); err != nil {
					return err
				}
			}
		}

		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   sale.ID,
			Action:     audit.ActionVoid,
			Changes:    map[string]any{"motivo": reason, "total": sale.Total.String()},
		}); err != nil {
			return err
		}

		voided = sale
		return s.publish(ctx, sale, events.SaleVoided)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale voided", "sale_id", voided.ID, "numero", voided.Numero)
	s.invalidate(ctx, scope.TenantID)
	return voided, nil
}

// Get returns a sale with its lines.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	scope, err := security.Authorize(ctx, security.SalesAccess)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, scope.TenantID, saleID)
}

// List returns sale headers, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	scope, err := security.Authorize(ctx, security.SalesAccess)
	if err != nil {
		return domain.ListResult[*Sale]{}, err
	}
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.List(ctx, scope.TenantID, filter)
}

func (s *Service) publish(ctx context.Context, sale *Sale, eventType string) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, events.Event{
		TenantID:      sale.TenantID,
		AggregateType: "sale",
		AggregateID:   sale.ID,
		EventType:     eventType,
		Scopes:        invalidatedScopes,
		Payload: map[string]any{
			"numero":     sale.Numero,
			"total":      sale.Total.String(),
			"metodoPago": sale.MetodoPago,
		},
	})
}

func (s *Service) invalidate(ctx context.Context, tenantID id.ID) {
	if err := s.invalidator.Invalidate(ctx, tenantID, invalidatedScopes...); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "error", err)
	}
}

func isIdempotencyConflict(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeDuplicate {
		return false
	}
	return appErr.Details["field"] == "idempotency_key"
}
