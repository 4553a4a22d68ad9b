package stock

import (
	"context"
	"fmt"
	"time"

	"distripos/internal/core/apperror"
	"distripos/internal/core/entity"
	"distripos/internal/core/id"
	"distripos/pkg/logger"
)

// Ledger applies stock deltas and appends their movements. Every method must
// run inside the caller's transaction: the increment and the log row commit
// or roll back together.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// NewLedger creates a stock ledger.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// Post applies every line of p and records one movement per non-zero line.
// A negative delta that would take stock below zero fails with
// InsufficientStock carrying the availability seen at that moment.
func (l *Ledger) Post(ctx context.Context, p Posting) ([]Movement, error) {
	if id.IsNil(p.TenantID) {
		return nil, apperror.NewValidation("tenant is required")
	}

	now := l.now()
	movements := make([]Movement, 0, len(p.Lines))
	for _, line := range p.Lines {
		if line.Delta == 0 {
			continue
		}

		if err := l.apply(ctx, p.TenantID, line); err != nil {
			return nil, err
		}

		movements = append(movements, Movement{
			TenantEntity: entity.NewTenantEntity(p.TenantID),
			ProductoID:   line.ProductID,
			Cantidad:     line.Delta,
			Tipo:         p.Tipo,
			Referencia:   p.Referencia,
			Notas:        p.Notas,
			Fecha:        now,
		})
	}

	if len(movements) == 0 {
		return movements, nil
	}

	if err := l.repo.InsertMovements(ctx, movements); err != nil {
		return nil, fmt.Errorf("insert stock movements: %w", err)
	}

	logger.Debug(ctx, "stock posted",
		"tipo", p.Tipo,
		"lines", len(movements),
	)

	return movements, nil
}

func (l *Ledger) apply(ctx context.Context, tenantID id.ID, line Line) error {
	if line.Delta > 0 {
		ok, err := l.repo.Increment(ctx, tenantID, line.ProductID, line.Delta)
		if err != nil {
			return fmt.Errorf("increment stock: %w", err)
		}
		if !ok {
			return apperror.NewNotFound("product", line.ProductID)
		}
		return nil
	}

	qty := -line.Delta
	ok, err := l.repo.Decrement(ctx, tenantID, line.ProductID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ok {
		return nil
	}

	available, err := l.repo.CurrentStock(ctx, tenantID, line.ProductID)
	if err != nil {
		return err
	}
	return apperror.NewInsufficientStock(line.ProductID.String(), qty, available)
}

// Opening records the stock a product starts with.
func (l *Ledger) Opening(ctx context.Context, tenantID, productID id.ID, qty int64) error {
	_, err := l.Post(ctx, Posting{
		TenantID: tenantID,
		Tipo:     TypeOpening,
		Notas:    "Stock inicial",
		Lines:    []Line{{ProductID: productID, Delta: qty}},
	})
	return err
}

// Adjust records a manual correction of delta units.
func (l *Ledger) Adjust(ctx context.Context, tenantID, productID id.ID, delta int64, notas string) error {
	if notas == "" {
		notas = "Ajuste manual"
	}
	_, err := l.Post(ctx, Posting{
		TenantID: tenantID,
		Tipo:     TypeManual,
		Notas:    notas,
		Lines:    []Line{{ProductID: productID, Delta: delta}},
	})
	return err
}

// Movements returns the latest movements of a product.
func (l *Ledger) Movements(ctx context.Context, tenantID, productID id.ID, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return l.repo.ListByProduct(ctx, tenantID, productID, limit)
}

// CurrentStock returns the product's stockActual.
func (l *Ledger) CurrentStock(ctx context.Context, tenantID, productID id.ID) (int64, error) {
	return l.repo.CurrentStock(ctx, tenantID, productID)
}
