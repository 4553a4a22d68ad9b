package register_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/id"
)

func TestStockDecrement_IsConditional(t *testing.T) {
	r := NewStockRepo(nil)
	tenantID, productID := id.New(), id.New()

	sql, args, err := r.builder.Update(productTable).
		Set("stock_actual", squirrel.Expr("stock_actual - ?", int64(3))).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		Where(squirrel.GtOrEq{"stock_actual": int64(3)}).
		ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE productos SET stock_actual = stock_actual - $1 WHERE id = $2 AND tenant_id = $3 AND stock_actual >= $4",
		sql)
	assert.Equal(t, []any{int64(3), productID.String(), tenantID.String(), int64(3)}, args)
}

func TestStockMovementColumns_MatchModel(t *testing.T) {
	assert.Equal(t,
		[]string{"id", "tenant_id", "producto_id", "cantidad", "tipo", "referencia", "notas", "fecha"},
		stockMovementColumns)
}

func TestCashColumns(t *testing.T) {
	assert.Contains(t, cashSessionColumns, "monto_apertura")
	assert.Contains(t, cashSessionColumns, "desvio")
	assert.Contains(t, cashMovementColumns, "reversa_de")
	assert.Contains(t, cashMovementColumns, "anulado")
	assert.Contains(t, accountMovementColumns, "cliente_id")
}
