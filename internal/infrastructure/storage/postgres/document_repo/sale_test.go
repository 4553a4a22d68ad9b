package document_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/id"
)

func TestSaleRepo_LineColumnsSkipReadOnly(t *testing.T) {
	r := NewSaleRepo(nil)

	assert.Equal(t,
		[]string{"id", "tenant_id", "venta_id", "producto_id", "cantidad", "precio_unitario", "subtotal"},
		r.lineCols)
	assert.NotContains(t, r.selectCols, "lines")
	assert.Contains(t, r.selectCols, "idempotency_key")
}

func TestSaleRepo_LockSQL(t *testing.T) {
	r := NewSaleRepo(nil)
	tenantID, saleID := id.New(), id.New()

	sql, _, err := r.baseSelect(tenantID).
		Where(squirrel.Eq{"id": saleID}).
		Limit(1).
		Suffix("FOR UPDATE").
		ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM ventas WHERE tenant_id = $1 AND id = $2 LIMIT 1 FOR UPDATE")
}
