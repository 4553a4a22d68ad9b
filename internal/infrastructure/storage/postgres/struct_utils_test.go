package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"distripos/internal/core/entity"
	"distripos/internal/core/id"
)

type sampleRow struct {
	entity.TenantEntity
	entity.Timestamps
	Nombre  string `db:"nombre"`
	Ignored string `db:"-"`
	NoTag   string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[sampleRow]()

	assert.Equal(t, []string{"id", "tenant_id", "created_at", "updated_at", "nombre"}, cols)
}

func TestStructToMap_EmbeddedAndOmit(t *testing.T) {
	now := time.Now().UTC()
	row := sampleRow{
		TenantEntity: entity.NewTenantEntity(id.New()),
		Timestamps:   entity.Timestamps{CreatedAt: now, UpdatedAt: now},
		Nombre:       "Yerba 1kg",
		Ignored:      "x",
	}

	m := StructToMap(&row, "created_at")

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, row.TenantID, m["tenant_id"])
	assert.Equal(t, now, m["updated_at"])
	assert.Equal(t, "Yerba 1kg", m["nombre"])
	assert.NotContains(t, m, "created_at")
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 4)
}
