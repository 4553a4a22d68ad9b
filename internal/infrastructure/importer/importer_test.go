package importer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV_HeaderAliases(t *testing.T) {
	data := "SKU / Código Barra,Nombre del Producto,Precio Costo ($),Precio Venta ($),Stock Actual,Stock Mínimo,Categoría (Nombre)\n" +
		"A-1,Tornillo,10.5,15,100,5,Ferreteria\n" +
		"\n" +
		"A-2,Tuerca,\"1.234,50\",2000,,,\n"

	res, err := ReadCSV(strings.NewReader(data), Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Empty(t, res.Failed)

	first := res.Rows[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "A-1", first.SKU)
	assert.Equal(t, "Tornillo", first.Nombre)
	assert.True(t, decimal.RequireFromString("10.5").Equal(first.PrecioCompra))
	assert.True(t, decimal.NewFromInt(15).Equal(first.PrecioVenta))
	require.NotNil(t, first.Stock)
	assert.Equal(t, int64(100), *first.Stock)
	assert.Equal(t, "Ferreteria", first.Categoria)

	second := res.Rows[1]
	assert.Equal(t, 4, second.Row, "blank lines keep source numbering")
	assert.True(t, decimal.RequireFromString("1234.50").Equal(second.PrecioCompra))
	assert.Nil(t, second.Stock)
}

func TestReadCSV_SemicolonAndBOM(t *testing.T) {
	data := "\xef\xbb\xbfsku;nombre;precio venta\nX;Equis;3,5\n"

	res, err := ReadCSV(strings.NewReader(data), Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, decimal.RequireFromString("3.5").Equal(res.Rows[0].PrecioVenta))
}

func TestReadCSV_BadCellsAreReportedPerRow(t *testing.T) {
	data := "sku,nombre,precio venta,stock\nA,Uno,abc,1\nB,Dos,2,1.5\nC,Tres,3,2\n"

	res, err := ReadCSV(strings.NewReader(data), Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "C", res.Rows[0].SKU)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 2, res.Failed[0].Row)
	assert.Equal(t, "A", res.Failed[0].SKU)
	assert.Contains(t, res.Failed[1].Error, "stockActual")
}

func TestReadCSV_MissingRequiredColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("nombre,precio\nx,1\n"), Options{})
	assert.ErrorContains(t, err, `"sku"`)
}

func TestReadCSV_ExplicitMapping(t *testing.T) {
	data := "Code,Desc,PV\nZ1,Zeta,9\n"

	res, err := ReadCSV(strings.NewReader(data), Options{Mapping: map[string]string{
		FieldSKU:         "code",
		FieldNombre:      "desc",
		FieldPrecioVenta: "PV",
	}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Z1", res.Rows[0].SKU)
	assert.True(t, decimal.NewFromInt(9).Equal(res.Rows[0].PrecioVenta))
}

func TestReadCSV_MaxRows(t *testing.T) {
	data := "sku,nombre\na,1\nb,2\nc,3\n"
	_, err := ReadCSV(strings.NewReader(data), Options{MaxRows: 2})
	assert.Error(t, err)
}

func TestReadXLSX_FirstSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"SKU", "Nombre", "Precio Venta", "IVA", "Stock"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"P-1", "Pala", 1500.25, "21%", 7}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := Read("productos.xlsx", buf, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, "P-1", row.SKU)
	assert.True(t, decimal.RequireFromString("1500.25").Equal(row.PrecioVenta))
	require.NotNil(t, row.TasaIva)
	assert.True(t, decimal.NewFromInt(21).Equal(*row.TasaIva))
	require.NotNil(t, row.Stock)
	assert.Equal(t, int64(7), *row.Stock)
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := Read("data.pdf", strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"":           "0",
		"12":         "12",
		"12,5":       "12.5",
		"$ 1.234,50": "1234.5",
		"1,234.50":   "1234.5",
	}
	for in, want := range cases {
		got, err := parseMoney(in)
		require.NoError(t, err, in)
		assert.True(t, decimal.RequireFromString(want).Equal(got), "%q -> %s", in, got)
	}
}
