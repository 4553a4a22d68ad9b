// Package importer reads product spreadsheets (xlsx or csv) into import rows.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"distripos/internal/domain/catalogs/product"
)

// Field names accepted in a column mapping.
const (
	FieldSKU          = "sku"
	FieldNombre       = "nombre"
	FieldPrecioCompra = "precioCompra"
	FieldPrecioVenta  = "precioVenta"
	FieldTasaIva      = "tasaIva"
	FieldStock        = "stockActual"
	FieldStockMinimo  = "stockMinimo"
	FieldMarca        = "marca"
	FieldModelo       = "modelo"
	FieldProveedor    = "proveedor"
	FieldCategoria    = "categoria"
)

// aliases maps normalized header text to a field.
var aliases = map[string]string{
	"sku":                 FieldSKU,
	"codigo":              FieldSKU,
	"codigo barra":        FieldSKU,
	"sku / codigo barra":  FieldSKU,
	"nombre":              FieldNombre,
	"nombre del producto": FieldNombre,
	"producto":            FieldNombre,
	"preciocompra":        FieldPrecioCompra,
	"precio compra":       FieldPrecioCompra,
	"precio costo":        FieldPrecioCompra,
	"costo":               FieldPrecioCompra,
	"precioventa":         FieldPrecioVenta,
	"precio venta":        FieldPrecioVenta,
	"precio":              FieldPrecioVenta,
	"tasaiva":             FieldTasaIva,
	"iva":                 FieldTasaIva,
	"tasa iva":            FieldTasaIva,
	"stock":               FieldStock,
	"stockactual":         FieldStock,
	"stock actual":        FieldStock,
	"stockminimo":         FieldStockMinimo,
	"stock minimo":        FieldStockMinimo,
	"marca":               FieldMarca,
	"modelo":              FieldModelo,
	"proveedor":           FieldProveedor,
	"proveedor nombre":    FieldProveedor,
	"categoria":           FieldCategoria,
	"categoria nombre":    FieldCategoria,
}

var ErrUnsupportedFormat = errors.New("unsupported file format, use .xlsx or .csv")

// Result is the parsed file. Failed holds rows that could not be read; they
// never reach the import service.
type Result struct {
	Rows   []product.ImportRow
	Failed []product.ImportFailure
}

// Options tune parsing. Mapping overrides header detection: field name to
// header text as it appears in the file.
type Options struct {
	Mapping map[string]string
	MaxRows int
}

const defaultMaxRows = 10000

// Read parses r according to the extension of filename.
func Read(filename string, r io.Reader, opts Options) (*Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, opts)
	case ".csv", ".txt":
		return ReadCSV(r, opts)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ReadXLSX reads the first sheet; the first row is the header.
func ReadXLSX(r io.Reader, opts Options) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return parse(records, opts)
}

// ReadCSV reads comma or semicolon separated data; the first row is the header.
func ReadCSV(r io.Reader, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return parse(records, opts)
}

func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func parse(records [][]string, opts Options) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	columns, err := resolveColumns(records[0], opts.Mapping)
	if err != nil {
		return nil, err
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	res := &Result{}
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		if len(res.Rows)+len(res.Failed) >= maxRows {
			return nil, fmt.Errorf("file has more than %d rows", maxRows)
		}
		// Header is row 1.
		rowNum := i + 2
		row, err := buildRow(record, columns)
		row.Row = rowNum
		if err != nil {
			res.Failed = append(res.Failed, product.ImportFailure{Row: rowNum, SKU: row.SKU, Error: err.Error()})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func resolveColumns(header []string, mapping map[string]string) (map[string]int, error) {
	columns := make(map[string]int)
	if len(mapping) > 0 {
		byHeader := make(map[string]int, len(header))
		for i, h := range header {
			byHeader[normalize(h)] = i
		}
		for field, h := range mapping {
			if idx, ok := byHeader[normalize(h)]; ok {
				columns[field] = idx
			}
		}
	} else {
		for i, h := range header {
			if field, ok := aliases[normalize(h)]; ok {
				if _, dup := columns[field]; !dup {
					columns[field] = i
				}
			}
		}
	}

	for _, required := range []string{FieldSKU, FieldNombre} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return columns, nil
}

func buildRow(record []string, columns map[string]int) (product.ImportRow, error) {
	cell := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := product.ImportRow{
		SKU:       cell(FieldSKU),
		Nombre:    cell(FieldNombre),
		Marca:     cell(FieldMarca),
		Modelo:    cell(FieldModelo),
		Proveedor: cell(FieldProveedor),
		Categoria: cell(FieldCategoria),
	}

	var err error
	if row.PrecioCompra, err = parseMoney(cell(FieldPrecioCompra)); err != nil {
		return row, fmt.Errorf("precioCompra: %w", err)
	}
	if row.PrecioVenta, err = parseMoney(cell(FieldPrecioVenta)); err != nil {
		return row, fmt.Errorf("precioVenta: %w", err)
	}
	if v := cell(FieldTasaIva); v != "" {
		rate, err := parseMoney(strings.TrimSuffix(v, "%"))
		if err != nil {
			return row, fmt.Errorf("tasaIva: %w", err)
		}
		row.TasaIva = &rate
	}
	if row.Stock, err = parseQuantity(cell(FieldStock)); err != nil {
		return row, fmt.Errorf("stockActual: %w", err)
	}
	if row.StockMinimo, err = parseQuantity(cell(FieldStockMinimo)); err != nil {
		return row, fmt.Errorf("stockMinimo: %w", err)
	}
	return row, nil
}

// parseMoney accepts "1234.5", "1234,5", "$ 1.234,50" and "1,234.50".
// Empty is zero.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, nil
	}
	lastComma, lastDot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

func parseQuantity(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Spreadsheets often store integers as "12.0".
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.Equal(d.Truncate(0)) {
			return nil, fmt.Errorf("invalid quantity %q", s)
		}
		n = d.IntPart()
	}
	return &n, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
	"_", " ", "-", " ", "(", "", ")", "", "$", "", "%", "",
)

func normalize(h string) string {
	h = accentReplacer.Replace(strings.ToLower(strings.TrimSpace(h)))
	return strings.Join(strings.Fields(h), " ")
}
