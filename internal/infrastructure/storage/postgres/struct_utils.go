package postgres

import (
	"reflect"
	"sync"
)

// column is one "db"-tagged field and its index path from the outer struct.
type column struct {
	name  string
	index []int
}

// columnCache maps reflect.Type to []column.
var columnCache sync.Map

// columnsOf flattens the tagged fields of t, embedded structs in place.
func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		cols = appendColumns(cols, t, nil)
	}
	columnCache.Store(t, cols)
	return cols
}

func appendColumns(cols []column, t reflect.Type, prefix []int) []column {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if field.Anonymous {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				cols = appendColumns(cols, ft, path)
			}
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: path})
	}
	return cols
}

// ExtractDBColumns lists the "db" tags of T, descending into embedded
// structs such as entity.TenantEntity. Call it once at repository construction.
//
//	columns := ExtractDBColumns[product.Product]()
//	// ["id", "tenant_id", "sku", "nombre", ...]
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeFor[T]())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap converts a struct to column→value using "db" tags, ready for
// squirrel's SetMap. Columns listed in omit are left out, as are fields under
// a nil embedded pointer.
func StructToMap(v any, omit ...string) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		fv, err := rv.FieldByIndexErr(c.index)
		if err != nil {
			continue
		}
		res[c.name] = fv.Interface()
	}

	for _, col := range omit {
		delete(res, col)
	}
	return res
}
