package postgres

import (
	"fmt"
	"reflect"
	"sync"
)

// columnPlan maps "db" tags to struct field index paths. Columns keep
// declaration order; embedded structs (entity.Base) are flattened in place.
type columnPlan struct {
	names []string
	paths map[string][]int
}

var plans sync.Map // reflect.Type -> *columnPlan

func planOf(t reflect.Type) *columnPlan {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if p, ok := plans.Load(t); ok {
		return p.(*columnPlan)
	}

	p := &columnPlan{paths: make(map[string][]int)}
	if t.Kind() == reflect.Struct {
		p.collect(t, nil)
	}
	actual, _ := plans.LoadOrStore(t, p)
	return actual.(*columnPlan)
}

func (p *columnPlan) collect(t reflect.Type, prefix []int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			p.collect(f.Type, path)
			continue
		}

		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		if _, seen := p.paths[tag]; seen {
			continue
		}
		p.names = append(p.names, tag)
		p.paths[tag] = path
	}
}

// ExtractDBColumns returns the column names of T in field order.
//
//	columns := ExtractDBColumns[order.Order]()
//	// ["id", "version", "created_at", "updated_at", "number", ...]
func ExtractDBColumns[T any]() []string {
	names := planOf(reflect.TypeFor[T]()).names
	return append([]string(nil), names...)
}

// StructToMap converts a struct (or pointer to one) to column -> value.
// Returns nil for anything that is not a struct.
func StructToMap(v any) map[string]any {
	rv, ok := structValue(v)
	if !ok {
		return nil
	}
	p := planOf(rv.Type())
	res := make(map[string]any, len(p.names))
	for _, name := range p.names {
		res[name] = rv.FieldByIndex(p.paths[name]).Interface()
	}
	return res
}

// StructValues returns the values of cols in the given order, for COPY rows.
func StructValues(v any, cols []string) ([]any, error) {
	rv, ok := structValue(v)
	if !ok {
		return nil, fmt.Errorf("struct values: %T is not a struct", v)
	}
	p := planOf(rv.Type())
	out := make([]any, len(cols))
	for i, col := range cols {
		path, found := p.paths[col]
		if !found {
			return nil, fmt.Errorf("struct values: %s has no column %q", rv.Type(), col)
		}
		out[i] = rv.FieldByIndex(path).Interface()
	}
	return out, nil
}

func structValue(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.Kind() == reflect.Struct
}
