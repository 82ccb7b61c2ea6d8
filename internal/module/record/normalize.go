package record

import (
	"reflect"
	"sort"
	"sync"

	"gorm.io/gorm/schema"

	"github.com/simp-lee/recordsvc/internal/domain"
)

var (
	naming      schema.Namer = schema.NamingStrategy{}
	columnCache sync.Map // reflect.Type -> []fieldColumn
)

type fieldColumn struct {
	index  []int
	column string
}

// NormalizeUpdate turns a partial update into the set of column assignments to
// apply. It accepts nil, an update struct or a pointer to one, a
// map[string]any keyed by column, or an existing domain.UpdateSet.
//
// Fields holding nil (pointer, interface, map or slice) are dropped. Zero
// values such as "", 0 and false are kept. Struct columns follow declaration
// order and map columns are sorted, so the result is deterministic.
// Normalizing an UpdateSet returns an equal set.
func NormalizeUpdate(input any) domain.UpdateSet {
	set := domain.UpdateSet{Values: make(map[string]any)}
	add := func(column string, value any) {
		v, keep := unwrap(value)
		if !keep {
			return
		}
		if _, dup := set.Values[column]; !dup {
			set.Columns = append(set.Columns, column)
		}
		set.Values[column] = v
	}

	switch in := input.(type) {
	case nil:
		return set
	case domain.UpdateSet:
		for _, col := range in.Columns {
			add(col, in.Values[col])
		}
		return set
	case *domain.UpdateSet:
		if in != nil {
			return NormalizeUpdate(*in)
		}
		return set
	case map[string]any:
		keys := make([]string, 0, len(in))
		for k := range in {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k, in[k])
		}
		return set
	}

	v := reflect.ValueOf(input)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return set
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return set
	}

	for _, fc := range structColumns(v.Type()) {
		add(fc.column, v.FieldByIndex(fc.index).Interface())
	}
	return set
}

// unwrap dereferences a non-nil pointer and reports whether the value should
// be kept.
func unwrap(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false
		}
		return rv.Elem().Interface(), true
	case reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil, false
		}
	}
	return value, true
}

// structColumns lists the exported fields of t with their column names,
// honouring gorm:"column:..." and skipping gorm:"-".
func structColumns(t reflect.Type) []fieldColumn {
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]fieldColumn)
	}

	var cols []fieldColumn
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			index := append(append([]int(nil), prefix...), i)
			tag := f.Tag.Get("gorm")
			if tag == "-" {
				continue
			}
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type, index)
				continue
			}
			if !f.IsExported() {
				continue
			}
			column := schema.ParseTagSetting(tag, ";")["COLUMN"]
			if column == "" {
				column = naming.ColumnName("", f.Name)
			}
			cols = append(cols, fieldColumn{index: index, column: column})
		}
	}
	walk(t, nil)

	columnCache.Store(t, cols)
	return cols
}
