package schema

import "reflect"

// Projection computes a comparison value from the incoming record
type Projection func(incoming map[string]interface{}) interface{}

// FieldMap maps an existing-record field name to either a string key of
// the incoming record or a Projection.
type FieldMap map[string]interface{}

// HasChanges compares two heterogeneously shaped records field by field.
// A nil existing record (creation path) always counts as changed. Missing
// keys and nil values are equivalent on both sides, but nil never equals
// a zero value such as 0, "" or false.
func HasChanges(existing, incoming map[string]interface{}, fields FieldMap) bool {
	if existing == nil {
		return true
	}
	for name, mapping := range fields {
		current := normalize(existing[name])

		var next interface{}
		switch m := mapping.(type) {
		case string:
			next = incoming[m]
		case Projection:
			next = m(incoming)
		case func(map[string]interface{}) interface{}:
			next = m(incoming)
		default:
			// unusable mapping entry: treat as changed so the mistake surfaces
			return true
		}
		next = normalize(next)

		if !valuesEqual(current, next) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// normalize collapses numeric widths and typed nils so that records
// sourced from the store and records sourced from parsed files compare
// by value.
func normalize(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}
