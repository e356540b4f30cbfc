package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasChangesCreationPath(t *testing.T) {
	assert.True(t, HasChanges(nil, map[string]interface{}{"name": "x"}, FieldMap{"name": "name"}))
}

func TestHasChangesDetectsDifference(t *testing.T) {
	existing := map[string]interface{}{"name": "old"}
	incoming := map[string]interface{}{"name": "new"}
	assert.True(t, HasChanges(existing, incoming, FieldMap{"name": "name"}))

	incoming["name"] = "old"
	assert.False(t, HasChanges(existing, incoming, FieldMap{"name": "name"}))
}

func TestHasChangesNilEquivalence(t *testing.T) {
	fields := FieldMap{"notes": "notes"}

	// missing and nil are the same on both sides
	assert.False(t, HasChanges(
		map[string]interface{}{},
		map[string]interface{}{"notes": nil},
		fields,
	))
	assert.False(t, HasChanges(
		map[string]interface{}{"notes": nil},
		map[string]interface{}{},
		fields,
	))

	// but nil never equals a zero value
	assert.True(t, HasChanges(
		map[string]interface{}{"notes": nil},
		map[string]interface{}{"notes": ""},
		fields,
	))
	assert.True(t, HasChanges(
		map[string]interface{}{"cost": nil},
		map[string]interface{}{"cost": 0},
		FieldMap{"cost": "cost"},
	))
	assert.True(t, HasChanges(
		map[string]interface{}{"vat": nil},
		map[string]interface{}{"vat": false},
		FieldMap{"vat": "vat"},
	))
}

func TestHasChangesNumericWidths(t *testing.T) {
	// store rows surface int64, parsed files surface int
	assert.False(t, HasChanges(
		map[string]interface{}{"cost": int64(599)},
		map[string]interface{}{"cost": 599},
		FieldMap{"cost": "cost"},
	))
	assert.True(t, HasChanges(
		map[string]interface{}{"cost": int64(599)},
		map[string]interface{}{"cost": 600},
		FieldMap{"cost": "cost"},
	))
}

func TestHasChangesTypedNilPointer(t *testing.T) {
	var price *int64
	assert.False(t, HasChanges(
		map[string]interface{}{"price": nil},
		map[string]interface{}{"price": price},
		FieldMap{"price": "price"},
	))

	value := int64(100)
	assert.False(t, HasChanges(
		map[string]interface{}{"price": int64(100)},
		map[string]interface{}{"price": &value},
		FieldMap{"price": "price"},
	))
}

func TestHasChangesProjection(t *testing.T) {
	fields := FieldMap{
		"line_count": Projection(func(incoming map[string]interface{}) interface{} {
			lines, _ := incoming["lines"].([]interface{})
			return int64(len(lines))
		}),
	}
	existing := map[string]interface{}{"line_count": int64(2)}
	incoming := map[string]interface{}{"lines": []interface{}{"a", "b"}}
	assert.False(t, HasChanges(existing, incoming, fields))

	incoming["lines"] = []interface{}{"a"}
	assert.True(t, HasChanges(existing, incoming, fields))
}

func TestHasChangesBadMapping(t *testing.T) {
	assert.True(t, HasChanges(
		map[string]interface{}{"name": "x"},
		map[string]interface{}{"name": "x"},
		FieldMap{"name": 42},
	))
}
