package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/platewise/platewise/pkg/errors"
)

func TestParseSupplier(t *testing.T) {
	raw := []byte(`
object: supplier
data:
  name: Smithfield Wholesale
  contact:
    name: Pat Smith
    email: pat@smithfield.example
  notes: delivers tuesdays
`)
	doc, err := Parse("suppliers/smithfield.yaml", raw)
	require.NoError(t, err)
	assert.Equal(t, ObjectSupplier, doc.Object)
	assert.Equal(t, "smithfield-wholesale", doc.Slug)
	require.NotNil(t, doc.Supplier)
	assert.Equal(t, "Pat Smith", doc.Supplier.Contact.Name)
}

func TestParseIngredient(t *testing.T) {
	raw := []byte(`
object: ingredient
data:
  slug: serrano-ham
  name: Serrano Ham
  category: charcuterie
  purchase:
    unit: 1kg
    cost: 599
  supplier:
    uses: slug:smithfield-wholesale
  lastPurchased: "2026-08-01"
`)
	doc, err := Parse("ingredients/ham.yaml", raw)
	require.NoError(t, err)
	assert.Equal(t, "serrano-ham", doc.Slug)
	require.NotNil(t, doc.Ingredient)
	assert.Equal(t, int64(599), doc.Ingredient.Purchase.Cost)
	assert.False(t, doc.Ingredient.Purchase.VAT)
	assert.Equal(t, "slug:smithfield-wholesale", doc.Ingredient.Supplier.Uses)
}

func TestParseRecipe(t *testing.T) {
	raw := []byte(`
object: recipe
data:
  name: Ham Sandwich
  stage: active
  class: menu_item
  costing:
    price: 650
    vat: true
  ingredients:
    - uses: ./ham.yaml
      with:
        unit: 25g
    - uses: slug:aioli
      type: recipe
      with:
        unit: 15ml
`)
	doc, err := Parse("recipes/sandwich.yaml", raw)
	require.NoError(t, err)
	assert.Equal(t, "ham-sandwich", doc.Slug)
	require.NotNil(t, doc.Recipe)
	require.Len(t, doc.Recipe.Ingredients, 2)
	assert.Equal(t, "recipe", doc.Recipe.Ingredients[1].Type)
	require.NotNil(t, doc.Recipe.Costing.Price)
	assert.Equal(t, int64(650), *doc.Recipe.Costing.Price)
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid yaml", ":\n :::"},
		{"unknown object", "object: gadget\ndata:\n  name: x"},
		{"missing data", "object: supplier"},
		{"missing name", "object: supplier\ndata:\n  notes: hi"},
		{"negative cost", "object: ingredient\ndata:\n  name: Oil\n  category: larder\n  purchase:\n    unit: 1l\n    cost: -5"},
		{"bad stage", "object: recipe\ndata:\n  name: X\n  stage: retired\n  costing:\n    price: 1"},
		{"bad date", "object: ingredient\ndata:\n  name: Oil\n  category: larder\n  purchase:\n    unit: 1l\n    cost: 5\n  lastPurchased: yesterday"},
		{"price required without extends", "object: recipe\ndata:\n  name: X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("file.yaml", []byte(tt.raw))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeInputMalformed))
		})
	}
}

func TestParseIngredientUnparseablePurchaseUnit(t *testing.T) {
	raw := []byte(`
object: ingredient
data:
  name: Olive Oil
  category: larder
  purchase:
    unit: to taste
    cost: 500
`)
	_, err := Parse("ingredients/oil.yaml", raw)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnitUnparseable))
}

func TestParseRecipeExtendsWithoutPrice(t *testing.T) {
	raw := []byte(`
object: recipe
data:
  name: House Special
  extends: slug:base-sandwich
`)
	doc, err := Parse("recipes/special.yaml", raw)
	require.NoError(t, err)
	assert.Equal(t, "slug:base-sandwich", doc.Recipe.Extends)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Serrano Ham":        "serrano-ham",
		"Crème Brûlée":       "creme-brulee",
		"  Fish & Chips!  ":  "fish-chips",
		"already-sluggy":     "already-sluggy",
		"MIXED case 123":     "mixed-case-123",
		"---":                "",
	}
	for input, want := range tests {
		assert.Equal(t, want, Slugify(input), input)
	}
}
