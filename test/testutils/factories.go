// Package testutils provides test data factories and store helpers for
// consistent test data generation
package testutils

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/infrastructure/persistence/sqlite"
	"github.com/platewise/platewise/internal/ports/outbound"

	gormstore "github.com/platewise/platewise/internal/infrastructure/persistence/gorm"
)

// NewTestStore opens an in-memory store with the full schema migrated
func NewTestStore(t *testing.T) (outbound.Store, *gorm.DB) {
	t.Helper()
	db, err := sqlite.SetupDatabase("", gormlogger.Silent)
	if err != nil {
		t.Fatalf("setup test database: %v", err)
	}
	return gormstore.NewStore(db), db
}

// SupplierBuilder provides a fluent interface for building test suppliers
type SupplierBuilder struct {
	supplier domain.Supplier
}

// NewSupplierBuilder creates a supplier builder with faked defaults
func NewSupplierBuilder() *SupplierBuilder {
	faker := gofakeit.New(0)
	name := faker.Company()
	return &SupplierBuilder{supplier: domain.Supplier{
		ID:           uuid.New(),
		Slug:         gofakeit.Generate("supplier-########"),
		Name:         name,
		ContactName:  faker.Name(),
		ContactEmail: faker.Email(),
		ContactPhone: faker.Phone(),
	}}
}

// WithSlug sets the slug
func (b *SupplierBuilder) WithSlug(slug string) *SupplierBuilder {
	b.supplier.Slug = slug
	return b
}

// WithName sets the name
func (b *SupplierBuilder) WithName(name string) *SupplierBuilder {
	b.supplier.Name = name
	return b
}

// Build returns the supplier
func (b *SupplierBuilder) Build() *domain.Supplier {
	supplier := b.supplier
	return &supplier
}

// IngredientBuilder provides a fluent interface for building test ingredients
type IngredientBuilder struct {
	ingredient domain.Ingredient
}

// NewIngredientBuilder creates an ingredient builder with sane defaults:
// one kilogram at five pounds, VAT-free.
func NewIngredientBuilder() *IngredientBuilder {
	faker := gofakeit.New(0)
	return &IngredientBuilder{ingredient: domain.Ingredient{
		ID:           uuid.New(),
		Slug:         gofakeit.Generate("ingredient-########"),
		Name:         faker.NounConcrete(),
		Category:     "larder",
		PurchaseUnit: "1kg",
		PurchaseCost: 500,
	}}
}

// WithSlug sets the slug
func (b *IngredientBuilder) WithSlug(slug string) *IngredientBuilder {
	b.ingredient.Slug = slug
	return b
}

// WithPurchase sets the purchase quantity and cost
func (b *IngredientBuilder) WithPurchase(unit string, cost int64, includesVAT bool) *IngredientBuilder {
	b.ingredient.PurchaseUnit = unit
	b.ingredient.PurchaseCost = cost
	b.ingredient.IncludesVAT = includesVAT
	return b
}

// WithConversionRule sets the user-defined conversion rule
func (b *IngredientBuilder) WithConversionRule(rule string) *IngredientBuilder {
	b.ingredient.ConversionRule = rule
	return b
}

// WithSupplier links the supplier
func (b *IngredientBuilder) WithSupplier(id uuid.UUID) *IngredientBuilder {
	b.ingredient.SupplierID = &id
	return b
}

// Build returns the ingredient
func (b *IngredientBuilder) Build() *domain.Ingredient {
	ingredient := b.ingredient
	return &ingredient
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	recipe domain.Recipe
	lines  []domain.RecipeLine
}

// NewRecipeBuilder creates a recipe builder with active menu-item defaults
func NewRecipeBuilder() *RecipeBuilder {
	faker := gofakeit.New(0)
	return &RecipeBuilder{recipe: domain.Recipe{
		ID:           uuid.New(),
		Slug:         gofakeit.Generate("recipe-########"),
		Name:         faker.Dinner(),
		Stage:        domain.StageActive,
		Class:        domain.ClassMenuItem,
		SellPrice:    1200,
		IncludesVAT:  true,
		TargetMargin: 65,
	}}
}

// WithSlug sets the slug
func (b *RecipeBuilder) WithSlug(slug string) *RecipeBuilder {
	b.recipe.Slug = slug
	return b
}

// WithPrice sets the sell price and its VAT discriminator
func (b *RecipeBuilder) WithPrice(price int64, includesVAT bool) *RecipeBuilder {
	b.recipe.SellPrice = price
	b.recipe.IncludesVAT = includesVAT
	return b
}

// WithTargetMargin sets the target margin percentage
func (b *RecipeBuilder) WithTargetMargin(target int) *RecipeBuilder {
	b.recipe.TargetMargin = target
	return b
}

// WithClass sets the recipe class
func (b *RecipeBuilder) WithClass(class domain.RecipeClass) *RecipeBuilder {
	b.recipe.Class = class
	return b
}

// WithYield declares the output quantity
func (b *RecipeBuilder) WithYield(amount, unit string) *RecipeBuilder {
	b.recipe.YieldAmount = amount
	b.recipe.YieldUnit = unit
	return b
}

// WithParent links the parent template
func (b *RecipeBuilder) WithParent(id uuid.UUID) *RecipeBuilder {
	b.recipe.ParentID = &id
	return b
}

// WithIngredientLine appends a line consuming an ingredient
func (b *RecipeBuilder) WithIngredientLine(ingredientID uuid.UUID, unit string) *RecipeBuilder {
	b.lines = append(b.lines, domain.RecipeLine{IngredientID: &ingredientID, Unit: unit})
	return b
}

// WithSubRecipeLine appends a line consuming a sub-recipe
func (b *RecipeBuilder) WithSubRecipeLine(recipeID uuid.UUID, unit string) *RecipeBuilder {
	b.lines = append(b.lines, domain.RecipeLine{SubRecipeID: &recipeID, Unit: unit})
	return b
}

// Build returns the recipe and its lines
func (b *RecipeBuilder) Build() (*domain.Recipe, []domain.RecipeLine) {
	recipe := b.recipe
	lines := make([]domain.RecipeLine, len(b.lines))
	copy(lines, b.lines)
	return &recipe, lines
}

// EntityFile renders a minimal YAML entity file for import tests
func EntityFile(object string, body string) string {
	return fmt.Sprintf("object: %s\ndata:\n%s", object, body)
}
