// Package outbound defines the narrow contracts the core depends on:
// the relational store and the entity file storage.
package outbound

import (
	"context"

	"github.com/google/uuid"

	"github.com/platewise/platewise/internal/domain"
)

// Store is the narrow query interface over the relational store. Missing
// rows surface as NOT_FOUND application errors; everything else is a
// STORE_FAILURE with the underlying error attached verbatim.
type Store interface {
	// Suppliers
	SupplierBySlug(ctx context.Context, slug string) (*domain.Supplier, error)
	SupplierExists(ctx context.Context, slug string) (bool, error)
	SaveSupplier(ctx context.Context, supplier *domain.Supplier) error
	DeleteSupplier(ctx context.Context, slug string) error
	SupplierIngredientCount(ctx context.Context, supplierID uuid.UUID) (int64, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)

	// Ingredients
	IngredientBySlug(ctx context.Context, slug string, withSupplier bool) (*domain.Ingredient, error)
	IngredientExists(ctx context.Context, slug string) (bool, error)
	SaveIngredient(ctx context.Context, ingredient *domain.Ingredient) error
	DeleteIngredient(ctx context.Context, slug string) error
	IngredientLineCount(ctx context.Context, ingredientID uuid.UUID) (int64, error)
	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)

	// Recipes. SaveRecipeWithLines replaces the line set atomically with
	// the recipe row in one transaction.
	RecipeBySlug(ctx context.Context, slug string, withLines bool) (*domain.Recipe, error)
	RecipeByID(ctx context.Context, id uuid.UUID) (*domain.Recipe, error)
	RecipeExists(ctx context.Context, slug string) (bool, error)
	SaveRecipeWithLines(ctx context.Context, recipe *domain.Recipe, lines []domain.RecipeLine) error
	DeleteRecipe(ctx context.Context, slug string) error
	SubRecipeLineCount(ctx context.Context, recipeID uuid.UUID) (int64, error)
	ListRecipes(ctx context.Context, stage domain.RecipeStage) ([]domain.Recipe, error)
}

// StorageMode selects where entity files live
type StorageMode string

const (
	StorageFilesystem   StorageMode = "filesystem"
	StorageDatabaseOnly StorageMode = "database-only"
)

// EntityStorage writes and deletes declarative entity files. The
// database-only implementation is a no-op used in containerised
// deployments where the store is the sole source of truth.
type EntityStorage interface {
	// Write serialises an entity document under root, honouring an
	// existing user-chosen path, and returns the written path.
	Write(entityType, slug string, data interface{}, root, existingPath string) (string, error)
	DeleteFile(path string) error
	Mode() StorageMode
}
