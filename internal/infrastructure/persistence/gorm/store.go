package gorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/ports/outbound"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// Store implements the relational store interface using GORM
type Store struct {
	db *gormlib.DB
}

// NewStore creates a new GORM-backed store
func NewStore(db *gormlib.DB) outbound.Store {
	return &Store{db: db}
}

// SupplierBySlug finds a supplier by slug
func (s *Store) SupplierBySlug(ctx context.Context, slug string) (*domain.Supplier, error) {
	var model SupplierModel
	result := s.db.WithContext(ctx).First(&model, "slug = ?", slug)
	if result.Error != nil {
		if errors.Is(result.Error, gormlib.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("supplier", slug)
		}
		return nil, apperrors.NewStoreFailureError("find supplier", result.Error)
	}
	return supplierToDomain(&model), nil
}

// SupplierExists reports whether a supplier row with the slug exists
func (s *Store) SupplierExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&SupplierModel{}).
		Where("slug = ?", slug).
		Count(&count)
	if result.Error != nil {
		return false, apperrors.NewStoreFailureError("count suppliers", result.Error)
	}
	return count > 0, nil
}

// SaveSupplier creates or updates a supplier row
func (s *Store) SaveSupplier(ctx context.Context, supplier *domain.Supplier) error {
	model := supplierToModel(supplier)
	result := s.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return apperrors.NewStoreFailureError("save supplier", result.Error)
	}
	supplier.ID = model.ID
	supplier.CreatedAt = model.CreatedAt
	supplier.UpdatedAt = model.UpdatedAt
	return nil
}

// DeleteSupplier removes a supplier row by slug
func (s *Store) DeleteSupplier(ctx context.Context, slug string) error {
	result := s.db.WithContext(ctx).Delete(&SupplierModel{}, "slug = ?", slug)
	if result.Error != nil {
		return apperrors.NewStoreFailureError("delete supplier", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("supplier", slug)
	}
	return nil
}

// SupplierIngredientCount counts ingredients still referencing a supplier
func (s *Store) SupplierIngredientCount(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&IngredientModel{}).
		Where("supplier_id = ?", supplierID).
		Count(&count)
	if result.Error != nil {
		return 0, apperrors.NewStoreFailureError("count supplier ingredients", result.Error)
	}
	return count, nil
}

// ListSuppliers returns all suppliers ordered by name
func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	var models []SupplierModel
	result := s.db.WithContext(ctx).Order("name ASC").Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewStoreFailureError("list suppliers", result.Error)
	}
	suppliers := make([]domain.Supplier, 0, len(models))
	for i := range models {
		suppliers = append(suppliers, *supplierToDomain(&models[i]))
	}
	return suppliers, nil
}

// IngredientBySlug finds an ingredient by slug, optionally with its supplier
func (s *Store) IngredientBySlug(ctx context.Context, slug string, withSupplier bool) (*domain.Ingredient, error) {
	var model IngredientModel
	query := s.db.WithContext(ctx)
	if withSupplier {
		query = query.Preload("Supplier")
	}
	result := query.First(&model, "slug = ?", slug)
	if result.Error != nil {
		if errors.Is(result.Error, gormlib.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("ingredient", slug)
		}
		return nil, apperrors.NewStoreFailureError("find ingredient", result.Error)
	}
	return ingredientToDomain(&model), nil
}

// IngredientExists reports whether an ingredient row with the slug exists
func (s *Store) IngredientExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&IngredientModel{}).
		Where("slug = ?", slug).
		Count(&count)
	if result.Error != nil {
		return false, apperrors.NewStoreFailureError("count ingredients", result.Error)
	}
	return count > 0, nil
}

// SaveIngredient creates or updates an ingredient row
func (s *Store) SaveIngredient(ctx context.Context, ingredient *domain.Ingredient) error {
	model := ingredientToModel(ingredient)
	result := s.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return apperrors.NewStoreFailureError("save ingredient", result.Error)
	}
	ingredient.ID = model.ID
	ingredient.CreatedAt = model.CreatedAt
	ingredient.UpdatedAt = model.UpdatedAt
	return nil
}

// DeleteIngredient removes an ingredient row by slug
func (s *Store) DeleteIngredient(ctx context.Context, slug string) error {
	result := s.db.WithContext(ctx).Delete(&IngredientModel{}, "slug = ?", slug)
	if result.Error != nil {
		return apperrors.NewStoreFailureError("delete ingredient", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("ingredient", slug)
	}
	return nil
}

// IngredientLineCount counts recipe lines still referencing an ingredient
func (s *Store) IngredientLineCount(ctx context.Context, ingredientID uuid.UUID) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&RecipeLineModel{}).
		Where("ingredient_id = ?", ingredientID).
		Count(&count)
	if result.Error != nil {
		return 0, apperrors.NewStoreFailureError("count ingredient lines", result.Error)
	}
	return count, nil
}

// ListIngredients returns all ingredients with suppliers, ordered by name
func (s *Store) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	var models []IngredientModel
	result := s.db.WithContext(ctx).
		Preload("Supplier").
		Order("name ASC").
		Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewStoreFailureError("list ingredients", result.Error)
	}
	ingredients := make([]domain.Ingredient, 0, len(models))
	for i := range models {
		ingredients = append(ingredients, *ingredientToDomain(&models[i]))
	}
	return ingredients, nil
}

// RecipeBySlug finds a recipe by slug. With withLines set it preloads the
// line set and each line's referent, plus the parent chain one level up.
func (s *Store) RecipeBySlug(ctx context.Context, slug string, withLines bool) (*domain.Recipe, error) {
	var model RecipeModel
	query := s.db.WithContext(ctx)
	if withLines {
		query = query.
			Preload("Lines").
			Preload("Lines.Ingredient").
			Preload("Lines.SubRecipe").
			Preload("Parent").
			Preload("Parent.Lines").
			Preload("Parent.Lines.Ingredient").
			Preload("Parent.Lines.SubRecipe")
	}
	result := query.First(&model, "slug = ?", slug)
	if result.Error != nil {
		if errors.Is(result.Error, gormlib.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("recipe", slug)
		}
		return nil, apperrors.NewStoreFailureError("find recipe", result.Error)
	}
	return recipeToDomain(&model), nil
}

// RecipeByID finds a recipe by primary key, without relations
func (s *Store) RecipeByID(ctx context.Context, id uuid.UUID) (*domain.Recipe, error) {
	var model RecipeModel
	result := s.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gormlib.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("recipe", id.String())
		}
		return nil, apperrors.NewStoreFailureError("find recipe", result.Error)
	}
	return recipeToDomain(&model), nil
}

// RecipeExists reports whether a recipe row with the slug exists
func (s *Store) RecipeExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&RecipeModel{}).
		Where("slug = ?", slug).
		Count(&count)
	if result.Error != nil {
		return false, apperrors.NewStoreFailureError("count recipes", result.Error)
	}
	return count > 0, nil
}

// SaveRecipeWithLines writes the recipe row and replaces its line set in
// one transaction.
func (s *Store) SaveRecipeWithLines(ctx context.Context, recipe *domain.Recipe, lines []domain.RecipeLine) error {
	model := recipeToModel(recipe)
	err := s.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := tx.Delete(&RecipeLineModel{}, "recipe_id = ?", model.ID).Error; err != nil {
			return err
		}
		for i := range lines {
			lineModel := lineToModel(&lines[i])
			lineModel.RecipeID = model.ID
			if err := tx.Create(lineModel).Error; err != nil {
				return err
			}
			lines[i].ID = lineModel.ID
			lines[i].RecipeID = model.ID
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStoreFailureError("save recipe", err)
	}
	recipe.ID = model.ID
	recipe.CreatedAt = model.CreatedAt
	recipe.UpdatedAt = model.UpdatedAt
	recipe.Lines = lines
	return nil
}

// DeleteRecipe removes a recipe row and its lines by slug
func (s *Store) DeleteRecipe(ctx context.Context, slug string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		var model RecipeModel
		if err := tx.First(&model, "slug = ?", slug).Error; err != nil {
			return err
		}
		if err := tx.Delete(&RecipeLineModel{}, "recipe_id = ?", model.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&RecipeModel{}, "id = ?", model.ID).Error
	})
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("recipe", slug)
		}
		return apperrors.NewStoreFailureError("delete recipe", err)
	}
	return nil
}

// SubRecipeLineCount counts recipe lines still referencing a recipe as a
// sub-recipe.
func (s *Store) SubRecipeLineCount(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&RecipeLineModel{}).
		Where("sub_recipe_id = ?", recipeID).
		Count(&count)
	if result.Error != nil {
		return 0, apperrors.NewStoreFailureError("count sub-recipe lines", result.Error)
	}
	return count, nil
}

// ListRecipes returns recipes ordered by name, optionally filtered by stage
func (s *Store) ListRecipes(ctx context.Context, stage domain.RecipeStage) ([]domain.Recipe, error) {
	var models []RecipeModel
	query := s.db.WithContext(ctx).Order("name ASC")
	if stage != "" {
		query = query.Where("stage = ?", stage)
	}
	result := query.Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewStoreFailureError("list recipes", result.Error)
	}
	recipes := make([]domain.Recipe, 0, len(models))
	for i := range models {
		recipes = append(recipes, *recipeToDomain(&models[i]))
	}
	return recipes, nil
}
