package gorm

import "github.com/platewise/platewise/internal/domain"

func supplierToModel(s *domain.Supplier) *SupplierModel {
	return &SupplierModel{
		ID:           s.ID,
		Slug:         s.Slug,
		Name:         s.Name,
		ContactName:  s.ContactName,
		ContactEmail: s.ContactEmail,
		ContactPhone: s.ContactPhone,
		Notes:        s.Notes,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func supplierToDomain(m *SupplierModel) *domain.Supplier {
	return &domain.Supplier{
		ID:           m.ID,
		Slug:         m.Slug,
		Name:         m.Name,
		ContactName:  m.ContactName,
		ContactEmail: m.ContactEmail,
		ContactPhone: m.ContactPhone,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func ingredientToModel(i *domain.Ingredient) *IngredientModel {
	return &IngredientModel{
		ID:             i.ID,
		Slug:           i.Slug,
		Name:           i.Name,
		Category:       i.Category,
		PurchaseUnit:   i.PurchaseUnit,
		PurchaseCost:   i.PurchaseCost,
		IncludesVAT:    i.IncludesVAT,
		ConversionRule: i.ConversionRule,
		SupplierID:     i.SupplierID,
		Notes:          i.Notes,
		LastPurchased:  i.LastPurchased,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

func ingredientToDomain(m *IngredientModel) *domain.Ingredient {
	ingredient := &domain.Ingredient{
		ID:             m.ID,
		Slug:           m.Slug,
		Name:           m.Name,
		Category:       m.Category,
		PurchaseUnit:   m.PurchaseUnit,
		PurchaseCost:   m.PurchaseCost,
		IncludesVAT:    m.IncludesVAT,
		ConversionRule: m.ConversionRule,
		SupplierID:     m.SupplierID,
		Notes:          m.Notes,
		LastPurchased:  m.LastPurchased,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Supplier != nil {
		ingredient.Supplier = supplierToDomain(m.Supplier)
	}
	return ingredient
}

func recipeToModel(r *domain.Recipe) *RecipeModel {
	return &RecipeModel{
		ID:           r.ID,
		Slug:         r.Slug,
		Name:         r.Name,
		Stage:        string(r.Stage),
		Class:        string(r.Class),
		Category:     r.Category,
		SellPrice:    r.SellPrice,
		IncludesVAT:  r.IncludesVAT,
		TargetMargin: r.TargetMargin,
		YieldAmount:  r.YieldAmount,
		YieldUnit:    r.YieldUnit,
		ParentID:     r.ParentID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func recipeToDomain(m *RecipeModel) *domain.Recipe {
	recipe := &domain.Recipe{
		ID:           m.ID,
		Slug:         m.Slug,
		Name:         m.Name,
		Stage:        domain.RecipeStage(m.Stage),
		Class:        domain.RecipeClass(m.Class),
		Category:     m.Category,
		SellPrice:    m.SellPrice,
		IncludesVAT:  m.IncludesVAT,
		TargetMargin: m.TargetMargin,
		YieldAmount:  m.YieldAmount,
		YieldUnit:    m.YieldUnit,
		ParentID:     m.ParentID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.Parent != nil {
		recipe.Parent = recipeToDomain(m.Parent)
	}
	for i := range m.Lines {
		recipe.Lines = append(recipe.Lines, *lineToDomain(&m.Lines[i]))
	}
	return recipe
}

func lineToModel(l *domain.RecipeLine) *RecipeLineModel {
	return &RecipeLineModel{
		ID:           l.ID,
		RecipeID:     l.RecipeID,
		IngredientID: l.IngredientID,
		SubRecipeID:  l.SubRecipeID,
		Unit:         l.Unit,
		Notes:        l.Notes,
	}
}

func lineToDomain(m *RecipeLineModel) *domain.RecipeLine {
	line := &domain.RecipeLine{
		ID:           m.ID,
		RecipeID:     m.RecipeID,
		IngredientID: m.IngredientID,
		SubRecipeID:  m.SubRecipeID,
		Unit:         m.Unit,
		Notes:        m.Notes,
	}
	if m.Ingredient != nil {
		line.Ingredient = ingredientToDomain(m.Ingredient)
	}
	if m.SubRecipe != nil {
		line.SubRecipe = recipeToDomain(m.SubRecipe)
	}
	return line
}
