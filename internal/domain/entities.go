// Package domain contains the persistent entities of the menu costing engine.
// All monetary amounts are integer minor units (pence); percentages are
// integers in [0,100] unless noted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecipeStage describes where a recipe sits in its lifecycle
type RecipeStage string

const (
	StageDevelopment  RecipeStage = "development"
	StageActive       RecipeStage = "active"
	StageDiscontinued RecipeStage = "discontinued"
)

// RecipeClass describes what role a recipe plays on the menu
type RecipeClass string

const (
	ClassMenuItem     RecipeClass = "menu_item"
	ClassBaseTemplate RecipeClass = "base_template"
	ClassSubRecipe    RecipeClass = "sub_recipe"
)

// Supplier is a source of purchased ingredients. The slug is the stable
// natural key; everything else is mutable.
type Supplier struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	ContactName  string
	ContactEmail string
	ContactPhone string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ingredient is a purchasable input. SupplierID is immutable after creation.
type Ingredient struct {
	ID             uuid.UUID
	Slug           string
	Name           string
	Category       string
	PurchaseUnit   string // quantity-with-unit string, e.g. "1kg"
	PurchaseCost   int64  // minor units
	IncludesVAT    bool
	ConversionRule string // optional, e.g. "1 loaf = 16 slices"
	SupplierID     *uuid.UUID
	Notes          string
	LastPurchased  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Supplier *Supplier
}

// Recipe is a costed menu entry. ParentID is immutable after creation.
// SellPrice is stored as entered; IncludesVAT records whether it already
// carries VAT.
type Recipe struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	Stage        RecipeStage
	Class        RecipeClass
	Category     string
	SellPrice    int64 // minor units
	IncludesVAT  bool
	TargetMargin int // 0-100
	YieldAmount  string
	YieldUnit    string
	ParentID     *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Parent *Recipe
	Lines  []RecipeLine
}

// RecipeLine ties a recipe to exactly one ingredient or sub-recipe.
// The line set is replaced atomically with its recipe.
type RecipeLine struct {
	ID           uuid.UUID
	RecipeID     uuid.UUID
	IngredientID *uuid.UUID
	SubRecipeID  *uuid.UUID
	Unit         string // quantity-with-unit string, e.g. "25g"
	Notes        string

	Ingredient *Ingredient
	SubRecipe  *Recipe
}

// Validate checks the line discriminator invariant
func (l RecipeLine) Validate() error {
	if (l.IngredientID == nil) == (l.SubRecipeID == nil) {
		return ErrLineDiscriminator
	}
	return nil
}

// Validate checks ingredient invariants
func (i Ingredient) Validate() error {
	if i.PurchaseCost < 0 {
		return ErrNegativePurchaseCost
	}
	return nil
}

// Validate checks recipe invariants
func (r Recipe) Validate() error {
	if r.TargetMargin < 0 || r.TargetMargin > 100 {
		return ErrTargetMarginRange
	}
	switch r.Stage {
	case StageDevelopment, StageActive, StageDiscontinued:
	default:
		return ErrUnknownStage
	}
	switch r.Class {
	case ClassMenuItem, ClassBaseTemplate, ClassSubRecipe:
	default:
		return ErrUnknownClass
	}
	return nil
}
