package domain

import "errors"

// Domain errors for entity invariants

var (
	ErrLineDiscriminator    = errors.New("recipe line must reference exactly one of ingredient or sub-recipe")
	ErrNegativePurchaseCost = errors.New("purchase cost must not be negative")
	ErrTargetMarginRange    = errors.New("target margin must be between 0 and 100")
	ErrUnknownStage         = errors.New("unknown recipe stage")
	ErrUnknownClass         = errors.New("unknown recipe class")

	ErrSupplierInUse    = errors.New("supplier is referenced by ingredients and cannot be deleted")
	ErrIngredientInUse  = errors.New("ingredient is referenced by recipe lines and cannot be deleted")
	ErrSubRecipeInUse   = errors.New("sub-recipe is referenced by recipe lines and cannot be deleted")
	ErrMissingSellPrice = errors.New("recipe requires a sell price or an inheritable parent")
	ErrMissingYield     = errors.New("sub-recipe requires yield amount and unit")
)
