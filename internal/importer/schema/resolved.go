package schema

// LineKind is the authoritative discriminator of a resolved recipe line
type LineKind string

const (
	LineIngredient LineKind = "ingredient"
	LineRecipe     LineKind = "recipe"
)

// ResolvedSupplier is a supplier payload ready to persist
type ResolvedSupplier struct {
	Slug         string
	Name         string
	ContactName  string
	ContactEmail string
	ContactPhone string
	Notes        string
}

// ResolvedIngredient is an ingredient payload with its supplier reference
// replaced by a plain slug
type ResolvedIngredient struct {
	Slug           string
	Name           string
	Category       string
	PurchaseUnit   string
	PurchaseCost   int64
	IncludesVAT    bool
	SupplierSlug   string
	ConversionRate string
	Notes          string
	LastPurchased  string
}

// ResolvedLine is a recipe line with its reference replaced by a slug and
// a correctly-typed discriminator
type ResolvedLine struct {
	Slug  string
	Kind  LineKind
	Unit  string
	Notes string
}

// ResolvedRecipe is a recipe payload with extends and line references
// replaced by slugs
type ResolvedRecipe struct {
	Slug        string
	Name        string
	Stage       string
	Class       string
	Category    string
	ExtendsSlug string
	Price       *int64
	Margin      *int
	VAT         *bool
	YieldAmount string
	YieldUnit   string
	Lines       []ResolvedLine
	Notes       string
}

// ResolvedFile is the phase-2 output for one entity file. Exactly one
// payload field is set, matching Object.
type ResolvedFile struct {
	Path   string
	Object string
	Slug   string

	Supplier   *ResolvedSupplier
	Ingredient *ResolvedIngredient
	Recipe     *ResolvedRecipe
}
