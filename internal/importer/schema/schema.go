// Package schema defines the declarative entity file format, validates
// payloads and derives slugs. Entity files are YAML or JSON documents of
// the shape {object: <type>, data: <payload>}.
package schema

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/platewise/platewise/internal/units"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// Entity object types
const (
	ObjectSupplier   = "supplier"
	ObjectIngredient = "ingredient"
	ObjectRecipe     = "recipe"
)

var validate = validator.New()

// Document is a parsed entity file. Exactly one payload field is set,
// matching Object.
type Document struct {
	Object string
	Slug   string

	Supplier   *SupplierPayload
	Ingredient *IngredientPayload
	Recipe     *RecipePayload
}

// Reference wraps a "uses" reference string
type Reference struct {
	Uses string `yaml:"uses" json:"uses" validate:"required"`
}

// ContactPayload holds optional supplier contact details
type ContactPayload struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Email string `yaml:"email,omitempty" json:"email,omitempty" validate:"omitempty,email"`
	Phone string `yaml:"phone,omitempty" json:"phone,omitempty"`
}

// SupplierPayload is the data section of a supplier file
type SupplierPayload struct {
	Slug    string          `yaml:"slug,omitempty" json:"slug,omitempty"`
	Name    string          `yaml:"name" json:"name" validate:"required"`
	Contact *ContactPayload `yaml:"contact,omitempty" json:"contact,omitempty"`
	Notes   string          `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// PurchasePayload describes how an ingredient is bought
type PurchasePayload struct {
	Unit string `yaml:"unit" json:"unit" validate:"required"`
	Cost int64  `yaml:"cost" json:"cost" validate:"gte=0"`
	VAT  bool   `yaml:"vat,omitempty" json:"vat,omitempty"`
}

// IngredientPayload is the data section of an ingredient file
type IngredientPayload struct {
	Slug           string          `yaml:"slug,omitempty" json:"slug,omitempty"`
	Name           string          `yaml:"name" json:"name" validate:"required"`
	Category       string          `yaml:"category" json:"category" validate:"required"`
	Purchase       PurchasePayload `yaml:"purchase" json:"purchase" validate:"required"`
	Supplier       *Reference      `yaml:"supplier,omitempty" json:"supplier,omitempty"`
	ConversionRate string          `yaml:"conversionRate,omitempty" json:"conversionRate,omitempty"`
	Notes          string          `yaml:"notes,omitempty" json:"notes,omitempty"`
	LastPurchased  string          `yaml:"lastPurchased,omitempty" json:"lastPurchased,omitempty"`
}

// CostingPayload holds the pricing block of a recipe
type CostingPayload struct {
	Price  *int64 `yaml:"price,omitempty" json:"price,omitempty" validate:"omitempty,gte=0"`
	Margin *int   `yaml:"margin,omitempty" json:"margin,omitempty" validate:"omitempty,gte=0,lte=100"`
	VAT    *bool  `yaml:"vat,omitempty" json:"vat,omitempty"`
}

// LineDetail carries the quantity of a recipe line
type LineDetail struct {
	Unit  string `yaml:"unit" json:"unit" validate:"required"`
	Notes string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// RecipeLinePayload is one "ingredients" entry of a recipe file. Type is
// an advisory hint; the import pipeline infers the authoritative kind
// from the referent.
type RecipeLinePayload struct {
	Uses string     `yaml:"uses" json:"uses" validate:"required"`
	Type string     `yaml:"type,omitempty" json:"type,omitempty" validate:"omitempty,oneof=ingredient recipe"`
	With LineDetail `yaml:"with" json:"with"`
}

// RecipePayload is the data section of a recipe file
type RecipePayload struct {
	Slug        string              `yaml:"slug,omitempty" json:"slug,omitempty"`
	Name        string              `yaml:"name" json:"name" validate:"required"`
	Stage       string              `yaml:"stage,omitempty" json:"stage,omitempty" validate:"omitempty,oneof=development active discontinued"`
	Class       string              `yaml:"class,omitempty" json:"class,omitempty" validate:"omitempty,oneof=menu_item base_template sub_recipe"`
	Category    string              `yaml:"category,omitempty" json:"category,omitempty"`
	Extends     string              `yaml:"extends,omitempty" json:"extends,omitempty"`
	Costing     *CostingPayload     `yaml:"costing,omitempty" json:"costing,omitempty"`
	YieldAmount string              `yaml:"yieldAmount,omitempty" json:"yieldAmount,omitempty"`
	YieldUnit   string              `yaml:"yieldUnit,omitempty" json:"yieldUnit,omitempty"`
	Ingredients []RecipeLinePayload `yaml:"ingredients,omitempty" json:"ingredients,omitempty" validate:"dive"`
	Notes       string              `yaml:"notes,omitempty" json:"notes,omitempty"`
}

type envelope struct {
	Object string    `yaml:"object"`
	Data   yaml.Node `yaml:"data"`
}

// Parse decodes and validates an entity file. The path is only used for
// error reporting. YAML and JSON inputs are both accepted.
func Parse(path string, raw []byte) (*Document, error) {
	var env envelope
	if err := yaml.Unmarshal(raw, &env); err != nil {
		return nil, apperrors.NewInputMalformedError(path, err)
	}
	if env.Data.Kind == 0 {
		return nil, apperrors.NewInputMalformedError(path, fmt.Errorf("missing data section"))
	}

	doc := &Document{Object: env.Object}
	var err error
	switch env.Object {
	case ObjectSupplier:
		payload := &SupplierPayload{}
		err = decodeAndValidate(&env.Data, payload)
		doc.Supplier = payload
		doc.Slug = slugOrDerive(payload.Slug, payload.Name)
	case ObjectIngredient:
		payload := &IngredientPayload{}
		if err = decodeAndValidate(&env.Data, payload); err == nil {
			err = validateIngredient(payload)
		}
		doc.Ingredient = payload
		doc.Slug = slugOrDerive(payload.Slug, payload.Name)
	case ObjectRecipe:
		payload := &RecipePayload{}
		if err = decodeAndValidate(&env.Data, payload); err == nil {
			err = validateRecipe(payload)
		}
		doc.Recipe = payload
		doc.Slug = slugOrDerive(payload.Slug, payload.Name)
	default:
		return nil, apperrors.NewInputMalformedError(path, fmt.Errorf("unknown object type %q", env.Object))
	}

	if err != nil {
		// payload validators return coded errors; keep their codes visible
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, appErr
		}
		return nil, apperrors.NewInputMalformedError(path, err)
	}
	if doc.Slug == "" {
		return nil, apperrors.NewInputMalformedError(path, fmt.Errorf("cannot derive a slug from name"))
	}
	return doc, nil
}

func decodeAndValidate(node *yaml.Node, out interface{}) error {
	if err := node.Decode(out); err != nil {
		return err
	}
	if err := validate.Struct(out); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return diagnostics(verrs)
		}
		return err
	}
	return nil
}

func validateIngredient(p *IngredientPayload) error {
	if _, ok := units.ParseQuantity(p.Purchase.Unit); !ok {
		return apperrors.NewUnitUnparseableError(p.Purchase.Unit)
	}
	if p.LastPurchased != "" {
		if _, err := time.Parse(time.RFC3339, p.LastPurchased); err != nil {
			if _, err := time.Parse("2006-01-02", p.LastPurchased); err != nil {
				return fmt.Errorf("lastPurchased must be an ISO-8601 date: %q", p.LastPurchased)
			}
		}
	}
	return nil
}

func validateRecipe(p *RecipePayload) error {
	// price is required unless an extends reference can provide it
	hasPrice := p.Costing != nil && p.Costing.Price != nil
	if !hasPrice && p.Extends == "" {
		return fmt.Errorf("costing.price is required unless extends is set")
	}
	return nil
}

// diagnostics flattens validator errors into one structured message
func diagnostics(verrs validator.ValidationErrors) error {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("validation: %s", strings.Join(parts, "; "))
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a url-safe slug from an entity name
func Slugify(name string) string {
	folded, _, err := transform.String(deaccent, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func slugOrDerive(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return Slugify(name)
}
