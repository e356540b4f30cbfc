// Package recipe implements the recipe entity service: upserts with an
// atomic line-set replacement, parent template inheritance, and deletion
// guarded by sub-recipe references. The parent link is immutable after
// creation.
package recipe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/ports/outbound"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// Defaults carries the configured pricing defaults applied to recipes
// that declare none.
type Defaults struct {
	PriceIncludesVAT bool
	MarginTarget     int
}

// Service handles recipe persistence
type Service struct {
	store    outbound.Store
	cache    *cache.Cache
	defaults Defaults
	log      *zap.Logger
}

// NewService creates a recipe service
func NewService(store outbound.Store, cache *cache.Cache, defaults Defaults, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, defaults: defaults, log: log}
}

// comparison fields for the change detector; the parent link is handled
// separately because it is immutable rather than merely changed
var changeFields = schema.FieldMap{
	"name":          "name",
	"stage":         "stage",
	"class":         "class",
	"category":      "category",
	"sell_price":    "sell_price",
	"includes_vat":  "includes_vat",
	"target_margin": "target_margin",
	"yield_amount":  "yield_amount",
	"yield_unit":    "yield_unit",
	"lines":         "lines",
}

// Processor returns the import pipeline hook for recipe files
func (s *Service) Processor() importer.Processor {
	return func(ctx context.Context, run *importer.Run, file *schema.ResolvedFile) (importer.Outcome, error) {
		return s.Upsert(ctx, file.Recipe)
	}
}

// Exists reports whether a recipe with the slug is persisted
func (s *Service) Exists(ctx context.Context, slug string) (bool, error) {
	return s.store.RecipeExists(ctx, slug)
}

// FindBySlug returns one recipe. With withLines set the returned line
// set is the union of the recipe's own lines and its parent template's.
func (s *Service) FindBySlug(ctx context.Context, slug string, withLines bool) (*domain.Recipe, error) {
	recipe, err := s.store.RecipeBySlug(ctx, slug, withLines)
	if err != nil {
		return nil, err
	}
	if withLines && recipe.Parent != nil {
		recipe.Lines = append(recipe.Lines, recipe.Parent.Lines...)
	}
	return recipe, nil
}

// List returns recipes, optionally filtered by stage
func (s *Service) List(ctx context.Context, stage domain.RecipeStage) ([]domain.Recipe, error) {
	return s.store.ListRecipes(ctx, stage)
}

// Upsert persists a resolved recipe and replaces its line set
// atomically. Every line referent must already be persisted; changing
// the parent of an existing recipe fails with ImmutableField.
func (s *Service) Upsert(ctx context.Context, in *schema.ResolvedRecipe) (importer.Outcome, error) {
	if in == nil {
		return "", apperrors.NewInternalError("recipe payload missing")
	}

	existing, err := s.store.RecipeBySlug(ctx, in.Slug, true)
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		return "", err
	}

	parent, err := s.resolveParent(ctx, in, existing)
	if err != nil {
		return "", err
	}
	lines, lineRecords, err := s.resolveLines(ctx, in)
	if err != nil {
		return "", err
	}

	entity := s.buildEntity(in, existing, parent)
	if err := entity.Validate(); err != nil {
		return "", apperrors.NewInvariantViolationError(err.Error())
	}
	if entity.Class == domain.ClassSubRecipe && (entity.YieldAmount == "" || entity.YieldUnit == "") {
		return "", apperrors.NewInvariantViolationError(
			fmt.Sprintf("sub-recipe %s must declare yieldAmount and yieldUnit", entity.Slug))
	}

	incoming := map[string]interface{}{
		"name":          entity.Name,
		"stage":         string(entity.Stage),
		"class":         string(entity.Class),
		"category":      entity.Category,
		"sell_price":    entity.SellPrice,
		"includes_vat":  entity.IncludesVAT,
		"target_margin": entity.TargetMargin,
		"yield_amount":  entity.YieldAmount,
		"yield_unit":    entity.YieldUnit,
		"lines":         lineRecords,
	}
	if !schema.HasChanges(existingRecord(existing), incoming, changeFields) {
		return importer.OutcomeIgnored, nil
	}

	if err := s.store.SaveRecipeWithLines(ctx, entity, lines); err != nil {
		return "", err
	}
	s.cache.InvalidateComputed()
	s.log.Info("recipe saved",
		zap.String("slug", entity.Slug),
		zap.Int("lines", len(lines)))

	if existing == nil {
		return importer.OutcomeCreated, nil
	}
	return importer.OutcomeUpserted, nil
}

// Delete removes a recipe and its lines. Rejected while other recipes
// consume it as a sub-recipe.
func (s *Service) Delete(ctx context.Context, slug string) error {
	existing, err := s.store.RecipeBySlug(ctx, slug, false)
	if err != nil {
		return err
	}
	count, err := s.store.SubRecipeLineCount(ctx, existing.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewInvariantViolationError(
			"recipe " + slug + " is still consumed as a sub-recipe").
			WithCause(domain.ErrSubRecipeInUse)
	}
	if err := s.store.DeleteRecipe(ctx, slug); err != nil {
		return err
	}
	s.cache.InvalidateComputed()
	return nil
}

func (s *Service) buildEntity(in *schema.ResolvedRecipe, existing *domain.Recipe, parent *domain.Recipe) *domain.Recipe {
	entity := &domain.Recipe{
		Slug:        in.Slug,
		Name:        in.Name,
		Stage:       domain.StageDevelopment,
		Class:       domain.ClassMenuItem,
		Category:    in.Category,
		IncludesVAT: s.defaults.PriceIncludesVAT,
		YieldAmount: in.YieldAmount,
		YieldUnit:   in.YieldUnit,
	}
	if in.Stage != "" {
		entity.Stage = domain.RecipeStage(in.Stage)
	}
	if in.Class != "" {
		entity.Class = domain.RecipeClass(in.Class)
	}
	if in.Price != nil {
		entity.SellPrice = *in.Price
	}
	if in.VAT != nil {
		entity.IncludesVAT = *in.VAT
	}
	if in.Margin != nil {
		entity.TargetMargin = *in.Margin
	}
	if parent != nil {
		entity.ParentID = &parent.ID
	}
	if existing != nil {
		entity.ID = existing.ID
		entity.CreatedAt = existing.CreatedAt
		if entity.ParentID == nil {
			entity.ParentID = existing.ParentID
		}
	}
	return entity
}

// resolveParent maps the extends slug to a persisted recipe and enforces
// link immutability. An absent incoming slug keeps the existing link.
func (s *Service) resolveParent(ctx context.Context, in *schema.ResolvedRecipe, existing *domain.Recipe) (*domain.Recipe, error) {
	if in.ExtendsSlug == "" {
		return nil, nil
	}
	parent, err := s.store.RecipeBySlug(ctx, in.ExtendsSlug, false)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil, apperrors.NewMissingDependencyError(in.Slug, in.ExtendsSlug)
		}
		return nil, err
	}
	if existing != nil && existing.ParentID != nil && *existing.ParentID != parent.ID {
		return nil, apperrors.NewImmutableFieldError("recipe", "parentId")
	}
	return parent, nil
}

// resolveLines maps resolved line slugs to persisted referents and
// builds both the line entities and the change-detector record.
func (s *Service) resolveLines(ctx context.Context, in *schema.ResolvedRecipe) ([]domain.RecipeLine, []interface{}, error) {
	lines := make([]domain.RecipeLine, 0, len(in.Lines))
	records := make([]interface{}, 0, len(in.Lines))
	for _, line := range in.Lines {
		entity := domain.RecipeLine{Unit: line.Unit, Notes: line.Notes}
		switch line.Kind {
		case schema.LineRecipe:
			sub, err := s.store.RecipeBySlug(ctx, line.Slug, false)
			if err != nil {
				if apperrors.Is(err, apperrors.CodeNotFound) {
					return nil, nil, apperrors.NewMissingDependencyError(in.Slug, line.Slug)
				}
				return nil, nil, err
			}
			entity.SubRecipeID = &sub.ID
		default:
			ing, err := s.store.IngredientBySlug(ctx, line.Slug, false)
			if err != nil {
				if apperrors.Is(err, apperrors.CodeNotFound) {
					return nil, nil, apperrors.NewMissingDependencyError(in.Slug, line.Slug)
				}
				return nil, nil, err
			}
			entity.IngredientID = &ing.ID
		}
		lines = append(lines, entity)
		records = append(records, lineRecord(line.Slug, string(line.Kind), line.Unit, line.Notes))
	}
	return lines, records, nil
}

func lineRecord(slug, kind, unit, notes string) string {
	return fmt.Sprintf("%s|%s|%s|%s", slug, kind, unit, notes)
}

func existingRecord(existing *domain.Recipe) map[string]interface{} {
	if existing == nil {
		return nil
	}
	records := make([]interface{}, 0, len(existing.Lines))
	for _, line := range existing.Lines {
		slug, kind := lineReferent(line)
		records = append(records, lineRecord(slug, kind, line.Unit, line.Notes))
	}
	return map[string]interface{}{
		"name":          existing.Name,
		"stage":         string(existing.Stage),
		"class":         string(existing.Class),
		"category":      existing.Category,
		"sell_price":    existing.SellPrice,
		"includes_vat":  existing.IncludesVAT,
		"target_margin": existing.TargetMargin,
		"yield_amount":  existing.YieldAmount,
		"yield_unit":    existing.YieldUnit,
		"lines":         records,
	}
}

func lineReferent(line domain.RecipeLine) (slug, kind string) {
	if line.SubRecipeID != nil {
		if line.SubRecipe != nil {
			return line.SubRecipe.Slug, string(schema.LineRecipe)
		}
		return referentID(line.SubRecipeID), string(schema.LineRecipe)
	}
	if line.Ingredient != nil {
		return line.Ingredient.Slug, string(schema.LineIngredient)
	}
	return referentID(line.IngredientID), string(schema.LineIngredient)
}

func referentID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
