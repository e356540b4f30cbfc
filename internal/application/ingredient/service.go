// Package ingredient implements the ingredient entity service. The
// supplier link is immutable after creation; upserts are driven by the
// change detector.
package ingredient

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/ports/outbound"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// Service handles ingredient persistence
type Service struct {
	store outbound.Store
	cache *cache.Cache
	log   *zap.Logger
}

// NewService creates an ingredient service
func NewService(store outbound.Store, cache *cache.Cache, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

// comparison fields for the change detector; the supplier link is
// handled separately because it is immutable rather than merely changed
var changeFields = schema.FieldMap{
	"name":            "name",
	"category":        "category",
	"purchase_unit":   "purchase_unit",
	"purchase_cost":   "purchase_cost",
	"includes_vat":    "includes_vat",
	"conversion_rule": "conversion_rule",
	"notes":           "notes",
	"last_purchased":  "last_purchased",
}

// Processor returns the import pipeline hook for ingredient files
func (s *Service) Processor() importer.Processor {
	return func(ctx context.Context, run *importer.Run, file *schema.ResolvedFile) (importer.Outcome, error) {
		return s.Upsert(ctx, file.Ingredient)
	}
}

// Exists reports whether an ingredient with the slug is persisted
func (s *Service) Exists(ctx context.Context, slug string) (bool, error) {
	return s.store.IngredientExists(ctx, slug)
}

// FindBySlug returns one ingredient, optionally with its supplier
func (s *Service) FindBySlug(ctx context.Context, slug string, withSupplier bool) (*domain.Ingredient, error) {
	return s.store.IngredientBySlug(ctx, slug, withSupplier)
}

// List returns all ingredients with their suppliers
func (s *Service) List(ctx context.Context) ([]domain.Ingredient, error) {
	return s.store.ListIngredients(ctx)
}

// Upsert persists a resolved ingredient. The referenced supplier must
// already be persisted; changing the supplier of an existing ingredient
// fails with ImmutableField and leaves the store untouched.
func (s *Service) Upsert(ctx context.Context, in *schema.ResolvedIngredient) (importer.Outcome, error) {
	if in == nil {
		return "", apperrors.NewInternalError("ingredient payload missing")
	}

	existing, err := s.store.IngredientBySlug(ctx, in.Slug, true)
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		return "", err
	}

	supplier, err := s.resolveSupplier(ctx, in, existing)
	if err != nil {
		return "", err
	}

	// normalise the incoming date to the stored day precision, otherwise
	// an RFC 3339 value re-classifies an unchanged file as upserted
	lastPurchased := in.LastPurchased
	if at, ok := parseDate(in.LastPurchased); ok {
		lastPurchased = at.Format("2006-01-02")
	}

	incoming := map[string]interface{}{
		"name":            in.Name,
		"category":        in.Category,
		"purchase_unit":   in.PurchaseUnit,
		"purchase_cost":   in.PurchaseCost,
		"includes_vat":    in.IncludesVAT,
		"conversion_rule": in.ConversionRate,
		"notes":           in.Notes,
		"last_purchased":  lastPurchased,
	}
	if !schema.HasChanges(existingRecord(existing), incoming, changeFields) {
		return importer.OutcomeIgnored, nil
	}

	entity := &domain.Ingredient{
		Slug:           in.Slug,
		Name:           in.Name,
		Category:       in.Category,
		PurchaseUnit:   in.PurchaseUnit,
		PurchaseCost:   in.PurchaseCost,
		IncludesVAT:    in.IncludesVAT,
		ConversionRule: in.ConversionRate,
		Notes:          in.Notes,
	}
	if supplier != nil {
		entity.SupplierID = &supplier.ID
	}
	if existing != nil {
		entity.ID = existing.ID
		entity.CreatedAt = existing.CreatedAt
	}
	if in.LastPurchased != "" {
		if at, ok := parseDate(in.LastPurchased); ok {
			entity.LastPurchased = &at
		}
	}
	if err := entity.Validate(); err != nil {
		return "", apperrors.NewInvariantViolationError(err.Error())
	}

	if err := s.store.SaveIngredient(ctx, entity); err != nil {
		return "", err
	}
	s.cache.InvalidateComputed()
	s.log.Info("ingredient saved", zap.String("slug", entity.Slug))

	if existing == nil {
		return importer.OutcomeCreated, nil
	}
	return importer.OutcomeUpserted, nil
}

// resolveSupplier maps the incoming supplier slug to a persisted
// supplier and enforces link immutability. An absent incoming slug
// keeps the existing link.
func (s *Service) resolveSupplier(ctx context.Context, in *schema.ResolvedIngredient, existing *domain.Ingredient) (*domain.Supplier, error) {
	if in.SupplierSlug == "" {
		if existing != nil && existing.Supplier != nil {
			return existing.Supplier, nil
		}
		return nil, nil
	}

	supplier, err := s.store.SupplierBySlug(ctx, in.SupplierSlug)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil, apperrors.NewMissingDependencyError(in.Slug, in.SupplierSlug)
		}
		return nil, err
	}
	if existing != nil && existing.SupplierID != nil && *existing.SupplierID != supplier.ID {
		return nil, apperrors.NewImmutableFieldError("ingredient", "supplierId")
	}
	return supplier, nil
}

// Delete removes an ingredient. Rejected while recipe lines reference it.
func (s *Service) Delete(ctx context.Context, slug string) error {
	existing, err := s.store.IngredientBySlug(ctx, slug, false)
	if err != nil {
		return err
	}
	count, err := s.store.IngredientLineCount(ctx, existing.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewInvariantViolationError(
			"ingredient " + slug + " is still referenced by recipe lines").
			WithCause(domain.ErrIngredientInUse)
	}
	if err := s.store.DeleteIngredient(ctx, slug); err != nil {
		return err
	}
	s.cache.InvalidateComputed()
	return nil
}

func existingRecord(existing *domain.Ingredient) map[string]interface{} {
	if existing == nil {
		return nil
	}
	record := map[string]interface{}{
		"name":            existing.Name,
		"category":        existing.Category,
		"purchase_unit":   existing.PurchaseUnit,
		"purchase_cost":   existing.PurchaseCost,
		"includes_vat":    existing.IncludesVAT,
		"conversion_rule": existing.ConversionRule,
		"notes":           existing.Notes,
	}
	if existing.LastPurchased != nil {
		record["last_purchased"] = existing.LastPurchased.Format("2006-01-02")
	} else {
		record["last_purchased"] = ""
	}
	return record
}

func parseDate(value string) (time.Time, bool) {
	if at, err := time.Parse(time.RFC3339, value); err == nil {
		return at, true
	}
	if at, err := time.Parse("2006-01-02", value); err == nil {
		return at, true
	}
	return time.Time{}, false
}
