// Package supplier implements the supplier entity service: lookups,
// upserts driven by the change detector, and deletion guarded by
// referential integrity.
package supplier

import (
	"context"

	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/ports/outbound"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// Service handles supplier persistence
type Service struct {
	store outbound.Store
	cache *cache.Cache
	log   *zap.Logger
}

// NewService creates a supplier service
func NewService(store outbound.Store, cache *cache.Cache, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

// comparison fields for the change detector
var changeFields = schema.FieldMap{
	"name":          "name",
	"contact_name":  "contact_name",
	"contact_email": "contact_email",
	"contact_phone": "contact_phone",
	"notes":         "notes",
}

// Processor returns the import pipeline hook for supplier files
func (s *Service) Processor() importer.Processor {
	return func(ctx context.Context, run *importer.Run, file *schema.ResolvedFile) (importer.Outcome, error) {
		return s.Upsert(ctx, file.Supplier)
	}
}

// Exists reports whether a supplier with the slug is persisted
func (s *Service) Exists(ctx context.Context, slug string) (bool, error) {
	return s.store.SupplierExists(ctx, slug)
}

// FindBySlug returns one supplier
func (s *Service) FindBySlug(ctx context.Context, slug string) (*domain.Supplier, error) {
	return s.store.SupplierBySlug(ctx, slug)
}

// List returns all suppliers
func (s *Service) List(ctx context.Context) ([]domain.Supplier, error) {
	return s.store.ListSuppliers(ctx)
}

// Upsert persists a resolved supplier. Unchanged records are ignored.
func (s *Service) Upsert(ctx context.Context, in *schema.ResolvedSupplier) (importer.Outcome, error) {
	if in == nil {
		return "", apperrors.NewInternalError("supplier payload missing")
	}

	existing, err := s.store.SupplierBySlug(ctx, in.Slug)
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		return "", err
	}

	incoming := map[string]interface{}{
		"name":          in.Name,
		"contact_name":  in.ContactName,
		"contact_email": in.ContactEmail,
		"contact_phone": in.ContactPhone,
		"notes":         in.Notes,
	}
	if !schema.HasChanges(existingRecord(existing), incoming, changeFields) {
		return importer.OutcomeIgnored, nil
	}

	entity := &domain.Supplier{
		Slug:         in.Slug,
		Name:         in.Name,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		Notes:        in.Notes,
	}
	if existing != nil {
		entity.ID = existing.ID
		entity.CreatedAt = existing.CreatedAt
	}
	if err := s.store.SaveSupplier(ctx, entity); err != nil {
		return "", err
	}
	s.cache.InvalidateComputed()
	s.log.Info("supplier saved", zap.String("slug", entity.Slug))

	if existing == nil {
		return importer.OutcomeCreated, nil
	}
	return importer.OutcomeUpserted, nil
}

// Delete removes a supplier. Rejected while ingredients still reference it.
func (s *Service) Delete(ctx context.Context, slug string) error {
	existing, err := s.store.SupplierBySlug(ctx, slug)
	if err != nil {
		return err
	}
	count, err := s.store.SupplierIngredientCount(ctx, existing.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewInvariantViolationError(
			"supplier " + slug + " is still referenced by ingredients").
			WithCause(domain.ErrSupplierInUse)
	}
	if err := s.store.DeleteSupplier(ctx, slug); err != nil {
		return err
	}
	s.cache.InvalidateComputed()
	return nil
}

func existingRecord(existing *domain.Supplier) map[string]interface{} {
	if existing == nil {
		return nil
	}
	return map[string]interface{}{
		"name":          existing.Name,
		"contact_name":  existing.ContactName,
		"contact_email": existing.ContactEmail,
		"contact_phone": existing.ContactPhone,
		"notes":         existing.Notes,
	}
}
