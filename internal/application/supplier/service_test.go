package supplier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/ports/outbound"
	"github.com/platewise/platewise/pkg/logger"
	"github.com/platewise/platewise/test/testutils"

	apperrors "github.com/platewise/platewise/pkg/errors"
)

func newService(t *testing.T) (*Service, outbound.Store) {
	t.Helper()
	store, _ := testutils.NewTestStore(t)
	return NewService(store, cache.New(time.Minute), logger.NewNop()), store
}

func payload() *schema.ResolvedSupplier {
	return &schema.ResolvedSupplier{
		Slug:         "smithfield-wholesale",
		Name:         "Smithfield Wholesale",
		ContactName:  "Pat Smith",
		ContactEmail: "pat@smithfield.example",
	}
}

func TestUpsertLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	outcome, err := svc.Upsert(ctx, payload())
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomeCreated, outcome)

	first, err := svc.FindBySlug(ctx, "smithfield-wholesale")
	require.NoError(t, err)

	// identical payload is a no-op
	outcome, err = svc.Upsert(ctx, payload())
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomeIgnored, outcome)

	changed := payload()
	changed.Notes = "delivers tuesdays"
	outcome, err = svc.Upsert(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomeUpserted, outcome)

	// identity survives the update
	second, err := svc.FindBySlug(ctx, "smithfield-wholesale")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "delivers tuesdays", second.Notes)
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, payload())
	require.NoError(t, err)
	supplier, err := svc.FindBySlug(ctx, "smithfield-wholesale")
	require.NoError(t, err)

	ing := testutils.NewIngredientBuilder().WithSupplier(supplier.ID).Build()
	require.NoError(t, store.SaveIngredient(ctx, ing))

	err = svc.Delete(ctx, "smithfield-wholesale")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvariantViolation))
	assert.True(t, errors.Is(err, domain.ErrSupplierInUse))

	// still there
	_, err = svc.FindBySlug(ctx, "smithfield-wholesale")
	assert.NoError(t, err)
}

func TestDeleteUnreferenced(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, payload())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "smithfield-wholesale"))

	_, err = svc.FindBySlug(ctx, "smithfield-wholesale")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestDeleteMissing(t *testing.T) {
	svc, _ := newService(t)
	err := svc.Delete(context.Background(), "never-existed")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}
