package recipe

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
	defaults := Defaults{PriceIncludesVAT: true, MarginTarget: 65}
	return NewService(store, cache.New(time.Minute), defaults, logger.NewNop()), store
}

func seedIngredient(t *testing.T, store outbound.Store, slug string) *domain.Ingredient {
	t.Helper()
	ing := testutils.NewIngredientBuilder().WithSlug(slug).Build()
	require.NoError(t, store.SaveIngredient(context.Background(), ing))
	return ing
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }

func payload() *schema.ResolvedRecipe {
	return &schema.ResolvedRecipe{
		Slug:  "ham-sandwich",
		Name:  "Ham Sandwich",
		Stage: "active",
		Price: int64Ptr(650),
		VAT:   boolPtr(true),
		Lines: []schema.ResolvedLine{
			{Slug: "ham", Kind: schema.LineIngredient, Unit: "25g"},
		},
	}
}

func TestUpsertLifecycle(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seedIngredient(t, store, "ham")

	outcome, err := svc.Upsert(ctx, payload())
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomeCreated, outcome)

	outcome, err = svc.Upsert(ctx, payload())
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomeIgnored, outcome)

	changed := payload()
	changed.Lines[0].Unit = "40g"
	outcome, err = svc.Upsert(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomeUpserted, outcome)

	stored, err := svc.FindBySlug(ctx, "ham-sandwich", true)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "40g", stored.Lines[0].Unit)
	assert.Equal(t, domain.StageActive, stored.Stage)
	assert.Equal(t, domain.ClassMenuItem, stored.Class)
}

func TestUpsertDefaults(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := &schema.ResolvedRecipe{Slug: "bare", Name: "Bare", Price: int64Ptr(100)}
	_, err := svc.Upsert(ctx, in)
	require.NoError(t, err)

	stored, err := svc.FindBySlug(ctx, "bare", false)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDevelopment, stored.Stage)
	assert.Equal(t, domain.ClassMenuItem, stored.Class)
	// configured default applies when the file stays silent on VAT
	assert.True(t, stored.IncludesVAT)
}

func TestUpsertReplacesLineSetAtomically(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seedIngredient(t, store, "ham")
	seedIngredient(t, store, "butter")

	in := payload()
	in.Lines = append(in.Lines, schema.ResolvedLine{Slug: "butter", Kind: schema.LineIngredient, Unit: "10g"})
	_, err := svc.Upsert(ctx, in)
	require.NoError(t, err)

	// drop back to a single line; the old set must not linger
	_, err = svc.Upsert(ctx, payload())
	require.NoError(t, err)

	stored, err := svc.FindBySlug(ctx, "ham-sandwich", true)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "ham", stored.Lines[0].Ingredient.Slug)
}

func TestUpsertMissingLineReferent(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Upsert(context.Background(), payload())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingDependency))
}

func TestUpsertSubRecipeLine(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sauce := &schema.ResolvedRecipe{
		Slug:        "house-sauce",
		Name:        "House Sauce",
		Class:       "sub_recipe",
		YieldAmount: "500",
		YieldUnit:   "ml",
	}
	_, err := svc.Upsert(ctx, sauce)
	require.NoError(t, err)

	dish := &schema.ResolvedRecipe{
		Slug:  "pasta-dish",
		Name:  "Pasta Dish",
		Price: int64Ptr(950),
		Lines: []schema.ResolvedLine{
			{Slug: "house-sauce", Kind: schema.LineRecipe, Unit: "50ml"},
		},
	}
	_, err = svc.Upsert(ctx, dish)
	require.NoError(t, err)

	stored, err := svc.FindBySlug(ctx, "pasta-dish", true)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	require.NotNil(t, stored.Lines[0].SubRecipe)
	assert.Equal(t, "house-sauce", stored.Lines[0].SubRecipe.Slug)
}

func TestSubRecipeRequiresYield(t *testing.T) {
	svc, _ := newService(t)

	in := &schema.ResolvedRecipe{Slug: "sauce", Name: "Sauce", Class: "sub_recipe"}
	_, err := svc.Upsert(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvariantViolation))
}

func TestParentLinkLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	base := &schema.ResolvedRecipe{
		Slug:  "base-sandwich",
		Name:  "Base Sandwich",
		Class: "base_template",
		Price: int64Ptr(550),
	}
	_, err := svc.Upsert(ctx, base)
	require.NoError(t, err)

	other := &schema.ResolvedRecipe{
		Slug:  "other-base",
		Name:  "Other Base",
		Class: "base_template",
		Price: int64Ptr(600),
	}
	_, err = svc.Upsert(ctx, other)
	require.NoError(t, err)

	child := &schema.ResolvedRecipe{
		Slug:        "ham-special",
		Name:        "Ham Special",
		ExtendsSlug: "base-sandwich",
	}
	_, err = svc.Upsert(ctx, child)
	require.NoError(t, err)

	// re-pointing the parent is refused
	child.ExtendsSlug = "other-base"
	_, err = svc.Upsert(ctx, child)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeImmutableField))

	// dropping the extends clause keeps the existing link
	child.ExtendsSlug = ""
	child.Notes = "lunch special"
	_, err = svc.Upsert(ctx, child)
	require.NoError(t, err)
	stored, err := svc.FindBySlug(ctx, "ham-special", false)
	require.NoError(t, err)
	require.NotNil(t, stored.ParentID)
}

func TestParentMissing(t *testing.T) {
	svc, _ := newService(t)

	in := &schema.ResolvedRecipe{
		Slug:        "orphan",
		Name:        "Orphan",
		Price:       int64Ptr(100),
		ExtendsSlug: "no-such-base",
	}
	_, err := svc.Upsert(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingDependency))
}

func TestFindBySlugUnionsParentLines(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	bread := seedIngredient(t, store, "bread")
	ham := seedIngredient(t, store, "ham")

	base, baseLines := testutils.NewRecipeBuilder().
		WithSlug("base-sandwich").
		WithClass(domain.ClassBaseTemplate).
		WithIngredientLine(bread.ID, "100g").
		Build()
	require.NoError(t, store.SaveRecipeWithLines(ctx, base, baseLines))

	child, childLines := testutils.NewRecipeBuilder().
		WithSlug("ham-special").
		WithParent(base.ID).
		WithIngredientLine(ham.ID, "25g").
		Build()
	require.NoError(t, store.SaveRecipeWithLines(ctx, child, childLines))

	stored, err := svc.FindBySlug(ctx, "ham-special", true)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, "ham", stored.Lines[0].Ingredient.Slug)
	assert.Equal(t, "bread", stored.Lines[1].Ingredient.Slug)
}

func TestInvalidStage(t *testing.T) {
	svc, _ := newService(t)

	in := &schema.ResolvedRecipe{Slug: "x", Name: "X", Stage: "retired", Price: int64Ptr(100)}
	_, err := svc.Upsert(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvariantViolation))
}

func TestTargetMarginRange(t *testing.T) {
	svc, _ := newService(t)

	in := &schema.ResolvedRecipe{Slug: "x", Name: "X", Price: int64Ptr(100), Margin: intPtr(140)}
	_, err := svc.Upsert(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvariantViolation))
}

func TestDeleteRefusedWhileConsumed(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	sauce := &schema.ResolvedRecipe{
		Slug:        "house-sauce",
		Name:        "House Sauce",
		Class:       "sub_recipe",
		YieldAmount: "500",
		YieldUnit:   "ml",
	}
	_, err := svc.Upsert(ctx, sauce)
	require.NoError(t, err)
	stored, err := svc.FindBySlug(ctx, "house-sauce", false)
	require.NoError(t, err)

	dish, dishLines := testutils.NewRecipeBuilder().
		WithSlug("pasta-dish").
		WithSubRecipeLine(stored.ID, "50ml").
		Build()
	require.NoError(t, store.SaveRecipeWithLines(ctx, dish, dishLines))

	err = svc.Delete(ctx, "house-sauce")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvariantViolation))
	assert.True(t, errors.Is(err, domain.ErrSubRecipeInUse))

	// deleting the consumer first unblocks the sub-recipe
	require.NoError(t, svc.Delete(ctx, "pasta-dish"))
	require.NoError(t, svc.Delete(ctx, "house-sauce"))
}
