package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/application/ingredient"
	"github.com/platewise/platewise/internal/application/recipe"
	"github.com/platewise/platewise/internal/application/supplier"
	"github.com/platewise/platewise/internal/costing"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/infrastructure/config"
	"github.com/platewise/platewise/internal/infrastructure/storage"
	"github.com/platewise/platewise/pkg/logger"
	"github.com/platewise/platewise/test/testutils"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, _ := testutils.NewTestStore(t)
	log := logger.NewNop()
	computed := cache.New(time.Minute)

	cfg := &config.Config{}
	cfg.Storage.Mode = "database-only"
	cfg.Costing.VAT = 0.2
	cfg.Costing.MarginTarget = 65

	suppliers := supplier.NewService(store, computed, log)
	ingredients := ingredient.NewService(store, computed, log)
	recipes := recipe.NewService(store, computed, recipe.Defaults{PriceIncludesVAT: true, MarginTarget: 65}, log)

	imp := importer.New(log)
	imp.Register(schema.ObjectSupplier, suppliers.Processor())
	imp.Register(schema.ObjectIngredient, ingredients.Processor())
	imp.Register(schema.ObjectRecipe, recipes.Processor())

	engine := costing.NewEngine(store, cfg.Costing.VAT, cfg.Costing.MarginTarget, log)
	server := New(cfg, engine, suppliers, ingredients, recipes, imp,
		storage.ForMode(cfg.Storage.Mode), computed, log)
	return server.Router()
}

func do(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t)
	rec := do(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSupplierRoundTrip(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/v1/suppliers", map[string]interface{}{
		"name": "Smithfield Wholesale",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	decode(t, rec, &created)
	assert.Equal(t, "smithfield-wholesale", created["slug"])
	assert.Equal(t, "created", created["outcome"])

	// the same payload again is a no-op
	rec = do(t, handler, http.MethodPost, "/api/v1/suppliers", map[string]interface{}{
		"name": "Smithfield Wholesale",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &created)
	assert.Equal(t, "ignored", created["outcome"])

	rec = do(t, handler, http.MethodGet, "/api/v1/suppliers/smithfield-wholesale", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/v1/suppliers/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSupplierDeleteConflict(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/v1/suppliers", map[string]interface{}{
		"name": "Smithfield Wholesale",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, handler, http.MethodPost, "/api/v1/ingredients", map[string]interface{}{
		"name":     "Serrano Ham",
		"category": "charcuterie",
		"purchase": map[string]interface{}{"unit": "1kg", "cost": 599},
		"supplier": map[string]interface{}{"uses": "slug:smithfield-wholesale"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// a referenced supplier cannot be deleted
	rec = do(t, handler, http.MethodDelete, "/api/v1/suppliers/smithfield-wholesale", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, handler, http.MethodDelete, "/api/v1/ingredients/serrano-ham", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, handler, http.MethodDelete, "/api/v1/suppliers/smithfield-wholesale", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestImmutableSupplierLinkIsConflict(t *testing.T) {
	handler := newTestServer(t)

	for _, name := range []string{"Smithfield Wholesale", "Borough Traders"} {
		rec := do(t, handler, http.MethodPost, "/api/v1/suppliers", map[string]interface{}{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	payload := map[string]interface{}{
		"name":     "Serrano Ham",
		"category": "charcuterie",
		"purchase": map[string]interface{}{"unit": "1kg", "cost": 599},
		"supplier": map[string]interface{}{"uses": "slug:smithfield-wholesale"},
	}
	rec := do(t, handler, http.MethodPost, "/api/v1/ingredients", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload["supplier"] = map[string]interface{}{"uses": "slug:borough-traders"}
	rec = do(t, handler, http.MethodPost, "/api/v1/ingredients", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecipeCostAndMargin(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/v1/ingredients", map[string]interface{}{
		"name":     "Serrano Ham",
		"category": "charcuterie",
		"purchase": map[string]interface{}{"unit": "1kg", "cost": 4000},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, handler, http.MethodPost, "/api/v1/recipes", map[string]interface{}{
		"name":    "Ham Plate",
		"stage":   "active",
		"costing": map[string]interface{}{"price": 400, "vat": false},
		"ingredients": []map[string]interface{}{
			{"uses": "slug:serrano-ham", "with": map[string]interface{}{"unit": "25g"}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, handler, http.MethodGet, "/api/v1/recipes/ham-plate/cost", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cost struct {
		TotalCost int64 `json:"totalCost"`
	}
	decode(t, rec, &cost)
	assert.Equal(t, int64(100), cost.TotalCost)

	rec = do(t, handler, http.MethodGet, "/api/v1/recipes/ham-plate/margin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var margin struct {
		Profit       int64   `json:"profit"`
		ActualMargin float64 `json:"actualMargin"`
		MeetsTarget  bool    `json:"meetsTarget"`
	}
	decode(t, rec, &margin)
	assert.Equal(t, int64(300), margin.Profit)
	assert.Equal(t, 75.00, margin.ActualMargin)
	assert.True(t, margin.MeetsTarget)

	// the second read is served from the cache and agrees
	rec = do(t, handler, http.MethodGet, "/api/v1/recipes/ham-plate/margin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &margin)
	assert.Equal(t, 75.00, margin.ActualMargin)
}

func TestRecipeMissingLineReferent(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/v1/recipes", map[string]interface{}{
		"name":    "Orphan",
		"costing": map[string]interface{}{"price": 100},
		"ingredients": []map[string]interface{}{
			{"uses": "slug:never-imported", "with": map[string]interface{}{"unit": "25g"}},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDashboard(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/v1/recipes", map[string]interface{}{
		"name":    "Ham Plate",
		"stage":   "active",
		"costing": map[string]interface{}{"price": 400, "vat": false},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]interface{}
	decode(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "ham-plate", rows[0]["slug"])
}

func TestMalformedBody(t *testing.T) {
	handler := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suppliers", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
