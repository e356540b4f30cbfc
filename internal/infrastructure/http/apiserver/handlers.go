package apiserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/ports/outbound"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeInputMalformed, apperrors.CodeUnitUnparseable:
		status = http.StatusBadRequest
	case apperrors.CodeImmutableField:
		status = http.StatusConflict
	case apperrors.CodeMissingDependency, apperrors.CodeReferenceUnresolved,
		apperrors.CodeDependencyCycle, apperrors.CodeInvariantViolation,
		apperrors.CodeNoConversionPath, apperrors.CodeDepthExceeded:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	if appErr, ok := err.(*apperrors.AppError); ok {
		writeJSON(w, status, appErr)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Suppliers

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.suppliers.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (s *Server) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	found, err := s.suppliers.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpsertSupplier(w http.ResponseWriter, r *http.Request) {
	var payload schema.SupplierPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, apperrors.NewInputMalformedError("request body", err))
		return
	}
	slug := slugOf(payload.Slug, payload.Name)

	outcome, err := s.writeThrough(r, schema.ObjectSupplier, slug, payload, func() (importer.Outcome, error) {
		resolved := &schema.ResolvedSupplier{
			Slug:  slug,
			Name:  payload.Name,
			Notes: payload.Notes,
		}
		if payload.Contact != nil {
			resolved.ContactName = payload.Contact.Name
			resolved.ContactEmail = payload.Contact.Email
			resolved.ContactPhone = payload.Contact.Phone
		}
		return s.suppliers.Upsert(r.Context(), resolved)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, statusFor(outcome), map[string]string{"slug": slug, "outcome": string(outcome)})
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := s.suppliers.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ingredients

func (s *Server) handleListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := s.ingredients.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

func (s *Server) handleGetIngredient(w http.ResponseWriter, r *http.Request) {
	found, err := s.ingredients.FindBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpsertIngredient(w http.ResponseWriter, r *http.Request) {
	var payload schema.IngredientPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, apperrors.NewInputMalformedError("request body", err))
		return
	}
	slug := slugOf(payload.Slug, payload.Name)

	outcome, err := s.writeThrough(r, schema.ObjectIngredient, slug, payload, func() (importer.Outcome, error) {
		resolved := &schema.ResolvedIngredient{
			Slug:           slug,
			Name:           payload.Name,
			Category:       payload.Category,
			PurchaseUnit:   payload.Purchase.Unit,
			PurchaseCost:   payload.Purchase.Cost,
			IncludesVAT:    payload.Purchase.VAT,
			ConversionRate: payload.ConversionRate,
			Notes:          payload.Notes,
			LastPurchased:  payload.LastPurchased,
		}
		if payload.Supplier != nil {
			resolved.SupplierSlug = slugFromRef(payload.Supplier.Uses)
		}
		return s.ingredients.Upsert(r.Context(), resolved)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, statusFor(outcome), map[string]string{"slug": slug, "outcome": string(outcome)})
}

func (s *Server) handleDeleteIngredient(w http.ResponseWriter, r *http.Request) {
	if err := s.ingredients.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recipes

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	stage := domain.RecipeStage(r.URL.Query().Get("stage"))
	recipes, err := s.recipes.List(r.Context(), stage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	found, err := s.recipes.FindBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpsertRecipe(w http.ResponseWriter, r *http.Request) {
	var payload schema.RecipePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, apperrors.NewInputMalformedError("request body", err))
		return
	}
	slug := slugOf(payload.Slug, payload.Name)

	outcome, err := s.writeThrough(r, schema.ObjectRecipe, slug, payload, func() (importer.Outcome, error) {
		return s.recipes.Upsert(r.Context(), resolveRecipePayload(slug, &payload))
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, statusFor(outcome), map[string]string{"slug": slug, "outcome": string(outcome)})
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.recipes.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Costing

func (s *Server) handleCost(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Cost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMargin(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	key := cache.PrefixMargin + slug
	if cached, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := s.engine.Cost(r.Context(), slug)
	if err != nil {
		s.writeError(w, err)
		return
	}
	margin, err := s.engine.Margin(r.Context(), result)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cache.Set(key, margin)
	writeJSON(w, http.StatusOK, margin)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	key := cache.PrefixDashboard + "report"
	if cached, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rows, err := s.engine.Report(r.Context(), domain.StageActive)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cache.Set(key, rows)
	writeJSON(w, http.StatusOK, rows)
}

// Import

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files    []string `json:"files"`
		FailFast bool     `json:"failFast"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewInputMalformedError("request body", err))
		return
	}
	result, err := s.importer.Import(r.Context(), req.Files, importer.Options{
		FailFast:    req.FailFast,
		ProjectRoot: s.cfg.Paths.ProjectRoot,
	})
	if err != nil && result == nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Stats.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// writeThrough persists an API mutation. With filesystem storage the
// payload is written as an entity file and imported through the regular
// pipeline, so the file tree stays the source of truth; in database-only
// mode the entity is upserted directly.
func (s *Server) writeThrough(r *http.Request, object, slug string, payload interface{}, direct func() (importer.Outcome, error)) (importer.Outcome, error) {
	if s.storage.Mode() == outbound.StorageDatabaseOnly {
		return direct()
	}

	document := map[string]interface{}{"object": object, "data": payload}
	path, err := s.storage.Write(object, slug, document, s.cfg.Paths.ProjectRoot, "")
	if err != nil {
		return "", err
	}
	result, err := s.importer.Import(r.Context(), []string{path}, importer.Options{
		FailFast:    true,
		ProjectRoot: s.cfg.Paths.ProjectRoot,
	})
	if err != nil {
		return "", err
	}
	if len(result.Errors) > 0 {
		first := result.Errors[0]
		return "", apperrors.NewAppError(first.Kind, "import failed", first.Message)
	}
	switch {
	case result.Stats.Created > 0:
		return importer.OutcomeCreated, nil
	case result.Stats.Upserted > 0:
		return importer.OutcomeUpserted, nil
	default:
		return importer.OutcomeIgnored, nil
	}
}

// resolveRecipePayload maps an API recipe payload onto the resolved
// shape the service consumes. API references are symbolic only.
func resolveRecipePayload(slug string, payload *schema.RecipePayload) *schema.ResolvedRecipe {
	resolved := &schema.ResolvedRecipe{
		Slug:        slug,
		Name:        payload.Name,
		Stage:       payload.Stage,
		Class:       payload.Class,
		Category:    payload.Category,
		ExtendsSlug: slugFromRef(payload.Extends),
		YieldAmount: payload.YieldAmount,
		YieldUnit:   payload.YieldUnit,
		Notes:       payload.Notes,
	}
	if payload.Costing != nil {
		resolved.Price = payload.Costing.Price
		resolved.Margin = payload.Costing.Margin
		resolved.VAT = payload.Costing.VAT
	}
	for _, line := range payload.Ingredients {
		kind := schema.LineIngredient
		if line.Type == string(schema.LineRecipe) {
			kind = schema.LineRecipe
		}
		resolved.Lines = append(resolved.Lines, schema.ResolvedLine{
			Slug:  slugFromRef(line.Uses),
			Kind:  kind,
			Unit:  line.With.Unit,
			Notes: line.With.Notes,
		})
	}
	return resolved
}

func statusFor(outcome importer.Outcome) int {
	if outcome == importer.OutcomeCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

func slugOf(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return schema.Slugify(name)
}

// slugFromRef accepts either a bare slug or a symbolic slug: reference
func slugFromRef(ref string) string {
	return strings.TrimPrefix(ref, "slug:")
}
