// Package apiserver exposes the costing engine and entity services over
// a small JSON API. Mutations flow through the same storage and import
// path as file edits so both surfaces stay coherent.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/application/ingredient"
	"github.com/platewise/platewise/internal/application/recipe"
	"github.com/platewise/platewise/internal/application/supplier"
	"github.com/platewise/platewise/internal/costing"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/infrastructure/config"
	"github.com/platewise/platewise/internal/ports/outbound"
)

// Server wires the HTTP surface
type Server struct {
	cfg         *config.Config
	log         *zap.Logger
	engine      *costing.Engine
	suppliers   *supplier.Service
	ingredients *ingredient.Service
	recipes     *recipe.Service
	importer    *importer.Importer
	storage     outbound.EntityStorage
	cache       *cache.Cache
}

// New creates the API server
func New(
	cfg *config.Config,
	engine *costing.Engine,
	suppliers *supplier.Service,
	ingredients *ingredient.Service,
	recipes *recipe.Service,
	imp *importer.Importer,
	storage outbound.EntityStorage,
	cache *cache.Cache,
	log *zap.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		log:         log,
		engine:      engine,
		suppliers:   suppliers,
		ingredients: ingredients,
		recipes:     recipes,
		importer:    imp,
		storage:     storage,
		cache:       cache,
	}
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", s.handleListSuppliers)
			r.Post("/", s.handleUpsertSupplier)
			r.Get("/{slug}", s.handleGetSupplier)
			r.Delete("/{slug}", s.handleDeleteSupplier)
		})
		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", s.handleListIngredients)
			r.Post("/", s.handleUpsertIngredient)
			r.Get("/{slug}", s.handleGetIngredient)
			r.Delete("/{slug}", s.handleDeleteIngredient)
		})
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleListRecipes)
			r.Post("/", s.handleUpsertRecipe)
			r.Get("/{slug}", s.handleGetRecipe)
			r.Delete("/{slug}", s.handleDeleteRecipe)
			r.Get("/{slug}/cost", s.handleCost)
			r.Get("/{slug}/margin", s.handleMargin)
		})
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/import", s.handleImport)
	})

	return r
}

// Start serves until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
