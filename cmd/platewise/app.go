package main

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/platewise/platewise/internal/application/ingredient"
	"github.com/platewise/platewise/internal/application/recipe"
	"github.com/platewise/platewise/internal/application/supplier"
	"github.com/platewise/platewise/internal/costing"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/cache"
	"github.com/platewise/platewise/internal/infrastructure/config"
	"github.com/platewise/platewise/internal/infrastructure/persistence/sqlite"
	"github.com/platewise/platewise/internal/infrastructure/storage"
	"github.com/platewise/platewise/internal/ports/outbound"
	"github.com/platewise/platewise/pkg/logger"

	gormstore "github.com/platewise/platewise/internal/infrastructure/persistence/gorm"
)

const cacheTTL = 5 * time.Minute

// app holds the wired components for one CLI invocation
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	open bool

	store       outbound.Store
	storage     outbound.EntityStorage
	cache       *cache.Cache
	suppliers   *supplier.Service
	ingredients *ingredient.Service
	recipes     *recipe.Service
	importer    *importer.Importer
	engine      *costing.Engine
}

func newApp(configPath, rootOverride string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if rootOverride != "" {
		cfg.Paths.ProjectRoot = rootOverride
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Debug,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log}, nil
}

// databasePath anchors a relative store path at the project root
func (a *app) databasePath() string {
	path := a.cfg.Paths.Database
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.cfg.Paths.ProjectRoot, path)
}

func (a *app) initialised() bool {
	_, err := os.Stat(a.databasePath())
	return err == nil
}

// connect opens the store and wires the services and the engine
func (a *app) connect() error {
	if a.open {
		return nil
	}

	logLevel := gormlogger.Warn
	if a.cfg.App.Debug {
		logLevel = gormlogger.Info
	}
	db, err := sqlite.SetupDatabase(a.databasePath(), logLevel)
	if err != nil {
		return err
	}

	a.store = gormstore.NewStore(db)
	a.storage = storage.ForMode(a.cfg.Storage.Mode)
	a.cache = cache.New(cacheTTL)
	a.suppliers = supplier.NewService(a.store, a.cache, a.log)
	a.ingredients = ingredient.NewService(a.store, a.cache, a.log)
	a.recipes = recipe.NewService(a.store, a.cache, recipe.Defaults{
		PriceIncludesVAT: a.cfg.Costing.DefaultPriceIncludesVAT,
		MarginTarget:     a.cfg.Costing.MarginTarget,
	}, a.log)

	a.importer = importer.New(a.log)
	a.importer.Register(schema.ObjectSupplier, a.suppliers.Processor())
	a.importer.Register(schema.ObjectIngredient, a.ingredients.Processor())
	a.importer.Register(schema.ObjectRecipe, a.recipes.Processor())

	a.engine = costing.NewEngine(a.store, a.cfg.Costing.VAT, a.cfg.Costing.MarginTarget, a.log)
	a.open = true
	return nil
}

func (a *app) close() {
	if a.log != nil {
		a.log.Sync()
	}
}
