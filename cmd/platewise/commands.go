package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/costing"
	"github.com/platewise/platewise/internal/importer"
	"github.com/platewise/platewise/internal/importer/schema"
	"github.com/platewise/platewise/internal/infrastructure/http/apiserver"
	"github.com/platewise/platewise/internal/infrastructure/watcher"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

const sampleConfig = `# platewise configuration

[costing]
vat = 0.2
margin_target = 65
default_price_includes_vat = true

[storage]
mode = "filesystem"

[watcher]
enabled = true
debounce = "150ms"
`

// cmdInitialise creates the project tree, a starter config and the store
func (a *app) cmdInitialise() int {
	root := a.cfg.Paths.ProjectRoot
	for _, dir := range []string{"suppliers", "ingredients", "recipes"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "platewise:", err)
			return exitRuntimeFailure
		}
	}

	configPath := filepath.Join(root, "platewise.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(sampleConfig), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "platewise:", err)
			return exitRuntimeFailure
		}
	}

	if err := a.connect(); err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	fmt.Printf("initialised project at %s\n", root)
	return exitOK
}

// cmdImport ingests the given entity files and prints the run summary
func (a *app) cmdImport(files []string) int {
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "platewise: import requires at least one file")
		return exitBadInput
	}
	if err := a.connect(); err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}

	ctx := signalContext()
	result, err := a.importer.Import(ctx, files, importer.Options{
		ProjectRoot: a.cfg.Paths.ProjectRoot,
	})
	if err != nil && result == nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	printJSON(result)
	if result.Stats.Failed > 0 {
		return exitBadInput
	}
	return exitOK
}

// cmdCalculate evaluates cost and margin for each named recipe
func (a *app) cmdCalculate(slugs []string) int {
	if len(slugs) == 0 {
		fmt.Fprintln(os.Stderr, "platewise: recipe calculate requires at least one slug")
		return exitBadInput
	}
	if err := a.connect(); err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}

	ctx := signalContext()
	code := exitOK
	for _, slug := range slugs {
		result, err := a.engine.Cost(ctx, slug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "platewise: %s: %v\n", slug, err)
			code = exitRuntimeFailure
			continue
		}
		margin, err := a.engine.Margin(ctx, result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "platewise: %s: %v\n", slug, err)
			code = exitRuntimeFailure
			continue
		}
		printJSON(struct {
			*costing.CostResult
			Margin *costing.MarginResult `json:"margin"`
		}{result, margin})
	}
	return code
}

// cmdReport evaluates every recipe and prints one row per recipe
func (a *app) cmdReport() int {
	if err := a.connect(); err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	rows, err := a.engine.Report(signalContext(), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	printJSON(rows)
	return exitOK
}

// cmdWatch imports file changes until interrupted
func (a *app) cmdWatch() int {
	if err := a.connect(); err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	ctx := signalContext()
	if err := a.runWatcher(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	return exitOK
}

// cmdServe runs the JSON API, plus the watcher when enabled
func (a *app) cmdServe() int {
	if err := a.connect(); err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	ctx := signalContext()

	if a.cfg.Watcher.Enabled {
		go func() {
			if err := a.runWatcher(ctx); err != nil && ctx.Err() == nil {
				a.log.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	server := apiserver.New(a.cfg, a.engine, a.suppliers, a.ingredients, a.recipes,
		a.importer, a.storage, a.cache, a.log)
	if err := server.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	return exitOK
}

// runWatcher consumes entity file events and keeps the store in sync.
// Created and updated files re-import; deletions remove the entity.
func (a *app) runWatcher(ctx context.Context) error {
	w, err := watcher.New(a.cfg.Paths.ProjectRoot, a.cfg.Watcher.Debounce, a.log)
	if err != nil {
		return err
	}
	defer w.Close()
	go w.Start(ctx)

	for event := range w.Events() {
		switch event.Action {
		case watcher.ActionCreated, watcher.ActionUpdated:
			result, err := a.importer.Import(ctx, []string{event.Path}, importer.Options{
				ProjectRoot: a.cfg.Paths.ProjectRoot,
			})
			if err != nil {
				a.log.Warn("watched import failed", zap.String("path", event.Path), zap.Error(err))
				continue
			}
			a.log.Info("watched import",
				zap.String("path", event.Path),
				zap.Int("created", result.Stats.Created),
				zap.Int("upserted", result.Stats.Upserted),
				zap.Int("ignored", result.Stats.Ignored),
				zap.Int("failed", result.Stats.Failed))
		case watcher.ActionDeleted:
			a.handleDeletedFile(ctx, event)
		case watcher.ActionError:
			a.log.Warn("watcher event error", zap.String("path", event.Path), zap.Error(event.Err))
		}
	}
	return ctx.Err()
}

// handleDeletedFile removes the entity behind a deleted file. The watcher
// records the object and slug of the last parsed document per path, so the
// delete targets exactly the entity the file declared; deletion is refused
// while other entities still reference it, leaving the store authoritative.
func (a *app) handleDeletedFile(ctx context.Context, event watcher.Event) {
	if event.Slug == "" {
		a.log.Debug("deleted file had no known entity", zap.String("path", event.Path))
		return
	}

	var del func(context.Context, string) error
	switch event.Object {
	case schema.ObjectSupplier:
		del = a.suppliers.Delete
	case schema.ObjectIngredient:
		del = a.ingredients.Delete
	case schema.ObjectRecipe:
		del = a.recipes.Delete
	default:
		a.log.Debug("deleted file had unknown object", zap.String("path", event.Path), zap.String("object", event.Object))
		return
	}

	err := del(ctx, event.Slug)
	switch {
	case err == nil:
		a.log.Info("entity deleted",
			zap.String("object", event.Object),
			zap.String("slug", event.Slug),
			zap.String("path", event.Path))
	case apperrors.Is(err, apperrors.CodeNotFound):
		a.log.Debug("deleted file matched no stored entity",
			zap.String("object", event.Object),
			zap.String("slug", event.Slug))
	default:
		a.log.Warn("entity delete refused", zap.String("slug", event.Slug), zap.Error(err))
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// signalContext cancels on interrupt; the stop function is released when
// the process exits.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
