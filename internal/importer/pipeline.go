// Package importer orchestrates the three-phase import of declarative
// entity files: scan & graph build, reference resolution, and commit in
// dependency order.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/importer/graph"
	"github.com/platewise/platewise/internal/importer/refs"
	"github.com/platewise/platewise/internal/importer/schema"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// Outcome classifies what a processor did with a resolved file
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpserted Outcome = "upserted"
	OutcomeIgnored  Outcome = "ignored"
)

// Processor persists one resolved entity file. It receives the run handle
// for slug-to-path lookups.
type Processor func(ctx context.Context, run *Run, file *schema.ResolvedFile) (Outcome, error)

// Stats accumulates per-outcome counts for one import invocation
type Stats struct {
	Created  int `json:"created"`
	Upserted int `json:"upserted"`
	Ignored  int `json:"ignored"`
	Failed   int `json:"failed"`
}

// FileError records a per-file failure
type FileError struct {
	File    string              `json:"file"`
	Kind    apperrors.ErrorCode `json:"kind"`
	Message string              `json:"message"`
}

// Options control one import invocation
type Options struct {
	// FailFast aborts on the first per-file error instead of collecting
	FailFast bool
	// ImportOnly runs phases 1-2 only and returns the resolved map
	ImportOnly bool
	// ProjectRoot anchors "@/" references
	ProjectRoot string
}

// Result is the outcome of one import invocation
type Result struct {
	Stats     Stats
	Resolved  map[string]*schema.ResolvedFile // keyed by canonical path
	Errors    []FileError
	SlugPaths map[string]string
}

// Importer runs imports with a registered processor table. One import
// runs at a time per store; the watcher and API serialise through it.
type Importer struct {
	processors map[string]Processor
	log        *zap.Logger
}

// New creates an importer with an empty processor table
func New(log *zap.Logger) *Importer {
	return &Importer{
		processors: make(map[string]Processor),
		log:        log,
	}
}

// Register installs the processor for an object type
func (i *Importer) Register(object string, p Processor) {
	i.processors[object] = p
}

// Run is the per-invocation state handed to processors
type Run struct {
	importer  *Importer
	opts      Options
	graph     *graph.Graph
	docs      map[string]*schema.Document
	slugPaths map[string]string
	resolved  map[string]*schema.ResolvedFile
	committed map[string]bool
	errors    []FileError
	dropped   map[string]bool
	runStats  Stats
}

// PathForSlug returns the file path a slug was scanned from in this run
func (r *Run) PathForSlug(slug string) (string, bool) {
	path, ok := r.slugPaths[slug]
	return path, ok
}

// Resolved returns the resolved payload committed earlier in this run
func (r *Run) Resolved(path string) (*schema.ResolvedFile, bool) {
	f, ok := r.resolved[path]
	return f, ok
}

// Import ingests a set of entity files. Each file may be any entity
// type; path references are followed recursively and committed in
// dependency order.
func (i *Importer) Import(ctx context.Context, files []string, opts Options) (*Result, error) {
	run := &Run{
		importer:  i,
		opts:      opts,
		graph:     graph.New(),
		docs:      make(map[string]*schema.Document),
		slugPaths: make(map[string]string),
		resolved:  make(map[string]*schema.ResolvedFile),
		committed: make(map[string]bool),
		dropped:   make(map[string]bool),
	}

	// Phase 1: scan inputs and build the dependency graph
	for _, file := range files {
		if err := run.scan(refs.Canonical(file)); err != nil {
			if opts.FailFast {
				return run.result(), err
			}
		}
	}

	// Phase 2: walk in dependency order and materialise resolved payloads
	order, err := run.graph.TopoOrder()
	if err != nil {
		run.recordError("", err)
		return run.result(), err
	}
	for _, path := range order {
		if run.dropped[path] {
			continue
		}
		if err := run.resolve(path); err != nil {
			run.recordError(path, err)
			run.dropped[path] = true
			run.runStats.Failed++
			if opts.FailFast {
				return run.result(), err
			}
		}
	}

	if opts.ImportOnly {
		return run.result(), nil
	}

	// Phase 3: commit in dependency order
	for _, path := range order {
		if run.dropped[path] || run.committed[path] {
			continue
		}
		// Honour cancellation between files, never mid-file
		if err := ctx.Err(); err != nil {
			i.log.Warn("import cancelled", zap.Int("committed", len(run.committed)))
			return run.result(), err
		}
		if err := run.commit(ctx, path); err != nil {
			run.recordError(path, err)
			run.committed[path] = true
			run.runStats.Failed++
			if opts.FailFast {
				return run.result(), err
			}
		}
	}

	return run.result(), nil
}

// scan reads, parses and registers one file, then follows its path
// references recursively.
func (r *Run) scan(path string) error {
	if _, ok := r.docs[path]; ok || r.dropped[path] {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		appErr := apperrors.NewInputMalformedError(path, err)
		r.recordError(path, appErr)
		r.dropped[path] = true
		return appErr
	}
	doc, err := schema.Parse(path, raw)
	if err != nil {
		r.recordError(path, err)
		r.dropped[path] = true
		return err
	}

	r.docs[path] = doc
	r.graph.AddNode(path, doc)
	if _, taken := r.slugPaths[doc.Slug]; !taken {
		r.slugPaths[doc.Slug] = path
	}

	for _, ref := range documentReferences(doc) {
		if err := r.follow(path, ref); err != nil {
			r.dropped[path] = true
			return err
		}
	}
	return nil
}

// follow resolves one reference from a scanned file and, for path
// references, loads the referent and records the dependency edge.
func (r *Run) follow(from, ref string) error {
	resolved, ok := refs.Resolve(ref, filepath.Dir(from), r.opts.ProjectRoot)
	if !ok {
		appErr := apperrors.NewInputMalformedError(from, fmt.Errorf("invalid reference %q", ref))
		r.recordError(from, appErr)
		return appErr
	}
	// Symbolic references add no edges; the referent must already be
	// persisted or arrive through another input of the same invocation.
	if resolved.Kind == refs.KindSlug {
		return nil
	}

	if _, err := os.Stat(resolved.Path); err != nil {
		appErr := apperrors.NewReferenceUnresolvedError(ref, from)
		r.recordError(from, appErr)
		return appErr
	}
	if err := r.scan(resolved.Path); err != nil {
		return err
	}
	if err := r.graph.SetDependency(from, resolved.Path); err != nil {
		return apperrors.Wrap(err, "record dependency")
	}
	return nil
}

// resolve materialises the phase-2 payload for one scanned file
func (r *Run) resolve(path string) error {
	doc := r.docs[path]
	if doc == nil {
		return apperrors.NewInternalError(fmt.Sprintf("no document for %s", path))
	}

	out := &schema.ResolvedFile{Path: path, Object: doc.Object, Slug: doc.Slug}
	switch doc.Object {
	case schema.ObjectSupplier:
		p := doc.Supplier
		out.Supplier = &schema.ResolvedSupplier{
			Slug:  doc.Slug,
			Name:  p.Name,
			Notes: p.Notes,
		}
		if p.Contact != nil {
			out.Supplier.ContactName = p.Contact.Name
			out.Supplier.ContactEmail = p.Contact.Email
			out.Supplier.ContactPhone = p.Contact.Phone
		}

	case schema.ObjectIngredient:
		p := doc.Ingredient
		resolved := &schema.ResolvedIngredient{
			Slug:           doc.Slug,
			Name:           p.Name,
			Category:       p.Category,
			PurchaseUnit:   p.Purchase.Unit,
			PurchaseCost:   p.Purchase.Cost,
			IncludesVAT:    p.Purchase.VAT,
			ConversionRate: p.ConversionRate,
			Notes:          p.Notes,
			LastPurchased:  p.LastPurchased,
		}
		if p.Supplier != nil {
			slug, _, err := r.referentSlug(path, p.Supplier.Uses, schema.ObjectSupplier)
			if err != nil {
				return err
			}
			resolved.SupplierSlug = slug
		}
		out.Ingredient = resolved

	case schema.ObjectRecipe:
		p := doc.Recipe
		resolved := &schema.ResolvedRecipe{
			Slug:        doc.Slug,
			Name:        p.Name,
			Stage:       p.Stage,
			Class:       p.Class,
			Category:    p.Category,
			YieldAmount: p.YieldAmount,
			YieldUnit:   p.YieldUnit,
			Notes:       p.Notes,
		}
		if p.Costing != nil {
			resolved.Price = p.Costing.Price
			resolved.Margin = p.Costing.Margin
			resolved.VAT = p.Costing.VAT
		}
		if p.Extends != "" {
			slug, _, err := r.referentSlug(path, p.Extends, schema.ObjectRecipe)
			if err != nil {
				return err
			}
			resolved.ExtendsSlug = slug
		}
		for _, line := range p.Ingredients {
			slug, object, err := r.referentSlug(path, line.Uses, "")
			if err != nil {
				return err
			}
			kind, err := lineKind(path, line, object)
			if err != nil {
				return err
			}
			resolved.Lines = append(resolved.Lines, schema.ResolvedLine{
				Slug:  slug,
				Kind:  kind,
				Unit:  line.With.Unit,
				Notes: line.With.Notes,
			})
		}
		out.Recipe = resolved
	}

	r.resolved[path] = out
	return nil
}

// referentSlug maps a reference to the referent's slug. For path
// references the referent's scanned document is authoritative and, when
// wantObject is set, its object type is checked.
func (r *Run) referentSlug(from, ref, wantObject string) (slug, object string, err error) {
	resolved, ok := refs.Resolve(ref, filepath.Dir(from), r.opts.ProjectRoot)
	if !ok {
		return "", "", apperrors.NewInputMalformedError(from, fmt.Errorf("invalid reference %q", ref))
	}

	if resolved.Kind == refs.KindSlug {
		// The referent may live in the store or arrive through another
		// input; if it was scanned in this run its object is known.
		if path, ok := r.slugPaths[resolved.Slug]; ok {
			if doc := r.docs[path]; doc != nil {
				object = doc.Object
			}
		}
		if wantObject != "" && object != "" && object != wantObject {
			return "", "", apperrors.NewInputMalformedError(from,
				fmt.Errorf("reference %q resolves to a %s, expected %s", ref, object, wantObject))
		}
		return resolved.Slug, object, nil
	}

	doc := r.docs[resolved.Path]
	if doc == nil {
		return "", "", apperrors.NewReferenceUnresolvedError(ref, from)
	}
	if wantObject != "" && doc.Object != wantObject {
		return "", "", apperrors.NewInputMalformedError(from,
			fmt.Errorf("reference %q resolves to a %s, expected %s", ref, doc.Object, wantObject))
	}
	return doc.Slug, doc.Object, nil
}

// lineKind derives the authoritative line discriminator. The referent's
// object wins over the declared type hint; the hint only decides for
// symbolic references to entities outside this run.
func lineKind(path string, line schema.RecipeLinePayload, referentObject string) (schema.LineKind, error) {
	switch referentObject {
	case schema.ObjectIngredient:
		return schema.LineIngredient, nil
	case schema.ObjectRecipe:
		return schema.LineRecipe, nil
	case schema.ObjectSupplier:
		return "", apperrors.NewInputMalformedError(path,
			fmt.Errorf("recipe line %q cannot reference a supplier", line.Uses))
	}
	if line.Type == string(schema.LineRecipe) {
		return schema.LineRecipe, nil
	}
	return schema.LineIngredient, nil
}

// commit runs the registered processor for one resolved file
func (r *Run) commit(ctx context.Context, path string) error {
	file := r.resolved[path]
	if file == nil {
		return apperrors.NewInternalError(fmt.Sprintf("no resolved payload for %s", path))
	}
	processor, ok := r.importer.processors[file.Object]
	if !ok {
		return apperrors.NewInternalError(fmt.Sprintf("no processor registered for %q", file.Object))
	}

	outcome, err := processor(ctx, r, file)
	if err != nil {
		return err
	}
	r.committed[path] = true
	switch outcome {
	case OutcomeCreated:
		r.runStats.Created++
	case OutcomeUpserted:
		r.runStats.Upserted++
	case OutcomeIgnored:
		r.runStats.Ignored++
	}
	r.importer.log.Debug("committed entity file",
		zap.String("path", path),
		zap.String("object", file.Object),
		zap.String("slug", file.Slug),
		zap.String("outcome", string(outcome)))
	return nil
}

func (r *Run) recordError(path string, err error) {
	r.errors = append(r.errors, FileError{
		File:    path,
		Kind:    apperrors.GetCode(err),
		Message: err.Error(),
	})
}

func (r *Run) result() *Result {
	res := &Result{
		Resolved:  r.resolved,
		Errors:    r.errors,
		SlugPaths: r.slugPaths,
	}
	res.Stats = r.runStats
	return res
}

// documentReferences lists every reference string in a parsed document
func documentReferences(doc *schema.Document) []string {
	var out []string
	switch doc.Object {
	case schema.ObjectIngredient:
		if doc.Ingredient.Supplier != nil {
			out = append(out, doc.Ingredient.Supplier.Uses)
		}
	case schema.ObjectRecipe:
		if doc.Recipe.Extends != "" {
			out = append(out, doc.Recipe.Extends)
		}
		for _, line := range doc.Recipe.Ingredients {
			out = append(out, line.Uses)
		}
	}
	return out
}
