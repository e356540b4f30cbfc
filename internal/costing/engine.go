// Package costing evaluates recipe cost trees and derives margins.
// All intermediate arithmetic is exact rational; monetary outputs are
// integer minor units rounded up (conservative costing).
package costing

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/domain"
	"github.com/platewise/platewise/internal/ports/outbound"
	"github.com/platewise/platewise/internal/units"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// MaxDepth bounds sub-recipe recursion
const MaxDepth = 10

// NodeKind labels a cost tree node
type NodeKind string

const (
	NodeIngredient NodeKind = "ingredient"
	NodeRecipe     NodeKind = "recipe"
)

// TreeNode is one evaluated line of a recipe cost tree
type TreeNode struct {
	Kind     NodeKind   `json:"kind"`
	Slug     string     `json:"slug"`
	Name     string     `json:"name"`
	Unit     string     `json:"unit"`
	Cost     int64      `json:"cost"`
	Warnings []string   `json:"warnings,omitempty"`
	Children []TreeNode `json:"children,omitempty"`
}

// CostResult is the outcome of evaluating one recipe
type CostResult struct {
	Recipe    *domain.Recipe `json:"-"`
	Slug      string         `json:"slug"`
	Tree      []TreeNode     `json:"tree"`
	TotalCost int64          `json:"totalCost"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// Engine computes recipe costs against the store
type Engine struct {
	store         outbound.Store
	log           *zap.Logger
	vat           *big.Rat
	defaultTarget int
}

// NewEngine creates a cost engine. vatRate is a fraction in [0,1];
// defaultTarget is the configured margin target applied to recipes that
// declare none.
func NewEngine(store outbound.Store, vatRate float64, defaultTarget int, log *zap.Logger) *Engine {
	return &Engine{
		store:         store,
		log:           log,
		vat:           ratFromFloat(vatRate),
		defaultTarget: defaultTarget,
	}
}

// Cost evaluates the full cost tree of a recipe. Lines whose units cannot
// be parsed or converted are skipped with a warning and contribute zero;
// recursion beyond MaxDepth fails with a DepthExceeded error.
func (e *Engine) Cost(ctx context.Context, slug string) (*CostResult, error) {
	recipe, err := e.store.RecipeBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}

	result := &CostResult{Recipe: recipe, Slug: recipe.Slug}
	total := int64(0)
	for _, line := range effectiveLines(recipe) {
		node, err := e.costLine(ctx, recipe.Slug, line, 1)
		if err != nil {
			return nil, err
		}
		total += node.Cost
		result.Warnings = append(result.Warnings, node.Warnings...)
		result.Tree = append(result.Tree, node)
	}
	result.TotalCost = total
	return result, nil
}

// effectiveLines returns a recipe's own lines followed by lines inherited
// from its parent template. Inheritance is a union; overriding a parent
// line is not supported.
func effectiveLines(recipe *domain.Recipe) []domain.RecipeLine {
	if recipe.Parent == nil {
		return recipe.Lines
	}
	lines := make([]domain.RecipeLine, 0, len(recipe.Lines)+len(recipe.Parent.Lines))
	lines = append(lines, recipe.Lines...)
	lines = append(lines, recipe.Parent.Lines...)
	return lines
}

func (e *Engine) costLine(ctx context.Context, ownerSlug string, line domain.RecipeLine, depth int) (TreeNode, error) {
	if line.SubRecipeID != nil {
		return e.costSubRecipeLine(ctx, ownerSlug, line, depth)
	}
	return e.costIngredientLine(ownerSlug, line)
}

func (e *Engine) costIngredientLine(ownerSlug string, line domain.RecipeLine) (TreeNode, error) {
	node := TreeNode{Kind: NodeIngredient, Unit: line.Unit}
	ingredient := line.Ingredient
	if ingredient == nil {
		return skipped(node, ownerSlug, "line ingredient not loaded"), nil
	}
	node.Slug = ingredient.Slug
	node.Name = ingredient.Name

	lineQty, ok := units.ParseQuantity(line.Unit)
	if !ok {
		return skipped(node, ownerSlug, fmt.Sprintf("unparseable line quantity %q for %s", line.Unit, ingredient.Slug)), nil
	}
	purchaseQty, ok := units.ParseQuantity(ingredient.PurchaseUnit)
	if !ok {
		return skipped(node, ownerSlug, fmt.Sprintf("unparseable purchase quantity %q for %s", ingredient.PurchaseUnit, ingredient.Slug)), nil
	}

	var rule *units.Rule
	if ingredient.ConversionRule != "" {
		rule, _ = units.ParseRule(ingredient.ConversionRule)
	}
	converted, err := units.Convert(lineQty.Amount, lineQty.Unit, purchaseQty.Unit, rule)
	if err != nil {
		return skipped(node, ownerSlug, fmt.Sprintf("cannot convert %q to %q for %s", lineQty.Unit, purchaseQty.Unit, ingredient.Slug)), nil
	}

	purchaseEx := big.NewRat(ingredient.PurchaseCost, 1)
	if ingredient.IncludesVAT {
		purchaseEx.Quo(purchaseEx, onePlus(e.vat))
	}

	// pro-rata share of the purchase, then round up once
	cost := new(big.Rat).Mul(purchaseEx, converted)
	cost.Quo(cost, purchaseQty.Amount)
	node.Cost = ceilRat(cost)
	return node, nil
}

func (e *Engine) costSubRecipeLine(ctx context.Context, ownerSlug string, line domain.RecipeLine, depth int) (TreeNode, error) {
	node := TreeNode{Kind: NodeRecipe, Unit: line.Unit}
	if line.SubRecipe == nil {
		return skipped(node, ownerSlug, "line sub-recipe not loaded"), nil
	}
	if depth >= MaxDepth {
		return node, apperrors.NewDepthExceededError(line.SubRecipe.Slug, MaxDepth)
	}

	// reload with lines; the preloaded referent is shallow
	child, err := e.store.RecipeBySlug(ctx, line.SubRecipe.Slug, true)
	if err != nil {
		return node, err
	}
	node.Slug = child.Slug
	node.Name = child.Name

	childTotal := int64(0)
	for _, childLine := range effectiveLines(child) {
		childNode, err := e.costLine(ctx, child.Slug, childLine, depth+1)
		if err != nil {
			return node, err
		}
		childTotal += childNode.Cost
		node.Warnings = append(node.Warnings, childNode.Warnings...)
		node.Children = append(node.Children, childNode)
	}

	scale, warning := e.yieldScale(child, line.Unit)
	if warning != "" {
		node.Warnings = append(node.Warnings, warning)
		e.log.Warn("yield scaling fallback",
			zap.String("recipe", ownerSlug),
			zap.String("subRecipe", child.Slug),
			zap.String("reason", warning))
	}
	scaled := new(big.Rat).Mul(big.NewRat(childTotal, 1), scale)
	node.Cost = ceilRat(scaled)
	return node, nil
}

// yieldScale derives the fraction of a sub-recipe consumed by a line.
// Fallback order: unit conversion against the declared yield, then a
// direct ratio when the units are case-insensitively equal, then 1:1
// with a warning.
func (e *Engine) yieldScale(child *domain.Recipe, lineUnit string) (*big.Rat, string) {
	one := big.NewRat(1, 1)

	required, ok := units.ParseQuantity(lineUnit)
	if !ok {
		return one, fmt.Sprintf("unparseable line quantity %q for sub-recipe %s, using full cost", lineUnit, child.Slug)
	}
	if child.YieldAmount == "" || child.YieldUnit == "" {
		return one, fmt.Sprintf("sub-recipe %s declares no yield, using full cost", child.Slug)
	}
	yieldAmount := new(big.Rat)
	if _, ok := yieldAmount.SetString(child.YieldAmount); !ok || yieldAmount.Sign() <= 0 {
		return one, fmt.Sprintf("invalid yield amount %q for sub-recipe %s, using full cost", child.YieldAmount, child.Slug)
	}

	if converted, err := units.Convert(required.Amount, required.Unit, child.YieldUnit, nil); err == nil {
		return new(big.Rat).Quo(converted, yieldAmount), ""
	}
	if strings.EqualFold(units.Singularize(required.Unit), units.Singularize(child.YieldUnit)) {
		return new(big.Rat).Quo(required.Amount, yieldAmount), ""
	}
	return one, fmt.Sprintf("cannot convert %q to yield unit %q for sub-recipe %s, using full cost", required.Unit, child.YieldUnit, child.Slug)
}

func skipped(node TreeNode, ownerSlug, reason string) TreeNode {
	node.Cost = 0
	node.Warnings = append(node.Warnings, fmt.Sprintf("%s: %s (line skipped)", ownerSlug, reason))
	return node
}

// ceilRat rounds a non-negative rational up to the next integer
func ceilRat(r *big.Rat) int64 {
	if r.Sign() <= 0 {
		return 0
	}
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(r.Num(), r.Denom(), rem)
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo.Int64()
}

// ratFromFloat converts through the shortest decimal representation so
// that configured rates like 0.2 become exact rationals.
func ratFromFloat(f float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

func onePlus(rate *big.Rat) *big.Rat {
	return new(big.Rat).Add(big.NewRat(1, 1), rate)
}
