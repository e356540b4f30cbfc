package costing

import (
	"context"
	"math/big"

	"github.com/platewise/platewise/internal/domain"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

// MarginResult compares a recipe's evaluated cost with its sell price.
// Monetary fields are minor units; percentages are rounded half-up to
// two decimals.
type MarginResult struct {
	Cost           int64   `json:"cost"`
	SellPriceExVAT int64   `json:"sellPriceExVat"`
	CustomerPrice  int64   `json:"customerPrice"`
	VATAmount      int64   `json:"vatAmount"`
	Profit         int64   `json:"profit"`
	ActualMargin   float64 `json:"actualMargin"`
	TargetMargin   int     `json:"targetMargin"`
	MarginDelta    float64 `json:"marginDelta"`
	MeetsTarget    bool    `json:"meetsTarget"`
	VATApplicable  bool    `json:"vatApplicable"`
}

// Margin derives the margin figures for an evaluated recipe. Pricing is
// inherited from the parent chain when the recipe declares none. Prices
// are always normalised to ex-VAT before comparison.
func (e *Engine) Margin(ctx context.Context, result *CostResult) (*MarginResult, error) {
	if result == nil || result.Recipe == nil {
		return nil, apperrors.NewInternalError("margin requires an evaluated cost result")
	}
	price, includesVAT, target, err := e.pricing(ctx, result.Recipe)
	if err != nil {
		return nil, err
	}
	if target == 0 {
		target = e.defaultTarget
	}

	m := &MarginResult{
		Cost:          result.TotalCost,
		CustomerPrice: price,
		TargetMargin:  target,
		VATApplicable: includesVAT,
	}

	if includesVAT {
		sellEx := new(big.Rat).Quo(big.NewRat(price, 1), onePlus(e.vat))
		m.SellPriceExVAT = ceilRat(sellEx)
		m.VATAmount = price - m.SellPriceExVAT
	} else {
		m.SellPriceExVAT = price
	}

	m.Profit = m.SellPriceExVAT - m.Cost
	if m.SellPriceExVAT > 0 {
		actual := big.NewRat(100*m.Profit, m.SellPriceExVAT)
		m.ActualMargin = roundPercent(actual)
	}
	m.MarginDelta = roundPercent(new(big.Rat).SetFloat64(m.ActualMargin - float64(target)))
	m.MeetsTarget = m.ActualMargin >= float64(target)
	return m, nil
}

// pricing resolves the effective sell price of a recipe, walking the
// parent chain when the recipe itself declares none.
func (e *Engine) pricing(ctx context.Context, recipe *domain.Recipe) (price int64, includesVAT bool, target int, err error) {
	current := recipe
	for depth := 0; depth <= MaxDepth; depth++ {
		if current.SellPrice > 0 {
			return current.SellPrice, current.IncludesVAT, firstTarget(recipe, current), nil
		}
		if current.ParentID == nil {
			return current.SellPrice, current.IncludesVAT, firstTarget(recipe, current), nil
		}
		if current.Parent != nil {
			current = current.Parent
			continue
		}
		current, err = e.store.RecipeByID(ctx, *current.ParentID)
		if err != nil {
			return 0, false, 0, err
		}
	}
	return 0, false, 0, apperrors.NewDepthExceededError(recipe.Slug, MaxDepth)
}

// firstTarget prefers the recipe's own declared target over the price
// provider's.
func firstTarget(recipe, provider *domain.Recipe) int {
	if recipe.TargetMargin > 0 {
		return recipe.TargetMargin
	}
	return provider.TargetMargin
}

// roundPercent rounds a rational percentage half-up to two decimals
func roundPercent(r *big.Rat) float64 {
	scaled := new(big.Rat).Mul(r, big.NewRat(100, 1))
	num := new(big.Int).Mul(scaled.Num(), big.NewInt(2))
	num.Add(num, scaled.Denom())
	den := new(big.Int).Mul(scaled.Denom(), big.NewInt(2))
	quo := new(big.Int).Div(num, den)
	return float64(quo.Int64()) / 100
}
