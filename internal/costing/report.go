package costing

import (
	"context"

	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/domain"
)

// RecipeReport is one row of the menu-wide costing report
type RecipeReport struct {
	Slug      string        `json:"slug"`
	Name      string        `json:"name"`
	Stage     string        `json:"stage"`
	TotalCost int64         `json:"totalCost"`
	Margin    *MarginResult `json:"margin,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Report evaluates every recipe in the given stage (all stages when
// empty) and returns one row per recipe. Per-recipe failures are
// reported in the row rather than aborting the run.
func (e *Engine) Report(ctx context.Context, stage domain.RecipeStage) ([]RecipeReport, error) {
	recipes, err := e.store.ListRecipes(ctx, stage)
	if err != nil {
		return nil, err
	}

	rows := make([]RecipeReport, 0, len(recipes))
	for i := range recipes {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		recipe := &recipes[i]
		row := RecipeReport{Slug: recipe.Slug, Name: recipe.Name, Stage: string(recipe.Stage)}

		result, err := e.Cost(ctx, recipe.Slug)
		if err != nil {
			row.Error = err.Error()
			e.log.Warn("report row failed", zap.String("recipe", recipe.Slug), zap.Error(err))
			rows = append(rows, row)
			continue
		}
		row.TotalCost = result.TotalCost
		row.Warnings = result.Warnings

		margin, err := e.Margin(ctx, result)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Margin = margin
		}
		rows = append(rows, row)
	}
	return rows, nil
}
