package units

import (
	"math/big"

	apperrors "github.com/platewise/platewise/pkg/errors"
)

// standard dimensional tables; factors are relative to an arbitrary base
// unit per dimension (gram for mass, millilitre for volume, piece for count)
var (
	massFactors = map[string]*big.Rat{
		"g":        big.NewRat(1, 1),
		"gram":     big.NewRat(1, 1),
		"kg":       big.NewRat(1000, 1),
		"kilogram": big.NewRat(1000, 1),
		"oz":       big.NewRat(2835, 100),
		"ounce":    big.NewRat(2835, 100),
		"lb":       big.NewRat(45359, 100),
		"pound":    big.NewRat(45359, 100),
	}

	volumeFactors = map[string]*big.Rat{
		"ml":         big.NewRat(1, 1),
		"millilitre": big.NewRat(1, 1),
		"milliliter": big.NewRat(1, 1),
		"l":          big.NewRat(1000, 1),
		"litre":      big.NewRat(1000, 1),
		"liter":      big.NewRat(1000, 1),
		"fl-oz":      big.NewRat(30, 1),
		"fl oz":      big.NewRat(30, 1),
		"floz":       big.NewRat(30, 1),
		"cup":        big.NewRat(240, 1),
	}

	countFactors = map[string]*big.Rat{
		"piece": big.NewRat(1, 1),
		"pc":    big.NewRat(1, 1),
		"pcs":   big.NewRat(1, 1),
		"each":  big.NewRat(1, 1),
		"unit":  big.NewRat(1, 1),
		"item":  big.NewRat(1, 1),
	}

	dimensions = []map[string]*big.Rat{massFactors, volumeFactors, countFactors}
)

// Convert converts amount from one unit to another. Resolution order:
// identical units, the standard dimensional tables, then the optional
// user-defined rule (applied in either direction). Returns a
// NoConversionPath error when nothing maps the pair.
func Convert(amount *big.Rat, fromUnit, toUnit string, rule *Rule) (*big.Rat, error) {
	from := Singularize(fromUnit)
	to := Singularize(toUnit)

	if from == to {
		return new(big.Rat).Set(amount), nil
	}

	for _, table := range dimensions {
		f, okFrom := table[from]
		t, okTo := table[to]
		if okFrom && okTo {
			out := new(big.Rat).Mul(amount, f)
			return out.Quo(out, t), nil
		}
	}

	if rule != nil && rule.Matches(from, to) {
		out := new(big.Rat).Set(amount)
		if rule.FromUnit == from {
			out.Mul(out, rule.ToAmount)
			return out.Quo(out, rule.FromAmount), nil
		}
		out.Mul(out, rule.FromAmount)
		return out.Quo(out, rule.ToAmount), nil
	}

	return nil, apperrors.NewNoConversionPathError(from, to)
}

// CanConvert reports whether a conversion path exists for the pair
func CanConvert(fromUnit, toUnit string, rule *Rule) bool {
	_, err := Convert(big.NewRat(1, 1), fromUnit, toUnit, rule)
	return err == nil
}
