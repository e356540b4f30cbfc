// Package units parses quantity-with-unit strings and converts amounts
// between units via standard dimensional tables and user-defined rules.
// Amounts are exact rationals; the cost engine decides how to round.
package units

import (
	"math/big"
	"regexp"
	"strings"
)

// Quantity is a parsed amount with its (lowercased, as-given plurality) unit
type Quantity struct {
	Amount *big.Rat
	Unit   string
}

// Unspecified markers: descriptive amounts that carry no costable quantity
var unspecifiedMarkers = []string{"to taste", "pinch", "handful", "dash", "splash"}

var (
	mixedFractionRe = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)`)
	bareFractionRe  = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)`)
	rangeRe         = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)`)
	decimalRe       = regexp.MustCompile(`^(\d+(?:\.\d+)?)`)
	unitTokenRe     = regexp.MustCompile(`^[a-z][a-z \-]*$`)
)

// ParseQuantity parses strings such as "50g", "1.5 l", "1 1/2 cups",
// "1/2 cup" and "2-3 cloves" (ranges take the maximum for conservative
// costing). The second return value is false for unspecified quantities:
// empty strings, descriptive markers and strings without an alphabetic
// unit token.
func ParseQuantity(input string) (Quantity, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return Quantity{}, false
	}
	for _, marker := range unspecifiedMarkers {
		if containsWord(s, marker) {
			return Quantity{}, false
		}
	}

	var amount *big.Rat
	var rest string

	switch {
	case mixedFractionRe.MatchString(s):
		m := mixedFractionRe.FindStringSubmatch(s)
		whole := new(big.Rat)
		whole.SetString(m[1])
		frac := ratFraction(m[2], m[3])
		if frac == nil {
			return Quantity{}, false
		}
		amount = whole.Add(whole, frac)
		rest = s[len(m[0]):]
	case bareFractionRe.MatchString(s):
		m := bareFractionRe.FindStringSubmatch(s)
		amount = ratFraction(m[1], m[2])
		if amount == nil {
			return Quantity{}, false
		}
		rest = s[len(m[0]):]
	case rangeRe.MatchString(s):
		m := rangeRe.FindStringSubmatch(s)
		lo, hi := new(big.Rat), new(big.Rat)
		lo.SetString(m[1])
		hi.SetString(m[2])
		// Conservative costing: a range costs as its maximum
		amount = lo
		if hi.Cmp(lo) > 0 {
			amount = hi
		}
		rest = s[len(m[0]):]
	case decimalRe.MatchString(s):
		m := decimalRe.FindStringSubmatch(s)
		amount = new(big.Rat)
		amount.SetString(m[1])
		rest = s[len(m[0]):]
	default:
		return Quantity{}, false
	}

	unit := strings.TrimSpace(rest)
	if !unitTokenRe.MatchString(unit) {
		return Quantity{}, false
	}

	return Quantity{Amount: amount, Unit: unit}, true
}

// Rule is a user-defined conversion of the form "<a> <unit_a> = <b> <unit_b>".
// Units are stored singularised.
type Rule struct {
	FromAmount *big.Rat
	FromUnit   string
	ToAmount   *big.Rat
	ToUnit     string
}

// ParseRule parses a conversion rule string such as "1 loaf = 16 slices"
func ParseRule(input string) (*Rule, bool) {
	parts := strings.SplitN(input, "=", 2)
	if len(parts) != 2 {
		return nil, false
	}
	from, okFrom := ParseQuantity(parts[0])
	to, okTo := ParseQuantity(parts[1])
	if !okFrom || !okTo {
		return nil, false
	}
	if from.Amount.Sign() == 0 || to.Amount.Sign() == 0 {
		return nil, false
	}
	return &Rule{
		FromAmount: from.Amount,
		FromUnit:   Singularize(from.Unit),
		ToAmount:   to.Amount,
		ToUnit:     Singularize(to.Unit),
	}, true
}

// Matches reports whether the rule maps between the two singularised units,
// in either direction.
func (r *Rule) Matches(from, to string) bool {
	return (r.FromUnit == from && r.ToUnit == to) || (r.FromUnit == to && r.ToUnit == from)
}

// Singularize trims a plural "s" from a unit token. Units that end in "s"
// in the singular are excepted.
func Singularize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "pcs", "s": // "s" alone is not a plural
		return u
	}
	if strings.HasSuffix(u, "s") && len(u) > 1 {
		return u[:len(u)-1]
	}
	return u
}

func ratFraction(num, den string) *big.Rat {
	n, d := new(big.Rat), new(big.Rat)
	n.SetString(num)
	d.SetString(den)
	if d.Sign() == 0 {
		return nil
	}
	return n.Quo(n, d)
}

func containsWord(s, phrase string) bool {
	idx := strings.Index(s, phrase)
	if idx < 0 {
		return false
	}
	beforeOK := idx == 0 || !isAlnum(s[idx-1])
	end := idx + len(phrase)
	afterOK := end == len(s) || !isAlnum(s[end])
	return beforeOK && afterOK
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
