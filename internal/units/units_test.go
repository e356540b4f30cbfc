package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		amount *big.Rat
		unit   string
	}{
		{"plain integer", "50g", big.NewRat(50, 1), "g"},
		{"decimal with space", "1.5 l", big.NewRat(3, 2), "l"},
		{"mixed fraction", "1 1/2 cups", big.NewRat(3, 2), "cups"},
		{"bare fraction", "1/2 cup", big.NewRat(1, 2), "cup"},
		{"range takes maximum", "2-3 cloves", big.NewRat(3, 1), "cloves"},
		{"no space", "25g", big.NewRat(25, 1), "g"},
		{"attached kilogram", "1kg", big.NewRat(1, 1), "kg"},
		{"attached millilitre", "100ml", big.NewRat(100, 1), "ml"},
		{"attached decimal", "1.5l", big.NewRat(3, 2), "l"},
		{"multi word unit", "2 fl oz", big.NewRat(2, 1), "fl oz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := ParseQuantity(tt.input)
			require.True(t, ok)
			assert.Zero(t, tt.amount.Cmp(q.Amount))
			assert.Equal(t, tt.unit, q.Unit)
		})
	}
}

func TestParseQuantityUnspecified(t *testing.T) {
	for _, input := range []string{"", "   ", "to taste", "a pinch", "handful", "dash of", "splash", "42", "1/0 cup"} {
		_, ok := ParseQuantity(input)
		assert.False(t, ok, "expected %q to be unspecified", input)
	}
}

func TestParseRule(t *testing.T) {
	rule, ok := ParseRule("1 loaf = 16 slices")
	require.True(t, ok)
	assert.Equal(t, "loaf", rule.FromUnit)
	assert.Equal(t, "slice", rule.ToUnit)
	assert.Zero(t, big.NewRat(1, 1).Cmp(rule.FromAmount))
	assert.Zero(t, big.NewRat(16, 1).Cmp(rule.ToAmount))

	assert.True(t, rule.Matches("loaf", "slice"))
	assert.True(t, rule.Matches("slice", "loaf"))
	assert.False(t, rule.Matches("loaf", "g"))

	_, ok = ParseRule("garbage")
	assert.False(t, ok)
	_, ok = ParseRule("0 loaf = 16 slices")
	assert.False(t, ok)
}

func TestSingularize(t *testing.T) {
	assert.Equal(t, "slice", Singularize("slices"))
	assert.Equal(t, "cup", Singularize("Cups"))
	assert.Equal(t, "g", Singularize("g"))
	assert.Equal(t, "pcs", Singularize("pcs"))
}

func TestConvertIdentity(t *testing.T) {
	out, err := Convert(big.NewRat(7, 2), "g", "g", nil)
	require.NoError(t, err)
	assert.Zero(t, big.NewRat(7, 2).Cmp(out))

	// singularised and case-folded units also match
	out, err = Convert(big.NewRat(2, 1), "slices", "slice", nil)
	require.NoError(t, err)
	assert.Zero(t, big.NewRat(2, 1).Cmp(out))
}

func TestConvertStandardTables(t *testing.T) {
	tests := []struct {
		amount   *big.Rat
		from, to string
		want     *big.Rat
	}{
		{big.NewRat(25, 1), "g", "kg", big.NewRat(1, 40)},
		{big.NewRat(2, 1), "kg", "g", big.NewRat(2000, 1)},
		{big.NewRat(100, 1), "ml", "l", big.NewRat(1, 10)},
		{big.NewRat(1, 1), "cup", "ml", big.NewRat(240, 1)},
		{big.NewRat(1, 1), "lb", "g", big.NewRat(45359, 100)},
		{big.NewRat(3, 1), "pcs", "each", big.NewRat(3, 1)},
	}
	for _, tt := range tests {
		out, err := Convert(tt.amount, tt.from, tt.to, nil)
		require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.Zero(t, tt.want.Cmp(out), "%s -> %s", tt.from, tt.to)
	}
}

func TestConvertWithRule(t *testing.T) {
	rule, ok := ParseRule("1 loaf = 16 slices")
	require.True(t, ok)

	// forward: n loaves are n*16 slices
	out, err := Convert(big.NewRat(2, 1), "loaf", "slices", rule)
	require.NoError(t, err)
	assert.Zero(t, big.NewRat(32, 1).Cmp(out))

	// reverse: n*16 slices are n loaves
	out, err = Convert(big.NewRat(32, 1), "slices", "loaf", rule)
	require.NoError(t, err)
	assert.Zero(t, big.NewRat(2, 1).Cmp(out))
}

func TestConvertNoPath(t *testing.T) {
	_, err := Convert(big.NewRat(1, 1), "g", "ml", nil)
	require.Error(t, err)
	assert.False(t, CanConvert("g", "ml", nil))
	assert.True(t, CanConvert("g", "oz", nil))
}
