package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/platewise/platewise/pkg/errors"
)

func build(t *testing.T, edges map[string][]string, nodes ...string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n, n)
	}
	for from, tos := range edges {
		for _, to := range tos {
			require.NoError(t, g.SetDependency(from, to))
		}
	}
	return g
}

func TestAddNodeKeepsOriginalValue(t *testing.T) {
	g := New()
	g.AddNode("a", 1)
	g.AddNode("a", 2)
	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, 1, n.Value)
	assert.Equal(t, []string{"a"}, g.Keys())
}

func TestSetDependencyRequiresNodes(t *testing.T) {
	g := New()
	g.AddNode("a", nil)
	assert.Error(t, g.SetDependency("a", "missing"))
	assert.Error(t, g.SetDependency("missing", "a"))
}

func TestDependenciesPostOrder(t *testing.T) {
	// a -> b -> c, a -> c
	g := build(t, map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
	}, "a", "b", "c")

	deps, err := g.Dependencies("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, deps)
}

func TestDependenciesCyclePath(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}, "a", "b")

	_, err := g.Dependencies("a")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeDependencyCycle))

	appErr := err.(*apperrors.AppError)
	cycle := appErr.Metadata["cycle"].([]string)
	require.NotEmpty(t, cycle)
	// the path starts and ends at the same node
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.Equal(t, []string{"a", "b", "a"}, cycle)
}

func TestTopoOrder(t *testing.T) {
	g := build(t, map[string][]string{
		"recipe":     {"ingredient"},
		"ingredient": {"supplier"},
	}, "recipe", "ingredient", "supplier")

	order, err := g.TopoOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"supplier", "ingredient", "recipe"}, order)
}

func TestTopoOrderCycle(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}, "a", "b", "c")

	_, err := g.TopoOrder()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeDependencyCycle))
}

func TestFindPath(t *testing.T) {
	g := build(t, map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}, "a", "b", "c")

	path, ok := g.FindPath("a", "c")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, path)

	_, ok = g.FindPath("c", "a")
	assert.False(t, ok)
}
