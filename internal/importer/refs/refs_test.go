package refs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReference(t *testing.T) {
	valid := []string{"@/suppliers/acme.yaml", "./ham.yaml", "../shared/oil.yml", "slug:ham"}
	for _, s := range valid {
		assert.True(t, IsReference(s), s)
	}
	invalid := []string{"ham", "suppliers/acme.yaml", "/absolute/path.yaml", "@", "slug:", ""}
	for _, s := range invalid {
		assert.False(t, IsReference(s), s)
	}
}

func TestResolveProjectRoot(t *testing.T) {
	resolved, ok := Resolve("@/suppliers/acme.yaml", "/proj/recipes", "/proj")
	require.True(t, ok)
	assert.Equal(t, KindPath, resolved.Kind)
	assert.Equal(t, filepath.Join("/proj", "suppliers", "acme.yaml"), resolved.Path)
}

func TestResolveRelative(t *testing.T) {
	resolved, ok := Resolve("./ham.yaml", "/proj/ingredients", "/proj")
	require.True(t, ok)
	assert.Equal(t, KindPath, resolved.Kind)
	assert.Equal(t, "/proj/ingredients/ham.yaml", resolved.Path)

	resolved, ok = Resolve("../suppliers/acme.yml", "/proj/ingredients", "/proj")
	require.True(t, ok)
	assert.Equal(t, "/proj/suppliers/acme.yml", resolved.Path)
}

func TestResolveSlug(t *testing.T) {
	resolved, ok := Resolve("slug:ham-serrano", "/proj", "/proj")
	require.True(t, ok)
	assert.Equal(t, KindSlug, resolved.Kind)
	assert.Equal(t, "ham-serrano", resolved.Slug)
	assert.Empty(t, resolved.Path)
}

func TestResolveRejections(t *testing.T) {
	// path references must carry a known extension
	_, ok := Resolve("./ham", "/proj", "/proj")
	assert.False(t, ok)
	_, ok = Resolve("@/suppliers/acme.toml", "/proj", "/proj")
	assert.False(t, ok)

	// slug references must not look like files
	_, ok = Resolve("slug:ham.yaml", "/proj", "/proj")
	assert.False(t, ok)
	_, ok = Resolve("slug:dir/ham", "/proj", "/proj")
	assert.False(t, ok)
	_, ok = Resolve("slug:", "/proj", "/proj")
	assert.False(t, ok)

	// not a reference at all
	_, ok = Resolve("ham.yaml", "/proj", "/proj")
	assert.False(t, ok)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "/proj/a.yaml", Canonical("/proj/sub/../a.yaml"))
}
