package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/ports/outbound"
)

func TestFilesystemWriteLayout(t *testing.T) {
	root := t.TempDir()
	fs := NewFilesystem()

	doc := map[string]interface{}{
		"object": "supplier",
		"data":   map[string]interface{}{"name": "Smithfield Wholesale"},
	}
	path, err := fs.Write("supplier", "smithfield-wholesale", doc, root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "suppliers", "smithfield-wholesale.yaml"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# Managed by platewise"))
	assert.Contains(t, string(raw), "Smithfield Wholesale")
}

func TestFilesystemWriteHonoursExistingPath(t *testing.T) {
	root := t.TempDir()
	fs := NewFilesystem()

	custom := filepath.Join(root, "pantry", "ham.yml")
	path, err := fs.Write("ingredient", "ham", map[string]interface{}{"object": "ingredient"}, root, custom)
	require.NoError(t, err)
	assert.Equal(t, custom, path)

	_, err = os.Stat(custom)
	assert.NoError(t, err)
	// the default location stays empty
	_, err = os.Stat(filepath.Join(root, "ingredients", "ham.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestFilesystemDelete(t *testing.T) {
	root := t.TempDir()
	fs := NewFilesystem()

	path, err := fs.Write("recipe", "toast", map[string]interface{}{"object": "recipe"}, root, "")
	require.NoError(t, err)
	require.NoError(t, fs.DeleteFile(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// deleting again, or deleting nothing, is fine
	assert.NoError(t, fs.DeleteFile(path))
	assert.NoError(t, fs.DeleteFile(""))
}

func TestDatabaseOnlyIsNoOp(t *testing.T) {
	root := t.TempDir()
	db := NewDatabaseOnly()

	path, err := db.Write("supplier", "smithfield", map[string]interface{}{"object": "supplier"}, root, "")
	require.NoError(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.NoError(t, db.DeleteFile("/nowhere/at/all.yaml"))
}

func TestForMode(t *testing.T) {
	assert.Equal(t, outbound.StorageFilesystem, ForMode("filesystem").Mode())
	assert.Equal(t, outbound.StorageDatabaseOnly, ForMode("database-only").Mode())
	// anything else falls back to the filesystem writer
	assert.Equal(t, outbound.StorageFilesystem, ForMode("").Mode())
}
