// Package storage implements the entity file storage contract: a
// filesystem writer that keeps declarative files in sync with API
// mutations, and a database-only no-op for deployments without a
// project tree.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/platewise/platewise/internal/ports/outbound"
	apperrors "github.com/platewise/platewise/pkg/errors"
)

const banner = "# Managed by platewise. Manual edits are picked up by the watcher.\n"

// Filesystem writes entity files under <root>/<type>s/<slug>.yaml
type Filesystem struct{}

// NewFilesystem creates the filesystem storage
func NewFilesystem() outbound.EntityStorage {
	return &Filesystem{}
}

// Mode reports the storage mode
func (f *Filesystem) Mode() outbound.StorageMode {
	return outbound.StorageFilesystem
}

// Write serialises the entity document as YAML. A user-chosen existing
// path wins over the default layout, so files imported from arbitrary
// locations stay where the operator put them.
func (f *Filesystem) Write(entityType, slug string, data interface{}, root, existingPath string) (string, error) {
	path := existingPath
	if path == "" {
		path = filepath.Join(root, entityType+"s", slug+".yaml")
	}

	payload, err := yaml.Marshal(data)
	if err != nil {
		return "", apperrors.NewStoreFailureError("marshal entity file", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", apperrors.NewStoreFailureError("create entity directory", err)
	}
	if err := os.WriteFile(path, append([]byte(banner), payload...), 0o644); err != nil {
		return "", apperrors.NewStoreFailureError(fmt.Sprintf("write %s", path), err)
	}
	return path, nil
}

// DeleteFile removes an entity file. A missing file is not an error;
// the store row is authoritative for existence.
func (f *Filesystem) DeleteFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewStoreFailureError(fmt.Sprintf("delete %s", path), err)
	}
	return nil
}

// DatabaseOnly is the no-op storage for store-only deployments
type DatabaseOnly struct{}

// NewDatabaseOnly creates the no-op storage
func NewDatabaseOnly() outbound.EntityStorage {
	return &DatabaseOnly{}
}

// Mode reports the storage mode
func (d *DatabaseOnly) Mode() outbound.StorageMode {
	return outbound.StorageDatabaseOnly
}

// Write does nothing; the store is the sole source of truth
func (d *DatabaseOnly) Write(entityType, slug string, data interface{}, root, existingPath string) (string, error) {
	return "", nil
}

// DeleteFile does nothing
func (d *DatabaseOnly) DeleteFile(path string) error {
	return nil
}

// ForMode returns the storage implementation for a configured mode
func ForMode(mode string) outbound.EntityStorage {
	if mode == string(outbound.StorageDatabaseOnly) {
		return NewDatabaseOnly()
	}
	return NewFilesystem()
}
