// Package refs normalises entity references to canonical file paths or
// slugs. Supported syntaxes: "@/<path>" (project-root absolute),
// "./<path>" and "../<path>" (relative to the referencing file), and
// "slug:<id>" (symbolic, resolved against the store or graph).
package refs

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind discriminates the two resolution outcomes
type Kind string

const (
	KindPath Kind = "path"
	KindSlug Kind = "slug"
)

// Resolved is a normalised reference
type Resolved struct {
	Kind Kind
	Path string // canonical absolute path, set for KindPath
	Slug string // set for KindSlug
}

const slugPrefix = "slug:"

var refPattern = regexp.MustCompile(`^(@/|\.\.?/|slug:).+`)

// Extensions accepted for path-style references
var pathExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// IsReference reports whether a string uses one of the reference syntaxes
func IsReference(s string) bool {
	return refPattern.MatchString(s)
}

// Resolve normalises a reference. baseDir is the directory of the file
// containing the reference; projectRoot anchors "@/" references.
func Resolve(ref, baseDir, projectRoot string) (Resolved, bool) {
	if !IsReference(ref) {
		return Resolved{}, false
	}

	if strings.HasPrefix(ref, slugPrefix) {
		slug := strings.TrimPrefix(ref, slugPrefix)
		// slug references never name a file
		if slug == "" || strings.ContainsAny(slug, "/\\") || hasPathExtension(slug) {
			return Resolved{}, false
		}
		return Resolved{Kind: KindSlug, Slug: slug}, true
	}

	var joined string
	if strings.HasPrefix(ref, "@/") {
		joined = filepath.Join(projectRoot, strings.TrimPrefix(ref, "@/"))
	} else {
		joined = filepath.Join(baseDir, ref)
	}
	if !hasPathExtension(joined) {
		return Resolved{}, false
	}

	abs, err := filepath.Abs(joined)
	if err != nil {
		return Resolved{}, false
	}
	return Resolved{Kind: KindPath, Path: filepath.Clean(abs)}, true
}

// Canonical returns the canonical absolute form of a plain file path,
// used as the graph key for input files.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

func hasPathExtension(s string) bool {
	return pathExtensions[strings.ToLower(filepath.Ext(s))]
}
