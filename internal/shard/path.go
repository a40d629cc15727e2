package shard

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SplitMarker splits a marker path into its marker and the relative
// remainder. "~S1/docs/a.c" yields ("~S1", "docs/a.c"); "~S1" yields
// ("~S1", ""). Paths not starting with "~" are rejected.
func SplitMarker(p string) (marker, rel string, err error) {
	if !strings.HasPrefix(p, "~") {
		return "", "", fmt.Errorf("path %q: %w", p, ErrBadMarker)
	}
	if idx := strings.Index(p, "/"); idx >= 0 {
		return p[:idx], strings.TrimPrefix(p[idx:], "/"), nil
	}
	return p, "", nil
}

// RewriteMarker rewrites a path carrying from's marker into the same
// path under to's marker. It is the single conversion point used by the
// gateway before any remote call; nodes never see a foreign marker.
func RewriteMarker(p string, from, to Shard) (string, error) {
	marker, rel, err := SplitMarker(p)
	if err != nil {
		return "", err
	}
	if marker != from.Marker() {
		return "", fmt.Errorf("path %q: expected %s: %w", p, from.Marker(), ErrBadMarker)
	}
	if rel == "" {
		return to.Marker(), nil
	}
	return to.Marker() + "/" + rel, nil
}

// Resolve converts a marker path belonging to s into an absolute path
// under root. The relative part is cleaned and must not escape the root
// via ".." or an absolute injection.
func Resolve(root string, s Shard, p string) (string, error) {
	marker, rel, err := SplitMarker(p)
	if err != nil {
		return "", err
	}
	if marker != s.Marker() {
		return "", fmt.Errorf("path %q: expected %s: %w", p, s.Marker(), ErrBadMarker)
	}
	if rel == "" {
		return filepath.Clean(root), nil
	}

	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q: %w", p, ErrPathEscape)
	}
	joined := filepath.Join(root, filepath.FromSlash(rel))
	cleanRoot := filepath.Clean(root)
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q: %w", p, ErrPathEscape)
	}
	return joined, nil
}
