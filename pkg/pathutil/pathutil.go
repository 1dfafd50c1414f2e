// Package pathutil provides the base-directory enumeration and path-joining
// helpers the rest of the engine builds on, grounded on the teacher's
// path handling in shared/pkg/tree (BuildChildPath) and cache.go (filepath
// joins under a root directory).
package pathutil

import (
	"path/filepath"
	"strings"
)

// Join joins path segments with "/" regardless of OS, since every path the
// engine reasons about (manifest dependency names, output layout paths) is
// a logical forward-slash path, not an OS path.
func Join(segments ...string) string {
	clean := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		clean = append(clean, strings.Trim(s, "/"))
	}
	return strings.Join(clean, "/")
}

// NativeJoin joins segments using the OS path separator, for paths that will
// be handed to the filesystem (os, afero).
func NativeJoin(segments ...string) string {
	return filepath.Join(segments...)
}

// WithTrailingSlash returns p with exactly one trailing "/", the convention
// spec §3 requires for Delta.mkdir entries.
func WithTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// BuildChildPath constructs a child path from a parent scope path and a
// name, ported from the teacher's tree.BuildChildPath.
func BuildChildPath(parentPath, name string) string {
	if parentPath == "" || parentPath == "/" {
		return name
	}
	return strings.TrimSuffix(parentPath, "/") + "/" + name
}

// IsChildPath reports whether candidate is path-wise nested under root
// (same separators, candidate starts with root + "/", or candidate == root).
func IsChildPath(root, candidate string) bool {
	root = strings.TrimSuffix(root, "/")
	candidate = strings.TrimSuffix(candidate, "/")
	if root == "" {
		return true
	}
	return candidate == root || strings.HasPrefix(candidate, root+"/")
}

// Basename returns the final path segment, mirroring filepath.Base but
// operating on the engine's forward-slash logical paths.
func Basename(p string) string {
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// AppPath resolves a project-root-relative segment, prefixed by "app",
// matching spec §4.2's app/ scope.
func AppPath(segments ...string) string {
	return Join(append([]string{"app"}, segments...)...)
}
