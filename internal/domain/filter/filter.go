// Package filter decides which paths qualify as restart triggers.
//
// Callers pass paths relative to the watch root. A path is relevant when
// none of its directory segments is on the ignore list and its extension
// is on the allow list. Both checks are pure string work so the watcher
// adapters can call them on every raw event without I/O.
package filter

import (
	"path/filepath"
	"strings"
)

// Filter holds the ignore and allow sets. Immutable after New.
type Filter struct {
	ignoreDirs map[string]bool
	extensions map[string]bool
}

// New builds a Filter from directory names and file extensions.
// Extensions are normalized: lowercased, leading dot added if missing
// ("go" and ".go" are the same entry). An empty extension list allows
// every extension.
func New(ignoreDirs, extensions []string) *Filter {
	f := &Filter{
		ignoreDirs: make(map[string]bool, len(ignoreDirs)),
		extensions: make(map[string]bool, len(extensions)),
	}
	for _, d := range ignoreDirs {
		if d != "" {
			f.ignoreDirs[d] = true
		}
	}
	for _, e := range extensions {
		if e = NormalizeExt(e); e != "." {
			f.extensions[e] = true
		}
	}
	return f
}

// NormalizeExt lowercases an extension and ensures it starts with a dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Relevant reports whether a change to the given file path should count
// toward a restart. Callers pass file paths relative to the watch root,
// so directories above the root never count against the ignore list;
// directory events are screened out before this check.
func (f *Filter) Relevant(path string) bool {
	dir := filepath.Dir(filepath.Clean(path))
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		if f.ignoreDirs[part] {
			return false
		}
	}
	if len(f.extensions) == 0 {
		return true
	}
	return f.extensions[strings.ToLower(filepath.Ext(path))]
}

// IgnoreDir reports whether a directory name is on the ignore list.
// Matching is exact and case-sensitive. Walkers use this to prune whole
// subtrees so ignored directories are never descended into.
func (f *Filter) IgnoreDir(name string) bool {
	return f.ignoreDirs[name]
}

// Extensions returns the normalized allow list, for logging.
func (f *Filter) Extensions() []string {
	out := make([]string, 0, len(f.extensions))
	for e := range f.extensions {
		out = append(out, e)
	}
	return out
}
