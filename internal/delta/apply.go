package delta

import (
	"sort"
	"strings"

	"github.com/nativescript-oss/livesync/internal/synerr"
)

// Apply executes d against store in the strict order spec §4.3 requires:
// mkdir ascending by path depth (so every parent exists before its
// children), then copy, then rmfile, then rmdir descending by path depth
// (so a directory is only removed once it's empty). Depth-ascending mkdir
// is what guarantees "every proper directory prefix of every copy target
// is already on disk or appears earlier in the sorted mkdir list."
func (p *Planner) Apply(d *Delta) error {
	for _, dir := range sortedByDepth(keysOf(d.Mkdir), true) {
		if err := p.store.MkdirAll(dir); err != nil {
			return &synerr.FilesystemIOError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	for target, src := range d.Copy {
		if err := p.store.Copy(src.File.AbsolutePath, target); err != nil {
			return &synerr.FilesystemIOError{Op: "copy", Path: target, Err: err}
		}
	}

	for file := range d.RmFile {
		if err := p.store.RemoveFile(file); err != nil {
			return &synerr.FilesystemIOError{Op: "rmfile", Path: file, Err: err}
		}
	}

	for _, dir := range sortedByDepth(keysOf(d.RmDir), false) {
		if err := p.store.RemoveDir(dir); err != nil {
			return &synerr.FilesystemIOError{Op: "rmdir", Path: dir, Err: err}
		}
	}

	return nil
}

func keysOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// sortedByDepth sorts paths by the number of "/" separators, ascending or
// descending; ties are broken lexically for determinism.
func sortedByDepth(paths []string, ascending bool) []string {
	sort.Slice(paths, func(i, j int) bool {
		di, dj := depth(paths[i]), depth(paths[j])
		if di != dj {
			if ascending {
				return di < dj
			}
			return di > dj
		}
		return paths[i] < paths[j]
	})
	return paths
}

func depth(p string) int {
	normalized := strings.ReplaceAll(p, "\\", "/")
	return strings.Count(strings.Trim(normalized, "/"), "/")
}
