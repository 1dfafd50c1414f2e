// Package delta implements the DeltaPlanner (spec §4.3): it computes where
// each script file should land (buildDelta) and diffs that desired state
// against what already exists on disk (rebuildDelta). It is grounded on
// the teacher's MetadataDiff in winclient/core.go (add/remove/changed sets
// computed by flattening two trees into maps) and on cache.Put's
// temp-file-then-rename apply pattern for the copy step.
package delta

import (
	"sort"
	"strings"

	"github.com/nativescript-oss/livesync/internal/obslog"
	"github.com/nativescript-oss/livesync/internal/obsmetrics"
	"github.com/nativescript-oss/livesync/internal/synerr"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

// CopySource is the value side of Delta.Copy: the source File a target
// path should be copied from.
type CopySource struct {
	File pkgmodel.File
	// Package is the name of the contributing dependency, or "" for the
	// app's own files — used only for collision logging.
	Package string
}

// Delta is the four-set description of work from spec §3: mkdir, copy,
// rmfile, rmdir, keyed by target path. mkdir entries always end in "/".
type Delta struct {
	Mkdir  map[string]struct{}
	Copy   map[string]CopySource
	RmFile map[string]struct{}
	RmDir  map[string]struct{}
}

func newDelta() *Delta {
	return &Delta{
		Mkdir:  make(map[string]struct{}),
		Copy:   make(map[string]CopySource),
		RmFile: make(map[string]struct{}),
		RmDir:  make(map[string]struct{}),
	}
}

// ChangedScripts reports spec §4.3's changedScripts predicate: true if
// applying this delta touches any script file.
func (d *Delta) ChangedScripts() bool {
	return len(d.Copy) > 0 || len(d.RmFile) > 0
}

// Planner runs BuildDelta/RebuildDelta/Apply against a FileStore.
type Planner struct {
	store  *filestore.Store
	log    obslog.Logger
	layout Layout
}

// New creates a Planner for the given output layout.
func New(store *filestore.Store, layout Layout, log obslog.Logger) *Planner {
	if log == nil {
		log = obslog.NewNop()
	}
	return &Planner{store: store, layout: layout, log: log}
}

// BuildDelta computes the desired state for graph/platform: every app
// directory and every Available dependency's own directories, plus the
// app's and those dependencies' script files, platform-filtered and
// suffix-rewritten alike (spec §4.3, "Desired state").
func (p *Planner) BuildDelta(graph *pkgmodel.Graph, platform pkgmodel.Platform) *Delta {
	d := newDelta()

	app := graph.App
	for _, dir := range app.Directories {
		d.Mkdir[pathutil.WithTrailingSlash(pathutil.NativeJoin(p.layout.App, dir))] = struct{}{}
	}
	for _, f := range app.ScriptFiles {
		if hasOtherPlatformSuffix(f.Name, platform) {
			continue
		}
		target := pathutil.NativeJoin(p.layout.App, rewriteForPlatform(f.Path, platform))
		d.Copy[target] = CopySource{File: f, Package: ""}
	}

	names := make([]string, 0, len(graph.Dependencies))
	for name, pack := range graph.Dependencies {
		if pack.Kind == pkgmodel.KindApp {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p.addPackage(d, graph.Dependencies[name], platform)
	}

	return d
}

func (p *Planner) addPackage(d *Delta, pack *pkgmodel.Package, platform pkgmodel.Platform) {
	pkgRoot := pathutil.NativeJoin(p.layout.Modules, pack.Name)

	segments := strings.Split(pack.Name, "/")
	prefix := p.layout.Modules
	for _, seg := range segments {
		prefix = pathutil.NativeJoin(prefix, seg)
		d.Mkdir[pathutil.WithTrailingSlash(prefix)] = struct{}{}
	}

	for _, dir := range pack.Directories {
		d.Mkdir[pathutil.WithTrailingSlash(pathutil.NativeJoin(pkgRoot, dir))] = struct{}{}
	}

	for _, f := range pack.ScriptFiles {
		if hasOtherPlatformSuffix(f.Name, platform) {
			continue
		}
		target := pathutil.NativeJoin(pkgRoot, rewriteForPlatform(f.Path, platform))
		if existing, collided := d.Copy[target]; collided {
			p.log.Infof("delta: %s overwritten by package %s (was %s)", target, pack.Name, existing.Package)
		}
		d.Copy[target] = CopySource{File: f, Package: pack.Name}
	}
}

// rewriteForPlatform strips the current platform's suffix marker
// (".ios."/".android.") from a script path, so platform.js and
// platform.ios.js land at the same output path on an iOS build.
func rewriteForPlatform(scriptPath string, platform pkgmodel.Platform) string {
	return strings.ReplaceAll(scriptPath, "."+string(platform)+".", ".")
}

func hasOtherPlatformSuffix(name string, current pkgmodel.Platform) bool {
	for _, other := range []pkgmodel.Platform{pkgmodel.IOS, pkgmodel.Android} {
		if other == current {
			continue
		}
		if strings.Contains(name, "."+string(other)+".") {
			return true
		}
	}
	return false
}

// RebuildDelta reconciles the desired delta against what already exists on
// disk under layout.App and layout.Modules (spec §4.3, "Reality diff").
func (p *Planner) RebuildDelta(desired *Delta) (*Delta, error) {
	result := &Delta{
		Mkdir:  cloneSet(desired.Mkdir),
		Copy:   cloneCopy(desired.Copy),
		RmFile: make(map[string]struct{}),
		RmDir:  make(map[string]struct{}),
	}

	// layout.Modules normally lives inside layout.App, so the App scan
	// already covers it; scanning it a second time would see every module
	// entry after the first pass dropped it from mkdir/copy and queue it for
	// removal. The Modules root itself is a wanted directory.
	result.Mkdir[pathutil.WithTrailingSlash(p.layout.Modules)] = struct{}{}
	roots := []string{p.layout.App}
	if !pathutil.IsChildPath(p.layout.App, p.layout.Modules) {
		roots = append(roots, p.layout.Modules)
	}
	for _, root := range roots {
		if err := p.reconcileRoot(result, root); err != nil {
			return nil, err
		}
	}

	obsmetrics.DeltaOpsTotal.WithLabelValues("mkdir").Add(float64(len(result.Mkdir)))
	obsmetrics.DeltaOpsTotal.WithLabelValues("copy").Add(float64(len(result.Copy)))
	obsmetrics.DeltaOpsTotal.WithLabelValues("rmfile").Add(float64(len(result.RmFile)))
	obsmetrics.DeltaOpsTotal.WithLabelValues("rmdir").Add(float64(len(result.RmDir)))

	return result, nil
}

func (p *Planner) reconcileRoot(result *Delta, root string) error {
	entries, err := p.store.List(root)
	if err != nil {
		return &synerr.FilesystemIOError{Op: "list", Path: root, Err: err}
	}

	for _, e := range entries {
		full := pathutil.NativeJoin(root, e.Path)

		if e.IsDir {
			dirKey := pathutil.WithTrailingSlash(full)
			if _, wanted := result.Mkdir[dirKey]; wanted {
				delete(result.Mkdir, dirKey)
			} else {
				result.RmDir[dirKey] = struct{}{}
			}
			continue
		}

		if src, wanted := result.Copy[full]; wanted {
			existingMTime := pkgmodel.UnixMilli(e.MTime)
			if existingMTime >= src.File.MTime {
				// Not older: already up to date, drop the copy.
				delete(result.Copy, full)
			}
			continue
		}

		result.RmFile[full] = struct{}{}
	}

	return nil
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneCopy(in map[string]CopySource) map[string]CopySource {
	out := make(map[string]CopySource, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
