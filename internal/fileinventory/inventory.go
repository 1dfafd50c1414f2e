// Package fileinventory enumerates application script files, per-platform
// native-resource files, and per-package script and native files,
// recording modification times (spec §4.2). It is grounded on the
// teacher's recursive directory walking (phase0/internal/watcher's
// filepath.Walk-based scan) and the nested-manifest discovery pattern
// PackageGraph already uses for node_modules traversal.
package fileinventory

import (
	"path"
	"strings"

	"github.com/nativescript-oss/livesync/internal/packagegraph"
	"github.com/nativescript-oss/livesync/internal/synerr"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

// KnownPlatforms enumerates every platform FileInventory scans
// App_Resources/<Platform> (directory names "iOS" and "Android") and
// <pkg>/platforms/<platform> for.
var KnownPlatforms = []pkgmodel.Platform{pkgmodel.IOS, pkgmodel.Android}

// Inventory is a no-op marker type: FileInventory's output is recorded
// directly on the Package tree (ScriptFiles/NativeFiles/Directories per
// spec §3), so callers walk graph.App and graph.Dependencies afterward
// rather than through a separate result object.
type Inventory struct {
	Graph *pkgmodel.Graph
}

// Collector runs FileInventory's Collect operation against a FileStore.
type Collector struct {
	store       *filestore.Store
	projectRoot string
}

// New creates a Collector rooted at projectRoot.
func New(store *filestore.Store, projectRoot string) *Collector {
	return &Collector{store: store, projectRoot: projectRoot}
}

// Collect enumerates files for the app and every Available dependency in
// graph, mutating their ScriptFiles/NativeFiles/Directories fields.
func (c *Collector) Collect(graph *pkgmodel.Graph) (*Inventory, error) {
	if err := c.collectApp(graph.App); err != nil {
		return nil, err
	}
	for _, pack := range graph.Dependencies {
		if pack.Kind == pkgmodel.KindApp {
			continue
		}
		if err := c.collectPackage(graph, pack); err != nil {
			return nil, err
		}
	}
	return &Inventory{Graph: graph}, nil
}

// collectApp lists app/ recursively, excluding app/App_Resources, then
// lists app/App_Resources/<platform> per known platform (spec §4.2).
func (c *Collector) collectApp(app *pkgmodel.Package) error {
	appRoot := pathutil.NativeJoin(c.projectRoot, "app")

	scope := &scopeWalk{
		store:     c.store,
		root:      appRoot,
		skipNames: map[string]bool{"App_Resources": true},
	}
	files, dirs, err := scope.walk("")
	if err != nil {
		return err
	}
	app.ScriptFiles = files
	app.Directories = dirs

	// App_Resources names its platform directories "iOS" and "Android".
	appResourcesDirs := map[pkgmodel.Platform]string{pkgmodel.IOS: "iOS", pkgmodel.Android: "Android"}
	app.NativeFiles = make(map[pkgmodel.Platform][]pkgmodel.File)
	for _, platform := range KnownPlatforms {
		platformRoot := pathutil.NativeJoin(appRoot, "App_Resources", appResourcesDirs[platform])
		flat, err := listFlat(c.store, platformRoot)
		if err != nil {
			return err
		}
		app.NativeFiles[platform] = flat
	}
	return nil
}

// collectPackage enumerates pack's own script files, honoring the
// node_modules/platforms ignore rules and spawning Nested packages when a
// subdirectory declares its own package.json (spec §4.2), then lists
// pack's platforms/<platform> directories into NativeFiles.
func (c *Collector) collectPackage(graph *pkgmodel.Graph, pack *pkgmodel.Package) error {
	pkgRoot := pathutil.NativeJoin(c.projectRoot, pack.Path)

	skip := map[string]bool{"node_modules": true}
	if declaresFrameworkSupport(pack) {
		skip["platforms"] = true
	}

	scope := &scopeWalk{
		store:       c.store,
		root:        pkgRoot,
		skipNames:   skip,
		graph:       graph,
		owner:       pack,
		projectRoot: c.projectRoot,
	}
	files, dirs, err := scope.walk("")
	if err != nil {
		return err
	}
	pack.ScriptFiles = files
	pack.Directories = dirs

	pack.NativeFiles = make(map[pkgmodel.Platform][]pkgmodel.File)
	if pack.Manifest != nil && pack.Manifest.Framework != nil {
		for platform := range pack.Manifest.Framework.Platforms {
			platformRoot := pathutil.NativeJoin(pkgRoot, "platforms", string(platform))
			flat, err := listFlat(c.store, platformRoot)
			if err != nil {
				return err
			}
			pack.NativeFiles[platform] = flat
		}
	}
	return nil
}

func declaresFrameworkSupport(pack *pkgmodel.Package) bool {
	return pack.Manifest != nil && pack.Manifest.Framework != nil && len(pack.Manifest.Framework.Platforms) > 0
}

// scopeWalk recursively enumerates one file scope (the app tree, or a
// dependency package's own tree), splitting off a Nested sub-scope
// whenever it finds a package.json that isn't the scope root's own.
type scopeWalk struct {
	store     *filestore.Store
	root      string // native filesystem root of the current scope
	skipNames map[string]bool

	// graph/owner/projectRoot are set only when walking a dependency
	// package's tree, where a nested package.json can spawn a sibling
	// Package; the app's own tree never nests packages.
	graph       *pkgmodel.Graph
	owner       *pkgmodel.Package
	projectRoot string
}

// walk enumerates relPath (relative to the scope root, "" for the root
// itself) and returns the files and directories found, in the spec's
// scope-relative Path convention.
func (w *scopeWalk) walk(relPath string) ([]pkgmodel.File, []string, error) {
	nativeDir := pathutil.NativeJoin(w.root, relPath)
	entries, err := w.store.ListDir(nativeDir)
	if err != nil {
		return nil, nil, &synerr.FilesystemIOError{Op: "list", Path: nativeDir, Err: err}
	}

	var files []pkgmodel.File
	var dirs []string

	for _, entry := range entries {
		childRel := pathutil.BuildChildPath(relPath, entry.Name)

		if !entry.IsDir {
			files = append(files, pkgmodel.File{
				Path:         childRel,
				AbsolutePath: pathutil.NativeJoin(nativeDir, entry.Name),
				Name:         entry.Name,
				Extension:    extensionOf(entry.Name),
				MTime:        pkgmodel.UnixMilli(entry.MTime),
			})
			continue
		}

		if w.skipNames[entry.Name] {
			continue
		}

		childNative := pathutil.NativeJoin(nativeDir, entry.Name)
		if w.graph != nil && w.store.Exists(pathutil.NativeJoin(childNative, "package.json")) {
			if err := w.spawnNested(childRel, childNative); err != nil {
				return nil, nil, err
			}
			continue
		}

		dirs = append(dirs, pathutil.WithTrailingSlash(childRel))
		subFiles, subDirs, err := w.walk(childRel)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, subFiles...)
		dirs = append(dirs, subDirs...)
	}

	return files, dirs, nil
}

// spawnNested implements spec §4.2's nested-package rule: a subdirectory
// with its own package.json becomes a Nested Package recorded in
// dependencies unless its name collides, in which case the enclosing
// package (w.owner) is demoted to ShadowedByDiverged and removed from
// dependencies. Either way,
// enumeration continues under the nested scope rather than the parent's,
// since the nested package's files belong to it, not to w.owner.
func (w *scopeWalk) spawnNested(relPath, nativeDir string) error {
	nestedProjectRelPath := pathutil.Join(w.owner.Path, relPath)
	nested := pkgmodel.NewPackage(pkgmodel.KindNested, pathutil.Basename(relPath), nestedProjectRelPath)

	manifestPath := pathutil.NativeJoin(nativeDir, "package.json")
	raw, err := w.store.ReadText(manifestPath)
	if err != nil {
		return &synerr.FilesystemIOError{Op: "read", Path: manifestPath, Err: err}
	}
	manifest, err := parseNestedManifest([]byte(raw))
	if err != nil {
		return &synerr.ManifestParseError{Path: manifestPath, Err: err}
	}
	nested.Manifest = manifest
	nested.Version = manifest.Version
	if nested.Name == "" {
		nested.Name = pathutil.Basename(relPath)
	}

	if _, collides := w.graph.Dependencies[nested.Name]; collides {
		w.owner.Availability = pkgmodel.ShadowedByDiverged
		if w.graph.Dependencies[w.owner.Name] == w.owner {
			delete(w.graph.Dependencies, w.owner.Name)
		}
	} else {
		nested.Availability = pkgmodel.Available
		w.graph.Dependencies[nested.Name] = nested
	}
	w.owner.Children = append(w.owner.Children, nested)

	nestedScope := &scopeWalk{
		store:       w.store,
		root:        nativeDir,
		skipNames:   map[string]bool{"node_modules": true},
		graph:       w.graph,
		owner:       nested,
		projectRoot: w.projectRoot,
	}
	files, dirs, err := nestedScope.walk("")
	if err != nil {
		return err
	}
	nested.ScriptFiles = files
	nested.Directories = dirs
	return nil
}

// listFlat lists root non-recursively-into-subdirs-aware-but-flat: native
// resource directories (App_Resources/<platform>, <pkg>/platforms/<platform>)
// are recorded as a flat file list per spec §4.2, so this uses the
// recursive Store.List but discards directory entries.
func listFlat(store *filestore.Store, root string) ([]pkgmodel.File, error) {
	entries, err := store.List(root)
	if err != nil {
		return nil, &synerr.FilesystemIOError{Op: "list", Path: root, Err: err}
	}
	var files []pkgmodel.File
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		relForward := strings.ReplaceAll(e.Path, "\\", "/")
		files = append(files, pkgmodel.File{
			Path:         relForward,
			AbsolutePath: pathutil.NativeJoin(root, e.Path),
			Name:         e.Name,
			Extension:    extensionOf(e.Name),
			MTime:        pkgmodel.UnixMilli(e.MTime),
		})
	}
	return files, nil
}

func extensionOf(name string) string {
	ext := path.Ext(name)
	return strings.TrimPrefix(ext, ".")
}

// parseNestedManifest reuses packagegraph's manifest parsing for nested
// package.json files discovered mid-walk; exported via a tiny shim so
// fileinventory doesn't need its own duplicate JSON schema.
func parseNestedManifest(data []byte) (*pkgmodel.Manifest, error) {
	return packagegraph.ParseManifest(data)
}
