// Package packagegraph builds the flattened dependency map by depth-first
// traversal rooted at the app (spec §4.1). It is grounded on the teacher's
// recursive tree walking in shared/pkg/tree (FindByPath/FindByID/Flatten)
// and the nested-package-discovery walk in FileInventory's counterpart on
// the teacher side, winclient/core.go's flattenTreeRecursive.
package packagegraph

import (
	"fmt"

	"github.com/nativescript-oss/livesync/internal/obsmetrics"
	"github.com/nativescript-oss/livesync/internal/synerr"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

// Builder runs PackageGraph.Build (spec §4.1) against a FileStore.
type Builder struct {
	store *filestore.Store
}

// New creates a Builder.
func New(store *filestore.Store) *Builder {
	return &Builder{store: store}
}

// Build walks the installed package tree rooted at projectRoot and returns
// the flattened Graph. A malformed manifest is fatal to the rebuild (spec
// §7: ManifestParse); NotInstalled is not an error, only a state recorded
// on the offending Package.
func (b *Builder) Build(projectRoot string) (*pkgmodel.Graph, error) {
	graph := &pkgmodel.Graph{
		Dependencies: make(map[string]*pkgmodel.Package),
	}

	app := pkgmodel.NewPackage(pkgmodel.KindApp, "app", "")
	app.ResolvedAtParent = map[string]struct{}{}
	app.ResolvedAtGrandparent = map[string]struct{}{}
	graph.App = app

	r := &resolver{store: b.store, projectRoot: projectRoot, graph: graph}
	if err := r.resolve(app); err != nil {
		return nil, err
	}
	return graph, nil
}

type resolver struct {
	store       *filestore.Store
	projectRoot string
	graph       *pkgmodel.Graph
}

// resolve implements the per-node algorithm of spec §4.1.
func (r *resolver) resolve(p *pkgmodel.Package) error {
	manifestPath := pathutil.NativeJoin(r.projectRoot, p.Path, "package.json")

	// Step 1: absence means NotInstalled, no recursion.
	if !r.store.Exists(manifestPath) {
		p.Availability = pkgmodel.NotInstalled
		return nil
	}

	// Step 2: ancestor-shadowing rule.
	if _, shadowed := p.ResolvedAtGrandparent[p.Name]; shadowed && p.Kind != pkgmodel.KindApp {
		p.Availability = pkgmodel.ShadowedByAncestor
		obsmetrics.PackagesShadowedTotal.WithLabelValues("ancestor").Inc()
		return nil
	}

	// Step 3: parse manifest, tolerating a UTF-8 BOM.
	raw, err := r.store.ReadText(manifestPath)
	if err != nil {
		return &synerr.FilesystemIOError{Op: "read", Path: manifestPath, Err: err}
	}
	manifest, err := ParseManifest([]byte(raw))
	if err != nil {
		return &synerr.ManifestParseError{Path: manifestPath, Err: err}
	}
	p.Manifest = manifest
	p.Version = manifest.Version

	// Step 4: the app may rename itself from its framework block's id.
	if p.Kind == pkgmodel.KindApp && manifest.Framework != nil && manifest.Framework.ID != "" {
		p.Name = manifest.Framework.ID
	}

	r.resolveAvailability(p)

	// Step 7: recurse into direct dependencies with the ancestor sets
	// carried downward (no parent pointers; ownership stays tree-shaped).
	childResolved := unionNames(p.ResolvedAtParent, manifest.DependencyOrder)

	for _, depName := range manifest.DependencyOrder {
		child := pkgmodel.NewPackage(
			pkgmodel.KindPackage,
			depName,
			pathutil.Join(p.Path, "node_modules", depName),
		)
		child.RequiredVersion = manifest.Dependencies[depName]
		child.ResolvedAtGrandparent = p.ResolvedAtParent
		child.ResolvedAtParent = childResolved
		p.Children = append(p.Children, child)

		if err := r.resolve(child); err != nil {
			return err
		}
	}

	return nil
}

// resolveAvailability implements spec §4.1 steps 4b/5/6: App nodes are
// always Available under their (possibly renamed) name; everything else
// competes on name via Graph.Register against whatever is already in the
// Dependencies table.
func (r *resolver) resolveAvailability(p *pkgmodel.Package) {
	if p.Kind == pkgmodel.KindApp {
		p.Availability = pkgmodel.Available
		r.graph.Dependencies[p.Name] = p
		return
	}
	if r.graph.Register(p) != nil {
		obsmetrics.PackagesShadowedTotal.WithLabelValues("diverged").Inc()
	}
}

func unionNames(base map[string]struct{}, names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(names))
	for k := range base {
		out[k] = struct{}{}
	}
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// Validate checks the PackageGraph invariants from spec §3/§8 and returns
// an error describing the first violation found; intended for tests and
// defensive assertions, not for production control flow.
func Validate(g *pkgmodel.Graph) error {
	seenAvailable := make(map[string]bool)
	var walk func(p *pkgmodel.Package) error
	walk = func(p *pkgmodel.Package) error {
		if p.Availability == pkgmodel.Available {
			if seenAvailable[p.Name] && p.Kind != pkgmodel.KindApp {
				return fmt.Errorf("duplicate Available package name %q", p.Name)
			}
			seenAvailable[p.Name] = true
		}
		for _, c := range p.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(g.App); err != nil {
		return err
	}
	for name, pkg := range g.Dependencies {
		if pkg.Availability != pkgmodel.Available {
			return fmt.Errorf("dependencies[%q] has availability %s, want Available", name, pkg.Availability)
		}
	}
	return nil
}
