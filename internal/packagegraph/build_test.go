package packagegraph

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/nativescript-oss/livesync/internal/synerr"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

func newTestStore(t *testing.T) (*filestore.Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return filestore.New(fs), fs
}

func TestBuild_AppAlwaysAvailable(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/proj/package.json", []byte(`{"version":"1.0.0"}`), 0644))

	graph, err := New(store).Build("/proj")
	require.NoError(t, err)
	require.Equal(t, pkgmodel.Available, graph.App.Availability)
	require.Equal(t, "app", graph.App.Name)
}

func TestBuild_AppRenamedFromFrameworkID(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/proj/package.json",
		[]byte(`{"version":"1.0.0","nativescript":{"id":"org.example.app"}}`), 0644))

	graph, err := New(store).Build("/proj")
	require.NoError(t, err)
	require.Equal(t, "org.example.app", graph.App.Name)
}

func TestBuild_MissingManifestIsNotInstalledNotError(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/proj/package.json",
		[]byte(`{"version":"1.0.0","dependencies":{"missing-dep":"^1.0.0"}}`), 0644))

	graph, err := New(store).Build("/proj")
	require.NoError(t, err)
	dep := findChild(graph.App, "missing-dep")
	require.NotNil(t, dep)
	require.Equal(t, pkgmodel.NotInstalled, dep.Availability)
}

func TestBuild_DependencyResolvedAndRegistered(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/proj/package.json",
		[]byte(`{"version":"1.0.0","dependencies":{"tns-core-modules":"^6.0.0"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/tns-core-modules/package.json",
		[]byte(`{"version":"6.0.0"}`), 0644))

	graph, err := New(store).Build("/proj")
	require.NoError(t, err)
	dep, ok := graph.Dependencies["tns-core-modules"]
	require.True(t, ok)
	require.Equal(t, pkgmodel.Available, dep.Availability)
}

func TestBuild_AncestorShadowingSkipsRecursion(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/proj/package.json",
		[]byte(`{"version":"1.0.0","dependencies":{"left":"^1.0.0"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/left/package.json",
		[]byte(`{"version":"1.0.0","dependencies":{"left":"^1.0.0"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/left/node_modules/left/package.json",
		[]byte(`{"version":"9.9.9"}`), 0644))

	graph, err := New(store).Build("/proj")
	require.NoError(t, err)

	left := findChild(graph.App, "left")
	require.NotNil(t, left)
	require.Equal(t, pkgmodel.Available, left.Availability)

	nestedLeft := findChild(left, "left")
	require.NotNil(t, nestedLeft)
	require.Equal(t, pkgmodel.ShadowedByAncestor, nestedLeft.Availability,
		"a dependency already resolved two hops up must not recurse into a nested copy of itself")
}

func TestBuild_DivergedSiblingsPickHigherSemver(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/proj/package.json",
		[]byte(`{"version":"1.0.0","dependencies":{"left":"^1.0.0","right":"^1.0.0"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/left/package.json",
		[]byte(`{"version":"1.0.0","dependencies":{"shared":"^1.0.0"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/left/node_modules/shared/package.json",
		[]byte(`{"version":"2.0.0"}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/right/package.json",
		[]byte(`{"version":"1.0.0","dependencies":{"shared":"^1.0.0"}}`), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/right/node_modules/shared/package.json",
		[]byte(`{"version":"3.0.0"}`), 0644))

	graph, err := New(store).Build("/proj")
	require.NoError(t, err)

	winner, ok := graph.Dependencies["shared"]
	require.True(t, ok)
	require.Equal(t, "3.0.0", winner.Version)
	require.NoError(t, Validate(graph))
}

func TestBuild_MalformedManifestIsFatal(t *testing.T) {
	store, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, "/proj/package.json", []byte(`not json`), 0644))

	_, err := New(store).Build("/proj")
	require.Error(t, err)
	var parseErr *synerr.ManifestParseError
	require.ErrorAs(t, err, &parseErr)
}

func findChild(p *pkgmodel.Package, name string) *pkgmodel.Package {
	for _, c := range p.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}
