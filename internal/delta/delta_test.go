package delta

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

func newTestGraph() *pkgmodel.Graph {
	app := pkgmodel.NewPackage(pkgmodel.KindApp, "app", "")
	app.Directories = []string{"views/"}
	app.ScriptFiles = []pkgmodel.File{
		{Path: "main.js", AbsolutePath: "/proj/app/main.js", Name: "main.js", Extension: "js", MTime: 100},
		{Path: "views/page.android.js", AbsolutePath: "/proj/app/views/page.android.js", Name: "page.android.js", Extension: "js", MTime: 100},
		{Path: "views/page.ios.js", AbsolutePath: "/proj/app/views/page.ios.js", Name: "page.ios.js", Extension: "js", MTime: 100},
	}

	dep := pkgmodel.NewPackage(pkgmodel.KindPackage, "tns-core-modules", "node_modules/tns-core-modules")
	dep.Availability = pkgmodel.Available
	dep.ScriptFiles = []pkgmodel.File{
		{Path: "index.js", AbsolutePath: "/proj/node_modules/tns-core-modules/index.js", Name: "index.js", Extension: "js", MTime: 100},
	}

	return &pkgmodel.Graph{
		App: app,
		Dependencies: map[string]*pkgmodel.Package{
			"app":              app,
			"tns-core-modules": dep,
		},
	}
}

func newPlanner(t *testing.T) (*Planner, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := filestore.New(fs)
	layout := BuildLayout("/proj/platforms", "myapp", pkgmodel.Android)
	return New(store, layout, nil), fs
}

func TestBuildDelta_FiltersOtherPlatformSuffix(t *testing.T) {
	p, _ := newPlanner(t)
	graph := newTestGraph()

	d := p.BuildDelta(graph, pkgmodel.Android)

	var sawAndroid, sawIOS bool
	for target := range d.Copy {
		if target == p.layout.App+"/views/page.js" {
			sawAndroid = true
		}
		if target == p.layout.App+"/views/page.ios.js" {
			sawIOS = true
		}
	}
	require.True(t, sawAndroid, "android-suffixed file should be rewritten to the bare name")
	require.False(t, sawIOS, "ios-suffixed file should be excluded from an android build")
}

func TestBuildDelta_IncludesDependencyScripts(t *testing.T) {
	p, _ := newPlanner(t)
	graph := newTestGraph()

	d := p.BuildDelta(graph, pkgmodel.Android)

	found := false
	for target := range d.Copy {
		if target == p.layout.Modules+"/tns-core-modules/index.js" {
			found = true
		}
	}
	require.True(t, found, "dependency script files should land under tns_modules/<name>")
}

func TestRebuildDelta_SkipsUpToDateCopies(t *testing.T) {
	p, fs := newPlanner(t)
	graph := newTestGraph()
	desired := p.BuildDelta(graph, pkgmodel.Android)

	target := p.layout.App + "/main.js"
	require.NoError(t, afero.WriteFile(fs, target, []byte("old"), 0644))

	applied, err := p.RebuildDelta(desired)
	require.NoError(t, err)
	_, stillPending := applied.Copy[target]
	require.False(t, stillPending, "a file already on disk at or after the source mtime should be dropped from copy")
}

func TestRebuildDelta_MarksUntrackedFilesForRemoval(t *testing.T) {
	p, fs := newPlanner(t)
	graph := newTestGraph()
	desired := p.BuildDelta(graph, pkgmodel.Android)

	stray := p.layout.App + "/stale.js"
	require.NoError(t, afero.WriteFile(fs, stray, []byte("stale"), 0644))

	applied, err := p.RebuildDelta(desired)
	require.NoError(t, err)
	_, marked := applied.RmFile[stray]
	require.True(t, marked, "a file present on disk but absent from the desired state should be queued for removal")
}

func TestApply_CreatesParentsBeforeCopying(t *testing.T) {
	p, fs := newPlanner(t)
	graph := newTestGraph()
	desired := p.BuildDelta(graph, pkgmodel.Android)

	require.NoError(t, afero.WriteFile(fs, "/proj/app/main.js", []byte("content"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/app/views/page.android.js", []byte("content"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/tns-core-modules/index.js", []byte("content"), 0644))

	applied, err := p.RebuildDelta(desired)
	require.NoError(t, err)
	require.NoError(t, p.Apply(applied))

	exists, err := afero.Exists(fs, p.layout.App+"/main.js")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestDelta_ChangedScripts(t *testing.T) {
	d := newDelta()
	require.False(t, d.ChangedScripts())
	d.RmFile["x"] = struct{}{}
	require.True(t, d.ChangedScripts())
}
