package classifier

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/nativescript-oss/livesync/pkg/filestore"
)

func TestFileChangeRequiresBuild_PackageJSON(t *testing.T) {
	store := filestore.New(afero.NewMemMapFs())
	got, err := FileChangeRequiresBuild(store, "/proj", "app/package.json")
	require.NoError(t, err)
	require.True(t, got)
}

func TestFileChangeRequiresBuild_CoreModulesExempt(t *testing.T) {
	store := filestore.New(afero.NewMemMapFs())
	got, err := FileChangeRequiresBuild(store, "/proj", "node_modules/tns-core-modules/ui/page.js")
	require.NoError(t, err)
	require.False(t, got)
}

func TestFileChangeRequiresBuild_NativePlatformFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/nat/package.json",
		[]byte(`{"version":"1.0.0","nativescript":{"id":"nat","platforms":{"android":"*"}}}`), 0644))
	store := filestore.New(fs)

	got, err := FileChangeRequiresBuild(store, "/proj", "node_modules/nat/platforms/android/libfoo.so")
	require.NoError(t, err)
	require.True(t, got)
}

func TestFileChangeRequiresBuild_PlainDependencyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/node_modules/nat/package.json",
		[]byte(`{"version":"1.0.0"}`), 0644))
	store := filestore.New(fs)

	got, err := FileChangeRequiresBuild(store, "/proj", "node_modules/nat/index.js")
	require.NoError(t, err)
	require.False(t, got)
}

func TestFileChangeRequiresBuild_AppScript(t *testing.T) {
	store := filestore.New(afero.NewMemMapFs())
	got, err := FileChangeRequiresBuild(store, "/proj", "app/page.js")
	require.NoError(t, err)
	require.False(t, got)
}

func TestShouldBuildWhenLivesyncing_NoBuildWhenPrepareMatchesLatest(t *testing.T) {
	got := ShouldBuildWhenLivesyncing("t1", "t1", nil, ChangesSummary{AppFilesChanged: true})
	require.False(t, got)
}

func TestShouldBuildWhenLivesyncing_NoDeviceStampRelyOnSummary(t *testing.T) {
	require.True(t, ShouldBuildWhenLivesyncing("t2", "t1", nil, ChangesSummary{ModulesChanged: true}))
	require.False(t, ShouldBuildWhenLivesyncing("t2", "t1", nil, ChangesSummary{}))
}

func TestShouldBuildWhenLivesyncing_DeviceStampSuppressesRedundantBuild(t *testing.T) {
	stamp := "t2"
	got := ShouldBuildWhenLivesyncing("t2", "t1", &stamp, ChangesSummary{ModulesChanged: true})
	require.False(t, got, "device already absorbed this prepare's time, no rebuild needed")
}

func TestShouldBuildWhenLivesyncing_DeviceStampStaleAndSummaryRequires(t *testing.T) {
	stamp := "t1"
	got := ShouldBuildWhenLivesyncing("t2", "t1", &stamp, ChangesSummary{ModulesChanged: true})
	require.True(t, got)
}
