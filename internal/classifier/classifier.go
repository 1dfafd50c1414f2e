// Package classifier implements ChangeClassifier (spec §4.4): two
// independent predicates that decide whether an edited file forces a full
// platform build, and whether a livesync session needs to build before
// syncing to a device. It is grounded on packagegraph's ancestor-walk
// manifest parsing, reused here to inspect a file's enclosing packages
// instead of resolving a dependency tree.
package classifier

import (
	"strings"

	"github.com/nativescript-oss/livesync/internal/packagegraph"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
)

const (
	nodeModulesDir  = "node_modules"
	coreModulesName = "tns-core-modules"
	platformsDir    = "platforms"
	manifestName    = "package.json"
)

// FileChangeRequiresBuild implements spec §4.4's fileChangeRequiresBuild.
// path is project-root-relative, forward-slash separated.
func FileChangeRequiresBuild(store *filestore.Store, projectDir, path string) (bool, error) {
	if pathutil.Basename(path) == manifestName {
		return true, nil
	}

	segments := strings.Split(path, "/")
	nmIdx := indexOf(segments, nodeModulesDir)
	if nmIdx < 0 || nmIdx+1 >= len(segments) {
		return false, nil
	}
	if segments[nmIdx+1] == coreModulesName {
		return false, nil
	}

	// Walk upward from the file's immediate parent to the node_modules
	// boundary, checking each ancestor directory for a package.json that
	// declares a framework block, and whether the file lives under that
	// ancestor's platforms/ subtree.
	for end := len(segments) - 1; end > nmIdx; end-- {
		ancestorRel := strings.Join(segments[:end], "/")
		manifestPath := pathutil.NativeJoin(projectDir, ancestorRel, manifestName)
		if !store.Exists(manifestPath) {
			continue
		}

		raw, err := store.ReadText(manifestPath)
		if err != nil {
			return false, err
		}
		manifest, err := packagegraph.ParseManifest([]byte(raw))
		if err != nil {
			return false, err
		}
		if manifest.Framework == nil {
			continue
		}

		platformsPrefix := ancestorRel + "/" + platformsDir + "/"
		if strings.HasPrefix(path+"/", platformsPrefix) || strings.HasPrefix(path, platformsPrefix) {
			return true, nil
		}
	}

	return false, nil
}

func indexOf(segments []string, name string) int {
	for i, s := range segments {
		if s == name {
			return i
		}
	}
	return -1
}

// ChangesSummary mirrors the six PrepareInfo change flags from spec §4.5/§8
// property 5.
type ChangesSummary struct {
	AppFilesChanged     bool
	AppResourcesChanged bool
	ModulesChanged      bool
	ConfigChanged       bool
	PackageChanged      bool
	NativeChanged       bool
}

// RequiresBuild reports whether any change flag fired.
func (c ChangesSummary) RequiresBuild() bool {
	return c.AppFilesChanged || c.AppResourcesChanged || c.ModulesChanged ||
		c.ConfigChanged || c.PackageChanged || c.NativeChanged
}

// ShouldBuildWhenLivesyncing implements spec §4.4's shouldBuildWhenLivesyncing.
// prepareTime is prepareInfo.time; latestBuildTime is the platform's most
// recent build output timestamp; deviceStamp is the device's LiveSyncInfo
// stamp (nil if the device has never synced).
func ShouldBuildWhenLivesyncing(prepareTime, latestBuildTime string, deviceStamp *string, summary ChangesSummary) bool {
	if prepareTime == latestBuildTime {
		return false
	}
	if deviceStamp != nil {
		return prepareTime != *deviceStamp && summary.RequiresBuild()
	}
	return summary.RequiresBuild()
}
