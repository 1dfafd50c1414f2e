package delta

import (
	"github.com/nativescript-oss/livesync/pkg/pathutil"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

// Layout is the per-target output directory layout from spec §6.
type Layout struct {
	App     string // native path to the app output tree
	Modules string // native path to the tns_modules output tree
	Root    string // native path to the platform root
}

// BuildLayout computes the per-platform output layout rooted at
// platformsRoot (typically "<projectRoot>/platforms"), with appBasename
// the last path segment of the project's own path (spec §6).
func BuildLayout(platformsRoot, appBasename string, platform pkgmodel.Platform) Layout {
	switch platform {
	case pkgmodel.IOS:
		root := pathutil.NativeJoin(platformsRoot, "ios")
		app := pathutil.NativeJoin(root, appBasename, "app")
		return Layout{App: app, Modules: pathutil.NativeJoin(app, "tns_modules"), Root: root}
	default: // Android
		root := pathutil.NativeJoin(platformsRoot, "android")
		app := pathutil.NativeJoin(root, "src", "main", "assets", "app")
		return Layout{App: app, Modules: pathutil.NativeJoin(app, "tns_modules"), Root: root}
	}
}
