// Package livesync implements LiveSyncCoordinator (spec §4.7): full and
// partial device syncs, batching via syncbatch, rebuild dispatch via
// delta+packagegraph+fileinventory, and the two device refresh
// strategies. Device discovery and the low-level transfer/install
// primitives are out of scope (spec §1); this package depends on them
// only through the interfaces in this file, grounded on the teacher's
// dependency-injected collaborator style in winclient's CoreConfig.
package livesync

import (
	"context"

	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

// Device identifies one attached target the coordinator can sync to.
type Device interface {
	ID() string
	Platform() pkgmodel.Platform
	// IsEmulator reports whether this target is a simulator/emulator
	// rather than physical hardware — it changes which build output
	// (device vs. emulator) and which refresh path (attach vs.
	// port-forward for iOS; transferDirectory eligibility) applies.
	IsEmulator() bool
}

// InstallProvider manages whether the built package is present on a
// device (spec §4.7 full sync step 2).
type InstallProvider interface {
	IsInstalled(ctx context.Context, device Device) (bool, error)
	Uninstall(ctx context.Context, device Device) error
	Install(ctx context.Context, device Device, packagePath string) error
}

// TransferProvider moves files onto a device (spec §4.7 step 4 and the
// per-flush action).
type TransferProvider interface {
	// TransferDirectory pushes an entire local directory tree to
	// deviceRoot in one operation; only used for full syncs on Android
	// devices and the iOS simulator (spec §4.7 step 4).
	TransferDirectory(ctx context.Context, device Device, localRoot, deviceRoot string) error
	// TransferFiles pushes an explicit local-path -> device-path mapping.
	TransferFiles(ctx context.Context, device Device, localToDevicePaths map[string]string) error
	// RemoveFiles deletes the given device-relative paths, used for the
	// targeted remove-files sync triggered by an unlink event.
	RemoveFiles(ctx context.Context, device Device, devicePaths []string) error
}

// AndroidRefresher delegates to the device's own livesync service, which
// performs a package-manager-level reload (spec §4.7, Android strategy).
type AndroidRefresher interface {
	Reload(ctx context.Context, device Device) error
}

// FastSyncExtensions is the file-extension allowlist for which an iOS hot
// refresh is sufficient; anything else forces a restart (spec §4.7,
// Glossary "Fast-sync").
var FastSyncExtensions = map[string]bool{
	"js":   true,
	"json": true,
	"css":  true,
	"xml":  true,
}

// AppRestarter restarts the application on a device, used when the iOS
// fast-sync allowlist is exceeded or the debugger socket can't be
// established in time.
type AppRestarter interface {
	Restart(ctx context.Context, device Device) error
}
