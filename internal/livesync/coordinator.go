package livesync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nativescript-oss/livesync/internal/classifier"
	"github.com/nativescript-oss/livesync/internal/delta"
	"github.com/nativescript-oss/livesync/internal/fileinventory"
	"github.com/nativescript-oss/livesync/internal/obslog"
	"github.com/nativescript-oss/livesync/internal/obsmetrics"
	"github.com/nativescript-oss/livesync/internal/packagegraph"
	"github.com/nativescript-oss/livesync/internal/prepareinfo"
	"github.com/nativescript-oss/livesync/internal/synerr"
	"github.com/nativescript-oss/livesync/internal/syncbatch"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

// excludedProjectDirsAndFiles are the glob patterns (spec §4.7 partial
// sync) matched case-insensitively against a project-relative path; a
// match drops the edit from live-sync consideration entirely.
var excludedProjectDirsAndFiles = []string{
	"**/*.ts",
	"**/.git/**",
	"**/*.map",
	"**/node_modules/.bin/**",
	"**/platforms/**/*.orig",
}

// RefreshStrategy is the per-platform device refresh dispatch (spec
// §4.7's "Device refresh strategies").
type RefreshStrategy interface {
	Refresh(ctx context.Context, device Device, files []ChangedFile) error
}

// Options are the configuration flags the core consumes (spec §6).
type Options struct {
	Bundle       bool
	Release      bool
	LiveEdit     bool
	SyncAllFiles bool
}

// PlatformTarget bundles the paths and platform the coordinator needs to
// rebuild and address one platform's output (project root, platforms
// root, app basename); the prepare-info store is passed separately.
type PlatformTarget struct {
	ProjectRoot   string
	PlatformsRoot string
	AppBasename   string
	Platform      pkgmodel.Platform
}

// Coordinator implements LiveSyncCoordinator (spec §4.7). It owns one
// SyncBatch per device and the shared fileHashes dedup table.
type Coordinator struct {
	store    *filestore.Store
	log      obslog.Logger
	install  InstallProvider
	transfer TransferProvider
	android  RefreshStrategy
	ios      RefreshStrategy

	mu         sync.Mutex
	fileHashes map[string]string
	batches    map[string]*syncbatch.Batch
	liveSync   map[string]string // device id -> last synced prepareInfo.time

	afterFileSyncAction func(device Device, paths []string)
}

// New creates a Coordinator. android/ios may be nil if that platform is
// never targeted in this process.
func New(store *filestore.Store, install InstallProvider, transfer TransferProvider, android, ios RefreshStrategy, log obslog.Logger) *Coordinator {
	if log == nil {
		log = obslog.NewNop()
	}
	return &Coordinator{
		store:      store,
		log:        log,
		install:    install,
		transfer:   transfer,
		android:    android,
		ios:        ios,
		fileHashes: make(map[string]string),
		batches:    make(map[string]*syncbatch.Batch),
		liveSync:   make(map[string]string),
	}
}

// SetAfterFileSyncAction installs the optional callback invoked after a
// successful per-flush hot-sync action (spec §4.7's afterFileSyncAction).
func (c *Coordinator) SetAfterFileSyncAction(fn func(device Device, paths []string)) {
	c.mu.Lock()
	c.afterFileSyncAction = fn
	c.mu.Unlock()
}

func (c *Coordinator) strategyFor(device Device) (RefreshStrategy, error) {
	switch device.Platform() {
	case pkgmodel.Android:
		if c.android == nil {
			return nil, fmt.Errorf("no android refresh strategy configured")
		}
		return c.android, nil
	case pkgmodel.IOS:
		if c.ios == nil {
			return nil, fmt.Errorf("no ios refresh strategy configured")
		}
		return c.ios, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", device.Platform())
	}
}

// Rebuild runs the full PackageGraph -> FileInventory -> DeltaPlanner ->
// apply pipeline for target.platform, fixing the reference source's
// "always returns the iOS result" bug (spec §9): it returns exactly the
// delta for the requested platform, observed via obsmetrics.ObserveRebuild.
func (c *Coordinator) Rebuild(target PlatformTarget) (*delta.Delta, error) {
	start := time.Now()

	graphBuilder := packagegraph.New(c.store)
	graph, err := graphBuilder.Build(target.ProjectRoot)
	if err != nil {
		return nil, err
	}

	inv := fileinventory.New(c.store, target.ProjectRoot)
	if _, err := inv.Collect(graph); err != nil {
		return nil, err
	}

	layout := delta.BuildLayout(target.PlatformsRoot, target.AppBasename, target.Platform)
	planner := delta.New(c.store, layout, c.log)
	applied, err := planner.Rebuild(graph, target.Platform)
	if err != nil {
		return nil, err
	}

	obsmetrics.ObserveRebuild(string(target.Platform), time.Since(start))
	return applied, nil
}

// FullSync implements spec §4.7's full sync, steps 1-5.
func (c *Coordinator) FullSync(ctx context.Context, device Device, target PlatformTarget, prepare *prepareinfo.Store, opts Options, summary classifier.ChangesSummary, latestBuildTime string, postAction func() error) error {
	deviceStamp := c.liveSyncStamp(device.ID())

	record, err := prepare.Load()
	if err != nil {
		return err
	}
	if classifier.ShouldBuildWhenLivesyncing(record.Time, latestBuildTime, deviceStamp, summary) {
		if _, err := c.Rebuild(target); err != nil {
			return err
		}
		if record, err = prepare.Reconcile(prepareinfo.Options{Bundle: opts.Bundle, Release: opts.Release}, summary); err != nil {
			return err
		}
	}

	c.log.Infof("Installing...")
	installed, err := c.install.IsInstalled(ctx, device)
	if err != nil {
		return err
	}
	if installed {
		if err := c.install.Uninstall(ctx, device); err != nil {
			return err
		}
	}
	packagePath := pathutil.NativeJoin(target.PlatformsRoot, string(target.Platform))
	if err := c.install.Install(ctx, device, packagePath); err != nil {
		return err
	}

	layout := delta.BuildLayout(target.PlatformsRoot, target.AppBasename, target.Platform)
	localToDevicePaths, err := c.localToDevicePaths(layout.App)
	if err != nil {
		return err
	}

	c.log.Infof("Transferring project files...")
	canTransferDirectory := target.Platform == pkgmodel.Android || device.IsEmulator()
	if canTransferDirectory {
		if err := c.transfer.TransferDirectory(ctx, device, layout.App, "app"); err != nil {
			return &synerr.DeviceTransferError{DeviceID: device.ID(), Err: err}
		}
	} else {
		if err := c.transfer.TransferFiles(ctx, device, localToDevicePaths); err != nil {
			return &synerr.DeviceTransferError{DeviceID: device.ID(), Err: err}
		}
	}

	if postAction != nil {
		return postAction()
	}

	strategy, err := c.strategyFor(device)
	if err != nil {
		return err
	}
	if err := strategy.Refresh(ctx, device, nil); err != nil {
		return err
	}
	if err := c.stampLiveSync(target, device, record.Time); err != nil {
		return err
	}
	if _, err := prepare.Clear(); err != nil {
		return err
	}
	obsmetrics.DeviceSyncsTotal.WithLabelValues(string(target.Platform), "ok").Inc()
	c.log.Infof("Successfully synced application %s on device %s", target.AppBasename, device.ID())
	return nil
}

// localToDevicePaths walks localRoot and maps every file not excluded by
// excludedProjectDirsAndFiles to its device-relative path (spec §4.7 step
// 3).
func (c *Coordinator) localToDevicePaths(localRoot string) (map[string]string, error) {
	entries, err := c.store.List(localRoot)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if isExcludedPath(e.Path) {
			continue
		}
		out[pathutil.NativeJoin(localRoot, e.Path)] = pathutil.AppPath(e.Path)
	}
	return out, nil
}

func isExcludedPath(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, pattern := range excludedProjectDirsAndFiles {
		if ok, _ := doublestar.Match(pattern, lower); ok {
			return true
		}
	}
	return false
}

const liveSyncInfoFile = ".nslivesyncinfo"

// buildOutputDir resolves spec §6's "device-build-output"/"emulator-build-
// output" directory that .nslivesyncinfo lives in for a given device.
func buildOutputDir(target PlatformTarget, device Device) string {
	kind := "device"
	if device.IsEmulator() {
		kind = "emulator"
	}
	return pathutil.NativeJoin(target.PlatformsRoot, string(target.Platform), "build", kind)
}

func (c *Coordinator) liveSyncStamp(deviceID string) *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.liveSync[deviceID]; ok {
		return &v
	}
	return nil
}

// stampLiveSync records prepareTime in memory and persists it as the
// plain-text .nslivesyncinfo stamp in target's build output directory for
// device (spec §6). Callers must only invoke this strictly after a
// successful device refresh (spec §9's third documented reference-source
// bug: the stamp must never be written ahead of a confirmed refresh).
func (c *Coordinator) stampLiveSync(target PlatformTarget, device Device, prepareTime string) error {
	c.mu.Lock()
	c.liveSync[device.ID()] = prepareTime
	c.mu.Unlock()

	path := pathutil.NativeJoin(buildOutputDir(target, device), liveSyncInfoFile)
	return c.store.WriteText(path, prepareTime)
}

func (c *Coordinator) batchFor(device Device, flush func(paths []string)) *syncbatch.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.batches[device.ID()]
	if !ok {
		b = syncbatch.New(syncbatch.DefaultQuietInterval, flush)
		c.batches[device.ID()] = b
	}
	return b
}
