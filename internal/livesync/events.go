package livesync

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/nativescript-oss/livesync/internal/classifier"
	"github.com/nativescript-oss/livesync/internal/obsmetrics"
	"github.com/nativescript-oss/livesync/internal/prepareinfo"
	"github.com/nativescript-oss/livesync/internal/synerr"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
)

// EventKind mirrors the watcher event vocabulary the coordinator
// consumes (spec §4.7's add/change/unlink), classified from the
// fsnotify.Op bits an external watcher reports.
type EventKind int

const (
	EventAdd EventKind = iota
	EventChange
	EventUnlink
)

// classifyOp maps an fsnotify.Op to the coordinator's own event
// vocabulary. A bare Chmod (permission-only change, no content or
// existence change) carries nothing the sync pipeline cares about.
func classifyOp(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return EventUnlink, true
	case op&fsnotify.Create != 0:
		return EventAdd, true
	case op&fsnotify.Write != 0:
		return EventChange, true
	default:
		return 0, false
	}
}

// relProjectPath converts the absolute (or watch-root-relative) path
// fsnotify reports into the project-relative, forward-slash path the
// rest of the coordinator works with.
func relProjectPath(projectRoot, name string) string {
	rel := strings.TrimPrefix(name, projectRoot)
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimPrefix(rel, `\`)
	return strings.ReplaceAll(rel, "\\", "/")
}

// Session bundles the per-device context a partial sync needs across
// calls to OnEvent and its eventual flush: where the project and output
// live, which build options are in effect, and the prepare-info store
// whose stamp gates rebuilds.
type Session struct {
	Device  Device
	Target  PlatformTarget
	Prepare *prepareinfo.Store
	Opts    Options
	OnWarn  func(msg string)
}

// OnEvent implements spec §4.7's partial sync: filter App_Resources
// edits, dedup by content hash, drop excluded paths, and enqueue
// add/change into the device's SyncBatch or perform a targeted
// remove-files sync for unlink. evt is the raw notification an external
// watcher (outside this package's scope per §1) observed; fsnotify.Event
// is the wire shape between that collaborator and the core.
func (c *Coordinator) OnEvent(ctx context.Context, s *Session, evt fsnotify.Event) error {
	kind, ok := classifyOp(evt.Op)
	if !ok {
		return nil
	}
	relPath := relProjectPath(s.Target.ProjectRoot, evt.Name)

	if pathutil.IsChildPath("app/App_Resources", relPath) {
		if s.OnWarn != nil {
			s.OnWarn(fmt.Sprintf("change under App_Resources (%s) requires a full build; run a rebuild", relPath))
		}
		return nil
	}

	if isExcludedPath(relPath) {
		return nil
	}

	if kind == EventUnlink {
		c.mu.Lock()
		delete(c.fileHashes, relPath)
		c.mu.Unlock()

		devicePath := strings.TrimPrefix(relPath, "app/")
		if err := c.transfer.RemoveFiles(ctx, s.Device, []string{devicePath}); err != nil {
			return &synerr.DeviceTransferError{DeviceID: s.Device.ID(), Err: err}
		}
		return nil
	}

	absPath := pathutil.NativeJoin(s.Target.ProjectRoot, relPath)
	hash, err := c.store.Hash(absPath)
	if err != nil {
		return &synerr.FilesystemIOError{Op: "hash", Path: absPath, Err: err}
	}

	c.mu.Lock()
	if prior, seen := c.fileHashes[relPath]; seen && prior == hash {
		c.mu.Unlock()
		return nil
	}
	c.fileHashes[relPath] = hash
	c.mu.Unlock()

	batch := c.batchFor(s.Device, func(paths []string) {
		if err := c.flush(ctx, s, paths); err != nil {
			c.log.Errorf("sync flush failed for device %s: %v", s.Device.ID(), err)
			obsmetrics.DeviceSyncsTotal.WithLabelValues(string(s.Target.Platform), "error").Inc()
		}
	})
	batch.AddFile(relPath)
	return nil
}

// flush implements spec §4.7's "Per-flush action": partition by
// fileChangeRequiresBuild; any hit triggers a deploy cycle + blind
// refresh, otherwise transfer + refresh + stamp + afterFileSyncAction.
func (c *Coordinator) flush(ctx context.Context, s *Session, paths []string) error {
	requiresBuild := false
	for _, p := range paths {
		hit, err := classifier.FileChangeRequiresBuild(c.store, s.Target.ProjectRoot, p)
		if err != nil {
			return err
		}
		if hit {
			requiresBuild = true
			break
		}
	}

	strategy, err := c.strategyFor(s.Device)
	if err != nil {
		return err
	}

	if requiresBuild {
		return c.deployCycle(ctx, s, strategy)
	}

	localToDevicePaths := make(map[string]string, len(paths))
	changed := make([]ChangedFile, 0, len(paths))
	for _, p := range paths {
		absPath := pathutil.NativeJoin(s.Target.ProjectRoot, p)
		devicePath := strings.TrimPrefix(p, "app/")
		localToDevicePaths[absPath] = devicePath

		content := ""
		if text, err := c.store.ReadText(absPath); err == nil {
			content = text
		}
		changed = append(changed, ChangedFile{DevicePath: devicePath, Content: content})
	}

	if err := c.transfer.TransferFiles(ctx, s.Device, localToDevicePaths); err != nil {
		return &synerr.DeviceTransferError{DeviceID: s.Device.ID(), Err: err}
	}

	if err := strategy.Refresh(ctx, s.Device, changed); err != nil {
		return err
	}

	record, err := s.Prepare.Load()
	if err != nil {
		return err
	}
	if err := c.stampLiveSync(s.Target, s.Device, record.Time); err != nil {
		return err
	}

	c.mu.Lock()
	afterAction := c.afterFileSyncAction
	c.mu.Unlock()
	if afterAction != nil {
		afterAction(s.Device, paths)
	}
	return nil
}

// deployCycle handles spec §4.7's "BuildRequired-during-livesync"
// reclassification: a build-requiring edit inside a live-sync session is
// not an error, it runs a full rebuild, reinstall, and a blind refresh
// (no per-file transfer, no LiveSyncInfo precondition check).
func (c *Coordinator) deployCycle(ctx context.Context, s *Session, strategy RefreshStrategy) error {
	if _, err := c.Rebuild(s.Target); err != nil {
		return err
	}

	record, err := s.Prepare.Reconcile(prepareinfo.Options{Bundle: s.Opts.Bundle, Release: s.Opts.Release}, classifier.ChangesSummary{ModulesChanged: true})
	if err != nil {
		return err
	}

	c.log.Infof("Installing...")
	installed, err := c.install.IsInstalled(ctx, s.Device)
	if err != nil {
		return err
	}
	if installed {
		if err := c.install.Uninstall(ctx, s.Device); err != nil {
			return err
		}
	}
	packagePath := pathutil.NativeJoin(s.Target.PlatformsRoot, string(s.Target.Platform))
	if err := c.install.Install(ctx, s.Device, packagePath); err != nil {
		return err
	}

	c.log.Infof("Transferring project files...")
	if err := strategy.Refresh(ctx, s.Device, nil); err != nil {
		return err
	}
	if err := c.stampLiveSync(s.Target, s.Device, record.Time); err != nil {
		return err
	}
	if _, err := s.Prepare.Clear(); err != nil {
		return err
	}
	c.log.Infof("Successfully synced application %s on device %s", s.Target.AppBasename, s.Device.ID())
	return nil
}
