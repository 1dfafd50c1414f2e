package livesync

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/nativescript-oss/livesync/internal/obslog"
)

// DebuggerPort is the fixed TCP port the iOS debugger channel listens on
// (spec §6).
const DebuggerPort = 18181

// IOSDebugTransport establishes the debugger socket for a device: an
// attach-request notification on the simulator, port-forwarding on a
// physical device (spec §4.7). Establishing the actual connection is out
// of scope (spec §1); this package only owns the wire framing once a
// connection exists.
type IOSDebugTransport interface {
	Connect(ctx context.Context, device Device) (io.ReadWriteCloser, error)
}

// ChangedFile describes one file in a sync batch as seen by the iOS
// refresh strategy.
type ChangedFile struct {
	// DevicePath is the path as it should be addressed on the device
	// (e.g. used to derive a CDP scriptId).
	DevicePath string
	// Content is the new file contents, required to build
	// Debugger.setScriptSource messages.
	Content string
}

// IOSRefresher implements the iOS device refresh strategy of spec §4.7:
// partition by script vs. non-script, allowlist-gate a restart, and
// otherwise drive the debugger socket.
type IOSRefresher struct {
	Transport     IOSDebugTransport
	Restarter     AppRestarter
	LiveEdit      bool
	ConnectTimeout time.Duration
	Log           obslog.Logger
}

// NewIOSRefresher builds a refresher with the spec-recommended 5s connect
// timeout, after which establishment falls back to restart (spec §7,
// DebuggerSocket disposition).
func NewIOSRefresher(transport IOSDebugTransport, restarter AppRestarter, liveEdit bool, log obslog.Logger) *IOSRefresher {
	if log == nil {
		log = obslog.NewNop()
	}
	return &IOSRefresher{Transport: transport, Restarter: restarter, LiveEdit: liveEdit, ConnectTimeout: 5 * time.Second, Log: log}
}

// Refresh implements the iOS branch of spec §4.7's "Device refresh
// strategies": any non-script file outside the fast-sync allowlist forces
// a restart; script-only edits under liveEdit push their new source over
// the debugger socket; anything else fast-sync-eligible (already
// transferred to disk by the caller) gets a bare reload over the same
// socket, falling back to restart if the socket can't be established.
func (r *IOSRefresher) Refresh(ctx context.Context, device Device, files []ChangedFile) error {
	if !fastSyncEligible(files) {
		return r.Restarter.Restart(ctx, device)
	}

	connectCtx, cancel := context.WithTimeout(ctx, r.ConnectTimeout)
	defer cancel()

	conn, err := r.Transport.Connect(connectCtx, device)
	if err != nil {
		r.Log.Debugf("ios debugger connect failed for %s, falling back to restart: %v", device.ID(), err)
		return r.Restarter.Restart(ctx, device)
	}
	defer conn.Close()

	if r.LiveEdit && allScripts(files) {
		for _, f := range files {
			if err := writeFrame(conn, cdpMessage{
				Method: "Debugger.setScriptSource",
				Params: SetScriptSourceParams{ScriptID: scriptIDFor(f.DevicePath), ScriptSource: f.Content},
			}); err != nil {
				return fmt.Errorf("setScriptSource %s: %w", f.DevicePath, err)
			}
		}
	}

	if err := writeFrame(conn, cdpMessage{Method: "Page.reload"}); err != nil {
		return fmt.Errorf("page reload: %w", err)
	}
	return nil
}

// fastSyncEligible reports whether every file in the batch is either a
// script or has an extension on the fast-sync allowlist.
func fastSyncEligible(files []ChangedFile) bool {
	for _, f := range files {
		ext := extOf(f.DevicePath)
		if ext != "js" && !FastSyncExtensions[ext] {
			return false
		}
	}
	return true
}

func extOf(p string) string {
	ext := path.Ext(p)
	if len(ext) > 0 {
		ext = ext[1:]
	}
	return ext
}

func allScripts(files []ChangedFile) bool {
	for _, f := range files {
		if extOf(f.DevicePath) != "js" {
			return false
		}
	}
	return len(files) > 0
}

func scriptIDFor(devicePath string) string {
	return devicePath
}
