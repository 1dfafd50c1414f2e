// Package synerr defines the error-kind taxonomy from spec §7
// (ManifestParse, FilesystemIO, DeviceTransfer, DebuggerSocket) as typed,
// wrappable errors; NotInstalled is not an error type here but a Package
// availability state. It mirrors the teacher's client.ConflictError /
// client.AsConflict pattern in shared/pkg/client/client.go.
package synerr

import "fmt"

// ManifestParseError is fatal to the current rebuild (spec §7).
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error { return e.Err }

// FilesystemIOError is fatal to the current operation; callers must not
// treat it as retryable within the same rebuild (spec §7).
type FilesystemIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemIOError) Unwrap() error { return e.Err }

// DeviceTransferError is logged and swallowed per batch (spec §7): the
// caller reports "Unable to sync files" and does not retry the batch.
type DeviceTransferError struct {
	DeviceID string
	Err      error
}

func (e *DeviceTransferError) Error() string {
	return fmt.Sprintf("unable to sync files to device %s: %v", e.DeviceID, e.Err)
}

func (e *DeviceTransferError) Unwrap() error { return e.Err }

// DebuggerSocketError is a socket-level failure on the iOS live-edit
// channel; the caller destroys the socket and falls back to restart if
// re-establishment times out (spec §7).
type DebuggerSocketError struct {
	Err error
}

func (e *DebuggerSocketError) Error() string {
	return fmt.Sprintf("debugger socket: %v", e.Err)
}

func (e *DebuggerSocketError) Unwrap() error { return e.Err }
