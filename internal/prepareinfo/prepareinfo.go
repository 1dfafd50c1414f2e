// Package prepareinfo implements PrepareInfoStore (spec §4.5): the
// per-platform JSON stamp recording the last prepare, at
// <platformRoot>/.nsprepareinfo. It is grounded on the teacher's
// cache.SavePins/LoadPins atomic JSON persistence, reused here through
// filestore.Store.ReadJSON/WriteJSON.
package prepareinfo

import (
	"time"

	"github.com/nativescript-oss/livesync/internal/classifier"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
)

const fileName = ".nsprepareinfo"

// Record is the on-disk shape of .nsprepareinfo.
type Record struct {
	Time    string `json:"time"`
	Bundle  bool   `json:"bundle"`
	Release bool   `json:"release"`

	AppFilesChanged     bool `json:"appFilesChanged"`
	AppResourcesChanged bool `json:"appResourcesChanged"`
	ModulesChanged      bool `json:"modulesChanged"`
	ConfigChanged       bool `json:"configChanged"`
	PackageChanged      bool `json:"packageChanged"`
	NativeChanged       bool `json:"nativeChanged"`
}

// Summary extracts the classifier.ChangesSummary view of this record's
// change flags.
func (r Record) Summary() classifier.ChangesSummary {
	return classifier.ChangesSummary{
		AppFilesChanged:     r.AppFilesChanged,
		AppResourcesChanged: r.AppResourcesChanged,
		ModulesChanged:      r.ModulesChanged,
		ConfigChanged:       r.ConfigChanged,
		PackageChanged:      r.PackageChanged,
		NativeChanged:       r.NativeChanged,
	}
}

// Options are the bundle/release build options that, if they differ from
// the stored record, force every change flag true on reconciliation.
type Options struct {
	Bundle  bool
	Release bool
}

// Store reads and writes the PrepareInfo record for one platform root.
type Store struct {
	fs           *filestore.Store
	platformRoot string
	now          func() time.Time
}

// New creates a Store rooted at platformRoot (e.g. "platforms/ios").
func New(fs *filestore.Store, platformRoot string) *Store {
	return &Store{fs: fs, platformRoot: platformRoot, now: time.Now}
}

func (s *Store) path() string {
	return pathutil.NativeJoin(s.platformRoot, fileName)
}

// Load reads the record, returning a zero-value Record if the file does
// not exist yet (no prior prepare).
func (s *Store) Load() (Record, error) {
	var r Record
	if !s.fs.Exists(s.path()) {
		return r, nil
	}
	if err := s.fs.ReadJSON(s.path(), &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Reconcile applies spec §4.5's reconciliation rule: if opts.Bundle or
// opts.Release differ from the stored record, every change flag is forced
// true. summary's flags are OR'd onto the stored record's flags (a file
// change observed this cycle is never forgotten by a reconcile). If any
// flag ends up true, time is refreshed to the current wall clock, or to
// one nanosecond past the stored time if the clock has not moved beyond
// it, so successive refreshes strictly increase. The reconciled record is
// persisted before being returned.
func (s *Store) Reconcile(opts Options, summary classifier.ChangesSummary) (Record, error) {
	r, err := s.Load()
	if err != nil {
		return Record{}, err
	}

	optsChanged := r.Bundle != opts.Bundle || r.Release != opts.Release
	r.Bundle = opts.Bundle
	r.Release = opts.Release

	r.AppFilesChanged = r.AppFilesChanged || summary.AppFilesChanged || optsChanged
	r.AppResourcesChanged = r.AppResourcesChanged || summary.AppResourcesChanged || optsChanged
	r.ModulesChanged = r.ModulesChanged || summary.ModulesChanged || optsChanged
	r.ConfigChanged = r.ConfigChanged || summary.ConfigChanged || optsChanged
	r.PackageChanged = r.PackageChanged || summary.PackageChanged || optsChanged
	r.NativeChanged = r.NativeChanged || summary.NativeChanged || optsChanged

	if r.Summary().RequiresBuild() {
		now := s.now().UTC()
		if prev, err := time.Parse(time.RFC3339Nano, r.Time); err == nil && !now.After(prev) {
			now = prev.Add(time.Nanosecond)
		}
		r.Time = now.Format(time.RFC3339Nano)
	}

	if err := s.fs.WriteJSON(s.path(), &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Clear resets every change flag to false without touching time, the way
// a successful rebuild acknowledges that its pending changes are now
// reflected in the output (so the next reconcile starts from a clean
// slate rather than re-flagging files already rebuilt).
func (s *Store) Clear() (Record, error) {
	r, err := s.Load()
	if err != nil {
		return Record{}, err
	}
	r.AppFilesChanged = false
	r.AppResourcesChanged = false
	r.ModulesChanged = false
	r.ConfigChanged = false
	r.PackageChanged = false
	r.NativeChanged = false
	if err := s.fs.WriteJSON(s.path(), &r); err != nil {
		return Record{}, err
	}
	return r, nil
}
