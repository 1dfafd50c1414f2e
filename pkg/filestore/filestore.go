// Package filestore abstracts the filesystem surface the engine needs:
// read/write text and JSON, stat, directory listing, copy, directory
// create/delete, content hashing, and unique temp names. It is a
// synchronous-contract interface (spec §4, component 2) — every method
// blocks until the underlying I/O completes.
//
// The concrete implementation is backed by github.com/spf13/afero so the
// same engine code runs against the real disk (afero.NewOsFs) or an
// in-memory filesystem in tests (afero.NewMemMapFs), the way
// bolasblack-alcatraz backs its core with afero.
package filestore

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Entry describes one file or directory found during a recursive List.
type Entry struct {
	Path    string // relative to the listed root, forward-slash separated
	Name    string
	IsDir   bool
	MTime   time.Time
	Size    int64
}

// Store is the blocking filesystem abstraction consumed by the rest of the
// engine. Nothing outside this package imports afero directly.
type Store struct {
	fs afero.Fs
}

// New wraps an afero.Fs. Use afero.NewOsFs() in production,
// afero.NewMemMapFs() in tests.
func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewOS returns a Store backed by the real filesystem.
func NewOS() *Store {
	return New(afero.NewOsFs())
}

// ReadText reads the full contents of path as a string.
func (s *Store) ReadText(path string) (string, error) {
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// WriteText writes contents to path, creating parent directories as needed.
func (s *Store) WriteText(path, contents string) error {
	if err := s.MkdirAll(parentDir(path)); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, path, []byte(contents), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the JSON document at path into v.
func (s *Store) ReadJSON(path string, v any) error {
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v as JSON and writes it to path atomically: it writes
// to a unique temp name in the same directory, then renames over path, the
// pattern the teacher's cache.Put uses for content writes.
func (s *Store) WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := s.MkdirAll(parentDir(path)); err != nil {
		return err
	}
	tmp := s.UniqueTempName(path)
	if err := afero.WriteFile(s.fs, tmp, b, 0644); err != nil {
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename temp for %s: %w", path, err)
	}
	return nil
}

// Stat returns the Entry for a single path, or an error satisfying
// os.IsNotExist if it does not exist.
func (s *Store) Stat(path string) (Entry, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Path:  path,
		Name:  info.Name(),
		IsDir: info.IsDir(),
		MTime: info.ModTime(),
		Size:  info.Size(),
	}, nil
}

// Exists reports whether path exists, swallowing stat errors as "absent" —
// used for the manifest-presence check in PackageGraph step 1.
func (s *Store) Exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}

// List recursively walks root and returns every entry beneath it
// (directories and files), with Path relative to root and forward-slash
// separated. root itself is not included. A missing root yields an empty
// list rather than an error, since callers List() directories that may not
// exist yet (spec §4.3's rebuildDelta scans output.app/output.modules "if
// they exist").
func (s *Store) List(root string) ([]Entry, error) {
	if !s.Exists(root) {
		return nil, nil
	}

	var entries []Entry
	err := afero.Walk(s.fs, root, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == root {
			return nil
		}
		rel := relForward(root, p)
		entries = append(entries, Entry{
			Path:  rel,
			Name:  baseName(rel),
			IsDir: info.IsDir(),
			MTime: info.ModTime(),
			Size:  info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// ListDir returns the immediate children of path (one level, not
// recursive), for callers that need to control recursion themselves —
// FileInventory walks directory-by-directory so it can stop descending at
// node_modules/platforms boundaries and detect nested package.json files
// before committing to a scope (spec §4.2).
func (s *Store) ListDir(path string) ([]Entry, error) {
	if !s.Exists(path) {
		return nil, nil
	}
	infos, err := afero.ReadDir(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("list dir %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Path:  info.Name(),
			Name:  info.Name(),
			IsDir: info.IsDir(),
			MTime: info.ModTime(),
			Size:  info.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Copy copies a single file from src to dst, creating dst's parent
// directories as needed, then stamps dst's mtime to match src so
// DeltaPlanner's "not older" comparison is meaningful after an apply.
func (s *Store) Copy(src, dst string) error {
	if err := s.MkdirAll(parentDir(dst)); err != nil {
		return err
	}
	in, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp := s.UniqueTempName(dst)
	out, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close temp for %s: %w", dst, err)
	}
	if err := s.fs.Rename(tmp, dst); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename temp for %s: %w", dst, err)
	}

	if srcInfo, err := s.fs.Stat(src); err == nil {
		_ = s.fs.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	}
	return nil
}

// MkdirAll creates path and all missing parents.
func (s *Store) MkdirAll(path string) error {
	if path == "" {
		return nil
	}
	if err := s.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// RemoveFile removes a single file. Missing files are not an error, since
// RebuildDelta may be replayed against output that a prior partial apply
// already touched.
func (s *Store) RemoveFile(path string) error {
	if err := s.fs.Remove(path); err != nil && s.Exists(path) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// RemoveDir removes an empty directory. Like RemoveFile, a missing
// directory is not an error.
func (s *Store) RemoveDir(path string) error {
	if err := s.fs.Remove(path); err != nil && s.Exists(path) {
		return fmt.Errorf("rmdir %s: %w", path, err)
	}
	return nil
}

// Hash returns the hex-encoded sha1 of path's contents, used to suppress
// no-op partial-sync notifications (spec §4.7, fileHashes table).
func (s *Store) Hash(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// UniqueTempName returns a unique sibling path to base suitable for the
// temp-file-then-rename pattern, backed by google/uuid the way
// bolasblack-alcatraz generates unique identifiers for its core.
func (s *Store) UniqueTempName(base string) string {
	return base + ".tmp-" + uuid.NewString()
}

func parentDir(path string) string {
	idx := lastSlash(path)
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return i
		}
	}
	return -1
}

func baseName(path string) string {
	idx := lastSlash(path)
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func relForward(root, full string) string {
	rel := full
	if len(full) > len(root) {
		rel = full[len(root):]
	}
	for len(rel) > 0 && (rel[0] == '/' || rel[0] == '\\') {
		rel = rel[1:]
	}
	return rel
}
