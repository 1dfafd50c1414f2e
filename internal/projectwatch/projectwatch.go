// Package projectwatch is livesyncctl's external watcher collaborator: it
// owns an fsnotify.Watcher over a project's app directory and forwards raw
// fsnotify.Event values to a callback, the wire shape livesync.Coordinator
// consumes (spec §1 keeps watcher ownership out of the core itself).
// Adapted from the teacher's poll-based directory scanner (watcher.Watcher)
// into an fsnotify-driven push model, since the engine already depends on
// fsnotify.Event as its event vocabulary.
package projectwatch

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/nativescript-oss/livesync/internal/obslog"
)

// Watcher recursively watches a directory tree and forwards every
// fsnotify event beneath it to OnEvent.
type Watcher struct {
	fsw     *fsnotify.Watcher
	OnEvent func(fsnotify.Event)
	log     obslog.Logger
}

// New creates a Watcher and adds root plus every subdirectory beneath it
// (fsnotify watches are not recursive on their own).
func New(root string, onEvent func(fsnotify.Event), log obslog.Logger) (*Watcher, error) {
	if log == nil {
		log = obslog.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, OnEvent: onEvent, log: log}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run drains events and errors until ctx is canceled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 {
				// A newly created directory needs its own watch, or its
				// contents would be invisible to future events.
				if isDir(evt.Name) {
					if err := w.fsw.Add(evt.Name); err != nil {
						w.log.Debugf("watch new dir %s: %v", evt.Name, err)
					}
				}
			}
			if w.OnEvent != nil {
				w.OnEvent(evt)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Errorf("watch error: %v", err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addTree(root string) error {
	return walkDirs(root, func(dir string) error {
		return w.fsw.Add(dir)
	})
}
