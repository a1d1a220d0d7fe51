package hostfs

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// TamperWatch watches a swap file for changes — e.g. a developer deleting
// or renaming SWAP_FILENAME by hand while a simulation is running.
// swap.Store opens one for its file and drains it in Tampered, which the
// manager asserts on at the top of PageIn and Release.
type TamperWatch struct {
	w      *fsnotify.Watcher
	Events <-chan fsnotify.Event
	Errors <-chan error
}

// WatchFile starts watching path and returns a TamperWatch whose Events
// channel reports writes/removals/renames of the file, including this
// process's own writes. Grounded on the reference corpus's fsnotify.Watcher
// wrapper (internal/runtime/vfs/watch_fsnotify.go): the watcher's raw
// fsnotify channels are exposed directly rather than re-wrapped in a bespoke
// event type, since the swap store has no use for anything beyond "did this
// path change".
func WatchFile(path string) (*TamperWatch, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hostfs: create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("hostfs: watch %s: %w", path, err)
	}

	return &TamperWatch{w: w, Events: w.Events, Errors: w.Errors}, nil
}

// Close stops the watch.
func (tw *TamperWatch) Close() error {
	return tw.w.Close()
}
