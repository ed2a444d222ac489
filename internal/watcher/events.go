package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is what happened to a path during one debounce window.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

type Change struct {
	Path string
	Op   Op
	At   time.Time
}

// opOf maps an fsnotify event onto an Op. Chmod-only events carry no
// content change and are dropped.
func opOf(ev fsnotify.Event) (Op, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return OpCreate, true
	case ev.Has(fsnotify.Write):
		return OpWrite, true
	case ev.Has(fsnotify.Remove):
		return OpRemove, true
	case ev.Has(fsnotify.Rename):
		return OpRename, true
	}
	return "", false
}

// fold combines two changes to the same path. A file that is created and
// then written is still new; any other sequence keeps the latest op.
func fold(older, newer Change) Change {
	if older.Op == OpCreate && newer.Op == OpWrite {
		newer.Op = OpCreate
	}
	return newer
}

func opCounts(changes []Change) map[Op]int {
	counts := make(map[Op]int, 4)
	for _, c := range changes {
		counts[c.Op]++
	}
	return counts
}
