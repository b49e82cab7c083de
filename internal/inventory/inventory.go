// Package inventory tracks the redo log files the reader can pull
// from: the fixed set of online groups and the sequence-ordered queue
// of archived logs.
package inventory

import (
	"errors"
	"fmt"
	"os"

	mapset "github.com/deckarep/golang-set"
	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"rdlc/internal/codec"
)

// ErrNoReadableMember means an online log group has no member file
// reachable on this host; the redo stream is not navigable from here.
var ErrNoReadableMember = errors.New("no readable member in online log group")

// LogHandle is one known redo log file. Online members carry their
// group number; archived logs use group 0. A handle belongs to exactly
// one collection and is never shared between them; the switchover path
// clones reader state into a fresh archive handle instead of aliasing.
type LogHandle struct {
	Path     string
	Group    int64
	Sequence uint32
	FirstScn codec.SCN
	NextScn  codec.SCN

	// State is the in-flight read position owned by the log reader.
	// It moves, never copies: Clone transfers it to the archive
	// handle and clears it on the source.
	State interface{}
}

// Active reports whether the handle is the online log currently being
// written: its upper SCN bound is still open.
func (h *LogHandle) Active() bool {
	return h.NextScn == codec.ZeroSCN
}

// Less orders archive handles by sequence, with path as tie-break so
// mirrored copies from several destinations coexist in the queue.
func (h *LogHandle) Less(than btree.Item) bool {
	o := than.(*LogHandle)
	if h.Sequence != o.Sequence {
		return h.Sequence < o.Sequence
	}
	return h.Path < o.Path
}

// GroupMember is one (group, member path) row from the logfile view,
// ordered so that members of a group arrive together and recovery
// destination members come first.
type GroupMember struct {
	Group int64
	Path  string
}

// ArchivedLog is one archived log row from the dictionary.
type ArchivedLog struct {
	Path     string
	Sequence uint32
	FirstScn codec.SCN
	NextScn  codec.SCN
}

// Inventory owns both log collections. The online set is built once
// and refreshed in place; the archive queue is rebuilt on each pass.
type Inventory struct {
	codec   codec.Codec
	statFn  func(string) (os.FileInfo, error)
	online  mapset.Set
	archive *btree.BTree
	log     *logrus.Entry
}

// Option adjusts inventory construction; used by tests to stub stat.
type Option func(*Inventory)

// WithStat replaces the file existence probe used for member election.
func WithStat(fn func(string) (os.FileInfo, error)) Option {
	return func(v *Inventory) { v.statFn = fn }
}

func New(c codec.Codec, opts ...Option) *Inventory {
	v := &Inventory{
		codec:   c,
		statFn:  os.Stat,
		online:  mapset.NewSet(),
		archive: btree.New(8),
		log:     logrus.WithField("component", "inventory"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// BuildOnline elects one readable member per group from the dictionary
// listing and adds a handle for it. Members of a group arrive adjacent;
// the first whose file stats cleanly wins. Every group must contribute
// a member or the whole stream is unusable.
func (v *Inventory) BuildOnline(members []GroupMember) error {
	groupLast, group, groupPrev := int64(-1), int64(-1), int64(-1)

	for _, m := range members {
		groupPrev = group
		group = m.Group

		if groupPrev != groupLast && group != groupPrev {
			return fmt.Errorf("group %d: %w", groupPrev, ErrNoReadableMember)
		}

		if group != groupLast {
			if _, err := v.statFn(m.Path); err != nil {
				continue
			}
			v.log.Infof("found log group: %d path: %s", group, m.Path)
			v.online.Add(&LogHandle{Path: m.Path, Group: group, NextScn: codec.ZeroSCN})
			groupLast = group
		}
	}

	if group != groupLast {
		return fmt.Errorf("group %d: %w", group, ErrNoReadableMember)
	}
	return nil
}

// Online snapshots the online handles. The set is fixed after
// BuildOnline; iteration order carries no meaning.
func (v *Inventory) Online() []*LogHandle {
	handles := make([]*LogHandle, 0, v.online.Cardinality())
	for item := range v.online.Iter() {
		handles = append(handles, item.(*LogHandle))
	}
	return handles
}

// RefreshOnline re-reads each online member's file header so the
// handle reflects the generation currently occupying that file. A
// handle whose file cannot be read at this instant keeps its previous
// view; the next refresh will catch up.
func (v *Inventory) RefreshOnline() {
	for _, h := range v.Online() {
		if err := v.Reload(h); err != nil {
			v.log.Warnf("reloading %s: %v", h.Path, err)
		}
	}
}

// Reload updates a handle's sequence and SCN range from the file
// header on disk.
func (v *Inventory) Reload(h *LogHandle) error {
	hdr, err := ReadFileHeader(h.Path, v.codec)
	if err != nil {
		return err
	}
	h.Sequence = hdr.Sequence
	h.FirstScn = hdr.FirstScn
	h.NextScn = hdr.NextScn
	return nil
}

// RebuildArchive replaces the archive queue with freshly listed logs.
func (v *Inventory) RebuildArchive(logs []ArchivedLog) {
	v.archive.Clear(false)
	for _, a := range logs {
		v.archive.ReplaceOrInsert(&LogHandle{
			Path:     a.Path,
			Sequence: a.Sequence,
			FirstScn: a.FirstScn,
			NextScn:  a.NextScn,
		})
	}
}

// ArchiveLen reports the number of queued archived logs.
func (v *Inventory) ArchiveLen() int {
	return v.archive.Len()
}

// PopArchive removes and returns the lowest-sequence archived log, or
// nil when the queue is empty.
func (v *Inventory) PopArchive() *LogHandle {
	item := v.archive.DeleteMin()
	if item == nil {
		return nil
	}
	return item.(*LogHandle)
}
