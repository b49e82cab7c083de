// Package reader owns the control loop of the redo log collector: the
// bootstrap handshake with the database, the scheduler that walks log
// generations, and the checkpoint protocol that makes the position
// durable.
package reader

import (
	"time"

	"github.com/sirupsen/logrus"

	"rdlc/internal/catalog"
	"rdlc/internal/checkpoint"
	"rdlc/internal/codec"
	"rdlc/internal/inventory"
)

const noOpenTransactions = ^uint32(0)

// Options wires the reader's collaborators and tuning knobs.
type Options struct {
	Database string
	Dict     Dictionary
	Txns     TransactionStore
	Out      CommandBuffer

	Checkpoint *checkpoint.File

	// Nudge, when non-nil, wakes the idle loop early (archive
	// destination watcher). Purely an accelerant; polling continues
	// regardless.
	Nudge <-chan struct{}

	RedoReadSleep time.Duration
}

// Reader is the process-lifetime state, owned by the scheduler
// goroutine. All wide fields (sequence, scn, endian, version, conId)
// live here rather than as globals.
type Reader struct {
	log  *logrus.Entry
	opts Options

	dict Dictionary
	txns TransactionStore
	out  CommandBuffer
	ckpt *checkpoint.File

	logReader LogReader
	codec     codec.Codec
	cat       *catalog.Catalog
	inv       *inventory.Inventory

	database  string
	dbName    string
	sequence  uint32
	scn       codec.SCN
	resetlogs uint32
	version   uint32
	conId     uint32
	bigEndian bool
}

// New builds a reader and primes its position from the checkpoint.
// A damaged or foreign checkpoint is logged and discarded; in-memory
// zeros then force bootstrap to resolve a fresh position.
func New(opts Options) *Reader {
	r := &Reader{
		log:      logrus.WithField("component", "reader"),
		opts:     opts,
		dict:     opts.Dict,
		txns:     opts.Txns,
		out:      opts.Out,
		ckpt:     opts.Checkpoint,
		cat:      catalog.New(),
		database: opts.Database,
	}

	rec, err := r.ckpt.Load()
	if err != nil {
		r.log.Errorf("reading checkpoint: %v", err)
	}
	if rec != nil {
		r.sequence = rec.Sequence
		r.scn = codec.SCN(rec.Scn)
		r.resetlogs = rec.Resetlogs
	}
	return r
}

// SetLogReader installs the record parser. It must be called before
// Run; the parser itself usually needs the codec chosen at bootstrap,
// hence the two-step wiring.
func (r *Reader) SetLogReader(lr LogReader) {
	r.logReader = lr
}

// Codec returns the byte-order primitives chosen at bootstrap.
func (r *Reader) Codec() codec.Codec {
	return r.codec
}

// Catalog returns the table descriptor map.
func (r *Reader) Catalog() *catalog.Catalog {
	return r.cat
}

// Sequence returns the next log generation the scheduler expects.
func (r *Reader) Sequence() uint32 {
	return r.sequence
}

// writeCheckpoint persists the resume position. The sequence written
// is the minimum first-sequence of all open transactions, so a crash
// recovery rereads enough log to rebuild them; absent open work it is
// the scheduler's own cursor.
func (r *Reader) writeCheckpoint(atShutdown bool) {
	minSequence := uint32(noOpenTransactions)
	for _, t := range r.txns.Open() {
		if t.FirstSequence < minSequence {
			minSequence = t.FirstSequence
		}
	}
	if minSequence == noOpenTransactions {
		minSequence = r.sequence
	}

	scn := r.scn.Format48()
	if r.version >= 0x12200 {
		scn = r.scn.Format64()
	}
	r.log.Debugf("writing checkpoint information SEQ: %d/%d SCN: %s after: %s",
		minSequence, r.sequence, scn, r.ckpt.SinceLast(time.Now()).Round(time.Second))

	err := r.ckpt.Save(checkpoint.Record{
		Database:  r.database,
		Sequence:  minSequence,
		Scn:       uint64(r.scn),
		Resetlogs: r.resetlogs,
	})
	if err != nil {
		r.log.Errorf("%v", err)
	}

	if atShutdown {
		r.log.Infof("writing checkpoint at exit for %s", r.database)
		r.log.Infof("- conId: %d", r.conId)
		r.log.Infof("- sequence: %d", minSequence)
		r.log.Infof("- scn: %d", uint64(r.scn))
		r.log.Infof("- resetlogs: %d", r.resetlogs)
	}
}

// CheckForCheckpoint writes a checkpoint if the configured interval
// has elapsed. Log readers call this from long scans so a slow log
// does not leave the position stale.
func (r *Reader) CheckForCheckpoint() {
	if r.ckpt.Due(time.Now()) {
		r.writeCheckpoint(false)
	}
}

// dumpTransactions reports work still buffered at shutdown.
func (r *Reader) dumpTransactions() {
	open := r.txns.Open()
	if len(open) == 0 {
		return
	}
	r.log.Infof("transactions open: %d", len(open))
	for i, t := range open {
		r.log.Infof("transaction[%d]: xid %s first sequence %d %s", i+1, t.Xid, t.FirstSequence, t.Summary)
	}
}
