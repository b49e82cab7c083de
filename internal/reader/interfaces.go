package reader

import (
	"context"

	"rdlc/internal/catalog"
	"rdlc/internal/inventory"
)

// LogReader walks the redo records of one log file and emits row
// changes downstream. The scheduler only cares about three outcomes of
// Process: clean completion, ErrWrongSequenceSwitched on a recycled
// online log, and everything else as fatal.
type LogReader interface {
	// Process consumes the log behind the handle. It runs on the
	// scheduler's thread and may block through quiet periods of the
	// active online log.
	Process(h *inventory.LogHandle) error

	// Clone moves all in-flight read state (file cursor and any
	// record-reassembly buffers) from src to a freshly allocated
	// archive handle dst during overwrite recovery. Handles are never
	// shared between collections.
	Clone(dst, src *inventory.LogHandle)
}

// OpenTransaction summarizes one transaction still buffered in the
// store, for the checkpoint min-sequence rule and shutdown dumps.
type OpenTransaction struct {
	Xid           string
	FirstSequence uint32
	Summary       string
}

// TransactionStore accumulates per-transaction redo chunks until
// commit. Only its open-transaction view matters here.
type TransactionStore interface {
	Open() []OpenTransaction
}

// NoTransactions is the store used when no transaction engine is
// attached: nothing is ever buffered, so the checkpoint always tracks
// the scheduler's own cursor.
type NoTransactions struct{}

func (NoTransactions) Open() []OpenTransaction { return nil }

// CommandBuffer is the output stage that receives reconstructed
// changes. The reader carries it opaquely to its collaborators.
type CommandBuffer interface {
	Flush() error
}

// DatabaseInfo is the bootstrap row from the dictionary.
type DatabaseInfo struct {
	LogMode            string
	SupplementalLogMin string
	EndianFormat       string
	CurrentScn         uint64
	ResetlogsID        uint32
	Banner             string
	Name               string
}

// Dictionary is the metadata surface of the database: the bootstrap
// checks, the log inventory views, and the table catalog queries.
type Dictionary interface {
	catalog.Dictionary

	DatabaseInfo(ctx context.Context) (*DatabaseInfo, error)
	ContainerID(ctx context.Context) (uint32, error)
	CurrentSequence(ctx context.Context) (uint32, error)
	OnlineLogs(ctx context.Context) ([]inventory.GroupMember, error)
	ArchivedLogs(ctx context.Context, fromSequence, resetlogs uint32) ([]inventory.ArchivedLog, error)
}
