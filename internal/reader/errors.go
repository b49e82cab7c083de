package reader

import "errors"

var (
	// ErrConfigReject means the database side is not set up for log
	// mining (wrong mode, missing supplemental logging, or a foreign
	// incarnation); the reader refuses to start.
	ErrConfigReject = errors.New("database configuration rejected")

	// ErrWrongSequenceSwitched is returned by a LogReader when an
	// online log is recycled mid-read. The scheduler recovers by
	// continuing from the archived copy of the same sequence.
	ErrWrongSequenceSwitched = errors.New("online redo log overwritten by new data")

	// ErrSequenceGap means the archive is missing the generation the
	// scheduler needs next. There is no recovery.
	ErrSequenceGap = errors.New("archived redo log missing for sequence")
)
