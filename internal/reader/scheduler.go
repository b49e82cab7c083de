package reader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rdlc/internal/inventory"
)

// Run is the scheduler loop. It alternates between the online phase
// (follow the active generations in place) and the archive phase
// (drain sealed generations from the archive queue), advancing the
// expected sequence after every completed log and checkpointing as it
// goes. It returns nil on shutdown and an error only for the fatal
// cases: an unnavigable online set, an archive gap, or a log reader
// failure that is not the overwrite switchover.
func (r *Reader) Run(ctx context.Context) error {
	r.log.Infof("redo reader for: %s", r.database)

	members, err := r.dict.OnlineLogs(ctx)
	if err != nil {
		return fmt.Errorf("getting online log list: %w", err)
	}
	r.inv = inventory.New(r.codec)
	if err := r.inv.BuildOnline(members); err != nil {
		return err
	}

	var ret error
	var redo *inventory.LogHandle

	for {
		logsProcessed := false

		if ctx.Err() != nil {
			break
		}
		r.log.Debug("checking online redo logs")
		r.inv.RefreshOnline()

		// online phase
		for {
			redo = nil
			r.log.Debugf("searching online redo log for sequence: %d", r.sequence)

			for _, h := range r.inv.Online() {
				if h.Sequence == r.sequence {
					redo = h
				}
				r.log.Debugf("%s is %d", h.Path, h.Sequence)
			}

			// keep waiting on the online set while the expected
			// sequence has not been recycled past us
			if redo == nil {
				isHigher := false
				for {
					for _, h := range r.inv.Online() {
						if h.Sequence > r.sequence {
							isHigher = true
						}
						if h.Sequence == r.sequence {
							redo = h
						}
					}
					if redo != nil || isHigher {
						break
					}
					r.idle(ctx)
					if ctx.Err() != nil {
						break
					}
					r.inv.RefreshOnline()
				}
			}

			if redo == nil || ctx.Err() != nil {
				break
			}

			logsProcessed = true
			ret = r.logReader.Process(redo)
			if ret != nil {
				if errors.Is(ret, ErrWrongSequenceSwitched) {
					// recycled mid-read; pick it up from the archive
					r.log.Info("online redo log overwritten by new data")
					break
				}
				return fmt.Errorf("online redo log %s: %w", redo.Path, ret)
			}

			if ctx.Err() != nil {
				break
			}
			r.sequence++
			r.writeCheckpoint(false)
		}

		if ctx.Err() != nil {
			break
		}

		// archive phase
		r.log.Debug("checking archive redo logs")
		logs, err := r.dict.ArchivedLogs(ctx, r.sequence, r.resetlogs)
		if err != nil {
			r.log.Errorf("getting archive log list: %v", err)
		}
		r.inv.RebuildArchive(logs)

		for r.inv.ArchiveLen() > 0 {
			redoPrev := redo
			redo = r.inv.PopArchive()
			r.log.Debugf("searching archived redo log for sequence: %d", r.sequence)

			if errors.Is(ret, ErrWrongSequenceSwitched) && redoPrev != nil && redoPrev.Sequence == redo.Sequence {
				r.log.Info("continuing broken online redo log read process with archive logs")
				r.logReader.Clone(redo, redoPrev)
			}

			if redo.Sequence < r.sequence {
				// already consumed (mirrored destination)
				continue
			}
			if redo.Sequence > r.sequence {
				return fmt.Errorf("%w: could not find archive log for sequence %d, found %d instead",
					ErrSequenceGap, r.sequence, redo.Sequence)
			}

			if ctx.Err() != nil {
				break
			}
			logsProcessed = true
			ret = r.logReader.Process(redo)
			if ret != nil {
				return fmt.Errorf("archived redo log %s: %w", redo.Path, ret)
			}

			r.sequence++
			r.writeCheckpoint(false)
			redo = nil
		}

		if ctx.Err() != nil {
			break
		}
		if !logsProcessed {
			r.idle(ctx)
		}
	}

	r.writeCheckpoint(true)
	if r.out != nil {
		if err := r.out.Flush(); err != nil {
			r.log.Errorf("flushing output: %v", err)
		}
	}
	r.dumpTransactions()
	return nil
}

// idle sleeps the configured redo-read interval, cut short by shutdown
// or by the archive destination watcher signaling fresh logs.
func (r *Reader) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-r.opts.Nudge:
	case <-time.After(r.opts.RedoReadSleep):
	}
}
