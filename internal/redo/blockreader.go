// Package redo walks the physical blocks of a redo log file. It
// maintains the read position the scheduler depends on: verifying
// block ownership, detecting when the database recycles an online log
// mid-read, and carrying the cursor across the archive switchover.
// Interpreting record payloads is the job of a full log reader layered
// on top; this one only tracks position.
package redo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"rdlc/internal/codec"
	"rdlc/internal/inventory"
	"rdlc/internal/reader"
)

// ErrTruncatedLog means an archived log ended before its declared
// block count. Archives are sealed, so this is never retried.
var ErrTruncatedLog = errors.New("redo log shorter than its header declares")

var _ reader.LogReader = (*BlockReader)(nil)

// Checkpointer lets a long-running log scan trigger interval
// checkpoints without knowing about the reader.
type Checkpointer interface {
	CheckForCheckpoint()
}

// readState is the in-flight cursor stored on a LogHandle. It moves
// with the handle across the online-to-archive switchover.
type readState struct {
	header    *inventory.FileHeader
	nextBlock uint32
}

// BlockReader processes one log file at a time on the scheduler's
// thread, block by block.
type BlockReader struct {
	ctx   context.Context
	codec codec.Codec
	sleep time.Duration
	ckpt  Checkpointer
	log   *logrus.Entry
}

func NewBlockReader(ctx context.Context, c codec.Codec, sleep time.Duration, ckpt Checkpointer) *BlockReader {
	return &BlockReader{
		ctx:   ctx,
		codec: c,
		sleep: sleep,
		ckpt:  ckpt,
		log:   logrus.WithField("component", "redo"),
	}
}

// Clone transfers the in-flight cursor from an overwritten online
// handle to its archived copy, so reading resumes at the block where
// the online pass stopped. The source handle is left without state;
// the two handles never alias.
func (b *BlockReader) Clone(dst, src *inventory.LogHandle) {
	dst.State = src.State
	src.State = nil
}

// Process reads the log until it is fully consumed. For an online
// handle this blocks through quiet periods of the active log and
// returns reader.ErrWrongSequenceSwitched when the file is recycled
// underneath us. An archived handle reads to its declared end; when its
// data runs out earlier, a sealed header ends the read successfully and
// an unsealed one fails with ErrTruncatedLog. On shutdown it returns nil
// and keeps the cursor on the handle.
func (b *BlockReader) Process(h *inventory.LogHandle) error {
	f, err := os.Open(h.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := b.resume(f, h)
	if err != nil {
		return err
	}

	block := make([]byte, st.header.BlockSize)
	for st.nextBlock < st.header.NumBlocks {
		if b.ctx.Err() != nil {
			h.State = st
			return nil
		}

		n, err := f.ReadAt(block, int64(st.nextBlock)*int64(st.header.BlockSize))
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if n < int(st.header.BlockSize) {
			if done, err := b.endOfData(f, h, st); done || err != nil {
				return err
			}
			continue
		}

		owner := b.codec.Read32(block[inventory.OfsSequence:])
		switch {
		case owner == h.Sequence:
			blockNumber := b.codec.Read32(block[inventory.OfsBlockNumber:])
			if block[0] != 0x01 || block[1] != inventory.FileTypeRedo || blockNumber != st.nextBlock {
				return fmt.Errorf("block %d of %s: corrupted block header", st.nextBlock, h.Path)
			}
			st.nextBlock++
			if b.ckpt != nil {
				b.ckpt.CheckForCheckpoint()
			}
		case owner > h.Sequence:
			// a newer generation took the file over
			if h.Group > 0 {
				h.State = st
				return reader.ErrWrongSequenceSwitched
			}
			return fmt.Errorf("block %d of %s: owned by sequence %d, want %d",
				st.nextBlock, h.Path, owner, h.Sequence)
		default:
			// the writer has not reached this block yet
			if done, err := b.endOfData(f, h, st); done || err != nil {
				return err
			}
		}
	}

	h.State = nil
	return nil
}

// resume opens or revalidates the cursor for h. A cloned cursor keeps
// its block position; a fresh one starts after the header blocks.
func (b *BlockReader) resume(f *os.File, h *inventory.LogHandle) (*readState, error) {
	hdr, err := inventory.DecodeFileHeader(f, b.codec)
	if err != nil {
		return nil, err
	}
	if hdr.Sequence != h.Sequence {
		if h.Group > 0 {
			return nil, reader.ErrWrongSequenceSwitched
		}
		return nil, fmt.Errorf("%s: holds sequence %d, want %d", h.Path, hdr.Sequence, h.Sequence)
	}

	if st, ok := h.State.(*readState); ok && st != nil {
		st.header = hdr
		b.log.Debugf("resuming %s at block %d", h.Path, st.nextBlock)
		return st, nil
	}
	return &readState{header: hdr, nextBlock: 2}, nil
}

// endOfData handles running out of written blocks before the declared
// end. An active online log gets polled until it seals or is recycled;
// anything else is truncated. Returns done=true when the log turned
// out to be sealed and fully consumed, and also on shutdown, with the
// cursor kept on the handle.
func (b *BlockReader) endOfData(f *os.File, h *inventory.LogHandle, st *readState) (bool, error) {
	hdr, err := inventory.DecodeFileHeader(f, b.codec)
	if err != nil {
		return false, err
	}
	if hdr.Sequence != h.Sequence {
		if h.Group > 0 {
			h.State = st
			return false, reader.ErrWrongSequenceSwitched
		}
		return false, fmt.Errorf("%s: holds sequence %d, want %d", h.Path, hdr.Sequence, h.Sequence)
	}
	if hdr.NextScn != codec.ZeroSCN {
		// sealed; whatever is written is all there will be
		h.NextScn = hdr.NextScn
		h.State = nil
		return true, nil
	}
	if h.Group == 0 {
		return false, fmt.Errorf("%s: %w", h.Path, ErrTruncatedLog)
	}

	select {
	case <-b.ctx.Done():
		h.State = st
		return true, nil
	case <-time.After(b.sleep):
	}
	return false, nil
}
